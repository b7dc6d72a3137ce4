package models

import (
	"context"
	"errors"
	"time"

	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction is a comprobante contable: a header owning the debit/credit
// movements of one balanced entry. Movements are owned exclusively and
// cascade on delete. Totals are always derived from the movements, never
// stored.
type Transaction struct {
	ID            int               `gorm:"primary_key" json:"id"`
	CompanyId     string            `gorm:"index;size:36;not null" json:"company_id"`
	Number        string            `gorm:"index;size:30;not null" json:"number"`
	Date          time.Time         `gorm:"index;not null" json:"date"`
	Concept       string            `gorm:"size:500;not null" json:"concept"`
	Status        TransactionStatus `gorm:"type:enum('Active','Cancelled');index;size:20;not null;default:'Active'" json:"status"`
	CancelledById *int              `gorm:"index" json:"cancelled_by_id"`
	CreatedById   int               `gorm:"index" json:"created_by_id"`
	Movements     []Movement        `gorm:"constraint:OnDelete:CASCADE" json:"movements"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"autoUpdateTime" json:"updated_at"`

	Alerts []string `gorm:"-" json:"alerts,omitempty"`
}

// Movement is one leg of an entry. Exactly one of debit/credit is nonzero.
type Movement struct {
	ID            int             `gorm:"primary_key" json:"id"`
	TransactionId int             `gorm:"index;not null" json:"transaction_id"`
	AccountId     int             `gorm:"index;not null" json:"account_id"`
	ThirdPartyId  int             `gorm:"index;not null" json:"third_party_id"`
	Debit         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"debit"`
	Credit        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"credit"`
	Description   string          `gorm:"size:500" json:"description"`
	Account       *Account        `json:"account,omitempty"`
	ThirdParty    *ThirdParty     `json:"third_party,omitempty"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewTransaction struct {
	Date      time.Time      `json:"date" binding:"required"`
	Concept   string         `json:"concept" binding:"required"`
	Movements []*NewMovement `json:"movements" binding:"required"`
}

type NewMovement struct {
	AccountId    int             `json:"account_id" binding:"required"`
	ThirdPartyId int             `json:"third_party_id" binding:"required"`
	Debit        decimal.Decimal `json:"debit"`
	Credit       decimal.Decimal `json:"credit"`
	Description  string          `json:"description"`
}

func (t *Transaction) TotalDebit() decimal.Decimal {
	total := decimal.Zero
	for _, m := range t.Movements {
		total = total.Add(m.Debit)
	}
	return total
}

func (t *Transaction) TotalCredit() decimal.Decimal {
	total := decimal.Zero
	for _, m := range t.Movements {
		total = total.Add(m.Credit)
	}
	return total
}

// IsBalanced reports whether debits and credits match within the tolerance.
func (t *Transaction) IsBalanced() bool {
	diff := t.TotalDebit().Sub(t.TotalCredit()).Abs()
	return diff.LessThanOrEqual(balanceTolerance)
}

// receiveMovements validates a movement set and converts it to model rows.
// An entry needs at least two legs, every leg exactly one nonzero
// non-negative side, and the set must balance within the tolerance.
func receiveMovements(inputs []*NewMovement) ([]Movement, error) {

	if len(inputs) < 2 {
		return nil, &InsufficientMovementsError{Count: len(inputs)}
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	movements := make([]Movement, 0, len(inputs))

	for i, input := range inputs {
		if input.Debit.IsNegative() || input.Credit.IsNegative() {
			return nil, &DegenerateMovementError{Index: i, Reason: "valor negativo"}
		}
		debitSet := input.Debit.IsPositive()
		creditSet := input.Credit.IsPositive()
		if debitSet && creditSet {
			return nil, &DegenerateMovementError{Index: i, Reason: "débito y crédito simultáneos"}
		}
		if !debitSet && !creditSet {
			return nil, &DegenerateMovementError{Index: i, Reason: "sin valor en débito ni crédito"}
		}

		totalDebit = totalDebit.Add(input.Debit)
		totalCredit = totalCredit.Add(input.Credit)

		movements = append(movements, Movement{
			AccountId:    input.AccountId,
			ThirdPartyId: input.ThirdPartyId,
			Debit:        input.Debit,
			Credit:       input.Credit,
			Description:  input.Description,
		})
	}

	if totalDebit.Sub(totalCredit).Abs().GreaterThan(balanceTolerance) {
		return nil, &UnbalancedEntryError{TotalDebit: totalDebit, TotalCredit: totalCredit}
	}
	return movements, nil
}

// validateMovementRefs checks every referenced account and tercero exists in
// the company and returns the accounts keyed by id for later sign checks.
func validateMovementRefs(ctx context.Context, companyId string, movements []Movement) (map[int]*Account, error) {

	accountIds := make([]int, 0, len(movements))
	thirdPartyIds := make([]int, 0, len(movements))
	for _, m := range movements {
		accountIds = append(accountIds, m.AccountId)
		thirdPartyIds = append(thirdPartyIds, m.ThirdPartyId)
	}
	accountIds = utils.UniqueSlice(accountIds)
	thirdPartyIds = utils.UniqueSlice(thirdPartyIds)

	db := config.GetDB()

	var accounts []*Account
	if err := db.WithContext(ctx).
		Where("company_id = ? AND id IN ?", companyId, accountIds).
		Find(&accounts).Error; err != nil {
		return nil, err
	}
	if len(accounts) != len(accountIds) {
		return nil, errors.New("invalid account id(s)")
	}

	var count int64
	if err := db.WithContext(ctx).Model(&ThirdParty{}).
		Where("company_id = ? AND id IN ?", companyId, thirdPartyIds).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count != int64(len(thirdPartyIds)) {
		return nil, errors.New("invalid third party id(s)")
	}

	accountsById := make(map[int]*Account, len(accounts))
	for _, a := range accounts {
		accountsById[a.ID] = a
	}
	return accountsById, nil
}

// CreateTransaction validates and persists a balanced entry. The comprobante
// number is allocated under the company posting lock inside the same database
// transaction as the insert, so the series has no gaps or collisions.
func CreateTransaction(ctx context.Context, input *NewTransaction) (*Transaction, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)

	company, err := GetCompany(ctx)
	if err != nil {
		return nil, err
	}

	movements, err := receiveMovements(input.Movements)
	if err != nil {
		return nil, err
	}

	accountsById, err := validateMovementRefs(ctx, companyId, movements)
	if err != nil {
		return nil, err
	}

	transaction := Transaction{
		CompanyId:   companyId,
		Date:        input.Date,
		Concept:     input.Concept,
		Status:      TransactionStatusActive,
		CreatedById: userId,
		Movements:   movements,
	}

	if err := WithPostingLock(ctx, companyId, func(tx *gorm.DB) error {
		number, err := nextTransactionNumber(ctx, tx, company)
		if err != nil {
			return err
		}
		transaction.Number = number
		return tx.Create(&transaction).Error
	}); err != nil {
		return nil, err
	}

	transaction.Alerts = signConventionAlerts(transaction.Movements, accountsById)
	InvalidateCompanyCache(companyId)
	return &transaction, nil
}

// ReplaceMovements deletes the entry's movements and recreates them from the
// given set, revalidating the balance. All-or-nothing.
func ReplaceMovements(ctx context.Context, transactionId int, inputs []*NewMovement) (*Transaction, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	transaction, err := utils.FetchModel[Transaction](ctx, companyId, transactionId, "Movements")
	if err != nil {
		return nil, err
	}
	if transaction.Status != TransactionStatusActive {
		return nil, errors.New("transaction is cancelled")
	}

	movements, err := receiveMovements(inputs)
	if err != nil {
		return nil, err
	}

	accountsById, err := validateMovementRefs(ctx, companyId, movements)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Where("transaction_id = ?", transactionId).Delete(&Movement{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	for i := range movements {
		movements[i].TransactionId = transactionId
	}
	if err := tx.Create(&movements).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	transaction.Movements = movements
	transaction.Alerts = signConventionAlerts(movements, accountsById)
	InvalidateCompanyCache(companyId)
	return transaction, nil
}

// UpdateTransaction amends the header fields of an active entry. Movements
// are amended only through ReplaceMovements.
func UpdateTransaction(ctx context.Context, id int, date *time.Time, concept *string) (*Transaction, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	transaction, err := utils.FetchModel[Transaction](ctx, companyId, id, "Movements")
	if err != nil {
		return nil, err
	}
	if transaction.Status != TransactionStatusActive {
		return nil, errors.New("transaction is cancelled")
	}

	if date != nil {
		transaction.Date = *date
	}
	if concept != nil && *concept != "" {
		transaction.Concept = *concept
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Omit("Movements").Save(transaction).Error; err != nil {
		return nil, err
	}
	InvalidateCompanyCache(companyId)
	return transaction, nil
}

const (
	CancellationActionDeleted   = "deleted"
	CancellationActionCancelled = "cancelled"
)

// CancellationResult reports which terminal outcome delete-or-cancel took.
type CancellationResult struct {
	Action          string       `json:"action"`
	CancellationRef *Transaction `json:"cancellation_ref,omitempty"`
}

// transactionAgeDays counts whole calendar days between the entry date and
// now, both taken in the local zone.
func transactionAgeDays(date time.Time, now time.Time) int {
	y1, m1, d1 := date.Date()
	y2, m2, d2 := now.Date()
	start := time.Date(y1, m1, d1, 0, 0, 0, 0, time.Local)
	end := time.Date(y2, m2, d2, 0, 0, 0, 0, time.Local)
	return int(end.Sub(start).Hours() / 24)
}

// resolveCancellation decides the terminal outcome for delete-or-cancel.
// Privileged users can hard-delete recent mistakes; everything else becomes
// an auditable reversing entry.
func resolveCancellation(status TransactionStatus, ageDays int, isSuperuser bool, windowDays int) (string, error) {
	if status != TransactionStatusActive {
		return "", errors.New("transaction is already cancelled")
	}
	if isSuperuser && ageDays <= windowDays {
		return CancellationActionDeleted, nil
	}
	return CancellationActionCancelled, nil
}

// buildReversalMovements swaps every leg's debit and credit. The result is
// balanced whenever the source was.
func buildReversalMovements(movements []Movement) []Movement {
	reversed := make([]Movement, 0, len(movements))
	for _, m := range movements {
		reversed = append(reversed, Movement{
			AccountId:    m.AccountId,
			ThirdPartyId: m.ThirdPartyId,
			Debit:        m.Credit,
			Credit:       m.Debit,
			Description:  m.Description,
		})
	}
	return reversed
}

// DeleteOrCancelTransaction removes or reverses an entry. A superuser acting
// within the configured window gets a hard delete; otherwise a reversing
// entry dated today is posted and the original is marked cancelled.
func DeleteOrCancelTransaction(ctx context.Context, id int) (*CancellationResult, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	isSuperuser, _ := utils.GetIsSuperuserFromContext(ctx)
	userId, _ := utils.GetUserIdFromContext(ctx)

	transaction, err := utils.FetchModel[Transaction](ctx, companyId, id, "Movements")
	if err != nil {
		return nil, err
	}

	windowDays := config.Clasificacion().CancellationWindowDays
	action, err := resolveCancellation(
		transaction.Status,
		transactionAgeDays(transaction.Date, time.Now()),
		isSuperuser,
		windowDays,
	)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()

	if action == CancellationActionDeleted {
		tx := db.WithContext(ctx).Begin()
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
			}
		}()
		if err := tx.Where("transaction_id = ?", id).Delete(&Movement{}).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Delete(transaction).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
		if err := tx.Commit().Error; err != nil {
			return nil, err
		}
		InvalidateCompanyCache(companyId)
		return &CancellationResult{Action: CancellationActionDeleted}, nil
	}

	company, err := GetCompany(ctx)
	if err != nil {
		return nil, err
	}

	reversal := Transaction{
		CompanyId:   companyId,
		Date:        time.Now(),
		Concept:     "ANULACIÓN - " + transaction.Concept,
		Status:      TransactionStatusActive,
		CreatedById: userId,
		Movements:   buildReversalMovements(transaction.Movements),
	}

	if err := WithPostingLock(ctx, companyId, func(tx *gorm.DB) error {
		number, err := nextTransactionNumber(ctx, tx, company)
		if err != nil {
			return err
		}
		reversal.Number = number
		if err := tx.Create(&reversal).Error; err != nil {
			return err
		}
		return tx.Model(transaction).Updates(map[string]interface{}{
			"status":          TransactionStatusCancelled,
			"cancelled_by_id": reversal.ID,
		}).Error
	}); err != nil {
		return nil, err
	}

	InvalidateCompanyCache(companyId)
	return &CancellationResult{Action: CancellationActionCancelled, CancellationRef: &reversal}, nil
}

func GetTransaction(ctx context.Context, id int) (*Transaction, error) {
	return GetResource[Transaction](ctx, id, "Movements", "Movements.Account", "Movements.ThirdParty")
}

type TransactionFilter struct {
	FromDate *time.Time
	ToDate   *time.Time
	Status   *TransactionStatus
	Keyword  *string
}

func GetTransactions(ctx context.Context, filter *TransactionFilter) ([]*Transaction, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	var results []*Transaction

	dbCtx := db.WithContext(ctx).
		Preload("Movements").Preload("Movements.Account").Preload("Movements.ThirdParty").
		Where("company_id = ?", companyId)

	if filter != nil {
		if filter.FromDate != nil {
			dbCtx = dbCtx.Where("date >= ?", *filter.FromDate)
		}
		if filter.ToDate != nil {
			dbCtx = dbCtx.Where("date <= ?", *filter.ToDate)
		}
		if filter.Status != nil {
			dbCtx = dbCtx.Where("status = ?", *filter.Status)
		}
		if filter.Keyword != nil && len(*filter.Keyword) > 0 {
			kw := "%" + *filter.Keyword + "%"
			dbCtx = dbCtx.Where("concept LIKE ? OR number LIKE ?", kw, kw)
		}
	}

	if err := dbCtx.Order("date DESC, id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
