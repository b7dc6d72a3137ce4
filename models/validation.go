package models

import (
	"context"
	"errors"
	"fmt"

	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/utils"
	"github.com/shopspring/decimal"
)

// Sign-convention validation ("corrección inteligente"). Only PATRIMONIO,
// INGRESO and GASTO legs are checked: asset and liability accounts routinely
// sit on either side of a multi-leg entry, so flagging them produces noise,
// not corrections.

// MovementCorrection is the computed debit/credit swap for one flagged leg.
type MovementCorrection struct {
	MovementId      int             `json:"movement_id"`
	AccountCode     string          `json:"account_code"`
	AccountName     string          `json:"account_name"`
	DebitOriginal   decimal.Decimal `json:"debit_original"`
	CreditOriginal  decimal.Decimal `json:"credit_original"`
	DebitCorrected  decimal.Decimal `json:"debit_corrected"`
	CreditCorrected decimal.Decimal `json:"credit_corrected"`
	Reason          string          `json:"reason"`
}

// ValidationResult reports alerts and suggested swaps without mutating data.
type ValidationResult struct {
	Alerts      []string             `json:"alerts"`
	Sugerencias []string             `json:"sugerencias"`
	Corrections []MovementCorrection `json:"corrections"`
}

// CorrectionResult is the outcome of persisting the swaps.
type CorrectionResult struct {
	CorrectedCount int                  `json:"corrected_count"`
	Corrections    []MovementCorrection `json:"corrections"`
	TotalDebit     decimal.Decimal      `json:"total_debit"`
	TotalCredit    decimal.Decimal      `json:"total_credit"`
	IsBalanced     bool                 `json:"is_balanced"`
}

// correctedPair computes the expected debit/credit pair for one leg. ok is
// false when the leg already sits on its normal side, when the account type
// is not checked, or when the code is a configured exception. The value is
// moved whole to the expected side: no amount is ever guessed.
func correctedPair(account *Account, debit, credit decimal.Decimal) (decimal.Decimal, decimal.Decimal, string, bool) {

	settings := config.Clasificacion()

	switch account.Tipo {
	case AccountTypePatrimonio, AccountTypeIngreso:
		if settings.IsDebitException(account.Code) {
			return debit, credit, "", false
		}
		if debit.IsPositive() {
			reason := fmt.Sprintf("cuenta %s (%s) normalmente aumenta por el crédito", account.Code, account.Tipo)
			return decimal.Zero, debit, reason, true
		}
	case AccountTypeGasto:
		if settings.IsCreditException(account.Code) {
			return debit, credit, "", false
		}
		if credit.IsPositive() {
			reason := fmt.Sprintf("cuenta %s (%s) normalmente aumenta por el débito", account.Code, account.Tipo)
			return credit, decimal.Zero, reason, true
		}
	}
	return debit, credit, "", false
}

// movementCorrections runs correctedPair over a movement set. Movements
// whose account is missing from the map are skipped.
func movementCorrections(movements []Movement, accountsById map[int]*Account) []MovementCorrection {
	var corrections []MovementCorrection
	for _, m := range movements {
		account, ok := accountsById[m.AccountId]
		if !ok {
			continue
		}
		newDebit, newCredit, reason, flagged := correctedPair(account, m.Debit, m.Credit)
		if !flagged {
			continue
		}
		corrections = append(corrections, MovementCorrection{
			MovementId:      m.ID,
			AccountCode:     account.Code,
			AccountName:     account.Name,
			DebitOriginal:   m.Debit,
			CreditOriginal:  m.Credit,
			DebitCorrected:  newDebit,
			CreditCorrected: newCredit,
			Reason:          reason,
		})
	}
	return corrections
}

// signConventionAlerts renders human-readable alerts for flagged legs.
func signConventionAlerts(movements []Movement, accountsById map[int]*Account) []string {
	var alerts []string
	for _, c := range movementCorrections(movements, accountsById) {
		alerts = append(alerts, fmt.Sprintf("ALERTA: %s - %s. %s",
			c.AccountCode, c.AccountName, c.Reason))
	}
	return alerts
}

func loadTransactionAccounts(ctx context.Context, transaction *Transaction) (map[int]*Account, error) {
	accountIds := make([]int, 0, len(transaction.Movements))
	for _, m := range transaction.Movements {
		accountIds = append(accountIds, m.AccountId)
	}
	accountIds = utils.UniqueSlice(accountIds)

	db := config.GetDB()
	var accounts []*Account
	if err := db.WithContext(ctx).Where("id IN ?", accountIds).Find(&accounts).Error; err != nil {
		return nil, err
	}
	accountsById := make(map[int]*Account, len(accounts))
	for _, a := range accounts {
		accountsById[a.ID] = a
	}
	return accountsById, nil
}

// ValidateMovements inspects an entry's legs against the sign conventions
// and reports alerts plus suggested swaps. Nothing is mutated.
func ValidateMovements(ctx context.Context, transactionId int) (*ValidationResult, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	transaction, err := utils.FetchModel[Transaction](ctx, companyId, transactionId, "Movements")
	if err != nil {
		return nil, err
	}

	accountsById, err := loadTransactionAccounts(ctx, transaction)
	if err != nil {
		return nil, err
	}

	result := &ValidationResult{
		Corrections: movementCorrections(transaction.Movements, accountsById),
	}
	for _, c := range result.Corrections {
		result.Alerts = append(result.Alerts, fmt.Sprintf("ALERTA: %s - %s. %s",
			c.AccountCode, c.AccountName, c.Reason))
		result.Sugerencias = append(result.Sugerencias, fmt.Sprintf(
			"Sugerencia: mover %s de %s a débito %s / crédito %s",
			c.DebitOriginal.Add(c.CreditOriginal).StringFixed(2), c.AccountCode,
			c.DebitCorrected.StringFixed(2), c.CreditCorrected.StringFixed(2)))
	}
	return result, nil
}

// CalculateCorrections is the pure preview of corregir: the swaps it returns
// are exactly what CorrectTransaction would persist.
func CalculateCorrections(ctx context.Context, transactionId int) ([]MovementCorrection, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	transaction, err := utils.FetchModel[Transaction](ctx, companyId, transactionId, "Movements")
	if err != nil {
		return nil, err
	}

	accountsById, err := loadTransactionAccounts(ctx, transaction)
	if err != nil {
		return nil, err
	}
	return movementCorrections(transaction.Movements, accountsById), nil
}

// CorrectTransaction persists the computed swaps atomically and returns the
// per-movement delta plus the resulting balance check.
func CorrectTransaction(ctx context.Context, transactionId int) (*CorrectionResult, error) {

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

	accountsById, err := loadTransactionAccounts(ctx, transaction)
	if err != nil {
		return nil, err
	}

	corrections := movementCorrections(transaction.Movements, accountsById)

	db := config.GetDB()
	if len(corrections) > 0 {
		tx := db.WithContext(ctx).Begin()
		defer func() {
			if r := recover(); r != nil {
				tx.Rollback()
			}
		}()
		for _, c := range corrections {
			err := tx.Model(&Movement{}).Where("id = ?", c.MovementId).Updates(map[string]interface{}{
				"debit":  c.DebitCorrected,
				"credit": c.CreditCorrected,
			}).Error
			if err != nil {
				tx.Rollback()
				return nil, err
			}
		}
		if err := tx.Commit().Error; err != nil {
			return nil, err
		}
		InvalidateCompanyCache(companyId)
	}

	// Reload so totals reflect the persisted state.
	transaction, err = utils.FetchModel[Transaction](ctx, companyId, transactionId, "Movements")
	if err != nil {
		return nil, err
	}

	return &CorrectionResult{
		CorrectedCount: len(corrections),
		Corrections:    corrections,
		TotalDebit:     transaction.TotalDebit(),
		TotalCredit:    transaction.TotalCredit(),
		IsBalanced:     transaction.IsBalanced(),
	}, nil
}
