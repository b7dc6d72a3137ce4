package models

import (
	"context"
	"errors"
	"time"

	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/utils"
	"github.com/shopspring/decimal"
)

type UpdateMovementInput struct {
	AccountId   *int             `json:"account_id"`
	Debit       *decimal.Decimal `json:"debit"`
	Credit      *decimal.Decimal `json:"credit"`
	Description *string          `json:"description"`
}

// UpdateMovement amends one leg of an active entry. Reassigning the account
// feeds the classification engine; a learning failure never fails the edit.
// The amended entry must still balance.
func UpdateMovement(ctx context.Context, id int, input *UpdateMovementInput) (*Movement, error) {

	logger := config.GetLogger()

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	movement, err := utils.FetchSingleModel[Movement](ctx, id)
	if err != nil {
		return nil, err
	}

	transaction, err := utils.FetchModel[Transaction](ctx, companyId, movement.TransactionId, "Movements")
	if err != nil {
		return nil, err
	}
	if transaction.Status != TransactionStatusActive {
		return nil, errors.New("transaction is cancelled")
	}

	accountChanged := false
	previousAccountId := movement.AccountId

	if input.AccountId != nil && *input.AccountId != movement.AccountId {
		if err := utils.ValidateResourceId[Account](ctx, companyId, *input.AccountId); err != nil {
			return nil, errors.New("account not found")
		}
		movement.AccountId = *input.AccountId
		accountChanged = true
	}
	if input.Debit != nil {
		movement.Debit = *input.Debit
	}
	if input.Credit != nil {
		movement.Credit = *input.Credit
	}
	if input.Description != nil {
		movement.Description = *input.Description
	}

	if movement.Debit.IsNegative() || movement.Credit.IsNegative() {
		return nil, &DegenerateMovementError{Index: 0, Reason: "valor negativo"}
	}
	if movement.Debit.IsPositive() && movement.Credit.IsPositive() {
		return nil, &DegenerateMovementError{Index: 0, Reason: "débito y crédito simultáneos"}
	}
	if movement.Debit.IsZero() && movement.Credit.IsZero() {
		return nil, &DegenerateMovementError{Index: 0, Reason: "sin valor en débito ni crédito"}
	}

	// Rebalance check over the sibling legs with this one amended.
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, m := range transaction.Movements {
		if m.ID == movement.ID {
			totalDebit = totalDebit.Add(movement.Debit)
			totalCredit = totalCredit.Add(movement.Credit)
			continue
		}
		totalDebit = totalDebit.Add(m.Debit)
		totalCredit = totalCredit.Add(m.Credit)
	}
	if totalDebit.Sub(totalCredit).Abs().GreaterThan(balanceTolerance) {
		return nil, &UnbalancedEntryError{TotalDebit: totalDebit, TotalCredit: totalCredit}
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(movement).Error; err != nil {
		return nil, err
	}

	if accountChanged {
		if _, err := LearnFromEdit(ctx, movement.ID, movement.AccountId); err != nil {
			config.LogError(logger, "models", "UpdateMovement", "learn from edit", map[string]interface{}{
				"movementId":        movement.ID,
				"previousAccountId": previousAccountId,
				"newAccountId":      movement.AccountId,
			}, err)
		}
	}

	InvalidateCompanyCache(companyId)
	return movement, nil
}

type MovementFilter struct {
	AccountId    *int
	ThirdPartyId *int
	FromDate     *time.Time
	ToDate       *time.Time
}

// GetMovements lists the company's movements joined to their transactions.
func GetMovements(ctx context.Context, filter *MovementFilter) ([]*Movement, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	var results []*Movement

	dbCtx := db.WithContext(ctx).
		Preload("Account").Preload("ThirdParty").
		Joins("JOIN transactions ON transactions.id = movements.transaction_id").
		Where("transactions.company_id = ?", companyId)

	if filter != nil {
		if filter.AccountId != nil {
			dbCtx = dbCtx.Where("movements.account_id = ?", *filter.AccountId)
		}
		if filter.ThirdPartyId != nil {
			dbCtx = dbCtx.Where("movements.third_party_id = ?", *filter.ThirdPartyId)
		}
		if filter.FromDate != nil {
			dbCtx = dbCtx.Where("transactions.date >= ?", *filter.FromDate)
		}
		if filter.ToDate != nil {
			dbCtx = dbCtx.Where("transactions.date <= ?", *filter.ToDate)
		}
	}

	if err := dbCtx.Order("movements.id DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
