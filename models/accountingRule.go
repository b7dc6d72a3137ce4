package models

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/utils"
	"github.com/shopspring/decimal"
)

// AccountingRule is the learned classification for one counterparty: which
// account their movements go to, how confident the system is, and running
// amount statistics used for anomaly detection. One rule per (company, nit);
// the rule is mutated in place, never recreated.
type AccountingRule struct {
	ID              int                 `gorm:"primary_key" json:"id"`
	CompanyId       string              `gorm:"uniqueIndex:idx_rule_company_nit;size:36;not null" json:"company_id"`
	ThirdPartyNit   string              `gorm:"uniqueIndex:idx_rule_company_nit;size:30;not null" json:"third_party_nit"`
	ThirdPartyName  string              `gorm:"size:255" json:"third_party_name"`
	AccountId       int                 `gorm:"index;not null" json:"account_id"`
	Account         *Account            `json:"account,omitempty"`
	ConfidenceScore int                 `gorm:"not null;default:0" json:"confidence_score"`
	CreatedByUser   *bool               `gorm:"not null;default:false" json:"created_by_user"`
	LastAmount      decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"last_amount"`
	AverageAmount   decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"average_amount"`
	MinAmount       decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"min_amount"`
	MaxAmount       decimal.NullDecimal `gorm:"type:decimal(18,2)" json:"max_amount"`
	CreatedAt       time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

// ruleLocks serializes statistics updates per (company, nit) so concurrent
// classifications of the same counterparty do not lose EMA or confidence
// updates.
var ruleLocks sync.Map

func lockRuleKey(companyId, nit string) *sync.Mutex {
	key := companyId + "|" + nit
	mu, _ := ruleLocks.LoadOrStore(key, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// UpdateStatistics folds a confirmed amount into the rule's running stats.
// The first amount seeds average, min and max; later amounts move the
// average with the configured smoothing factor. Min and max never decay.
func (r *AccountingRule) UpdateStatistics(amount decimal.Decimal) {
	alpha := config.Clasificacion().Alpha()

	r.LastAmount = decimal.NullDecimal{Decimal: amount, Valid: true}

	if !r.AverageAmount.Valid {
		r.AverageAmount = decimal.NullDecimal{Decimal: amount, Valid: true}
		r.MinAmount = decimal.NullDecimal{Decimal: amount, Valid: true}
		r.MaxAmount = decimal.NullDecimal{Decimal: amount, Valid: true}
	} else {
		one := decimal.NewFromInt(1)
		r.AverageAmount = decimal.NullDecimal{
			Decimal: r.AverageAmount.Decimal.Mul(one.Sub(alpha)).Add(amount.Mul(alpha)),
			Valid:   true,
		}
		if amount.LessThan(r.MinAmount.Decimal) {
			r.MinAmount = decimal.NullDecimal{Decimal: amount, Valid: true}
		}
		if amount.GreaterThan(r.MaxAmount.Decimal) {
			r.MaxAmount = decimal.NullDecimal{Decimal: amount, Valid: true}
		}
	}

	r.ConfidenceScore++
}

// IsAmountAnomaly reports whether the amount deviates from the running
// average by more than the configured threshold. Rules without a positive
// average never flag: there is nothing to deviate from.
func (r *AccountingRule) IsAmountAnomaly(amount decimal.Decimal) (bool, decimal.Decimal) {
	if !r.AverageAmount.Valid || !r.AverageAmount.Decimal.IsPositive() {
		return false, decimal.Zero
	}
	deviation := amount.Sub(r.AverageAmount.Decimal).Abs().Div(r.AverageAmount.Decimal)
	return deviation.GreaterThan(config.Clasificacion().Threshold()), deviation
}

// ExpectedRange describes the amounts the rule has seen so far.
func (r *AccountingRule) ExpectedRange() (decimal.Decimal, decimal.Decimal) {
	if !r.MinAmount.Valid || !r.MaxAmount.Valid {
		return decimal.Zero, decimal.Zero
	}
	return r.MinAmount.Decimal, r.MaxAmount.Decimal
}

func getRuleByNit(ctx context.Context, companyId string, nit string) (*AccountingRule, error) {
	db := config.GetDB()
	var rule AccountingRule
	err := db.WithContext(ctx).
		Where("company_id = ? AND third_party_nit = ?", companyId, nit).
		First(&rule).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &rule, nil
}

type NewAccountingRule struct {
	ThirdPartyNit  string `json:"third_party_nit" binding:"required"`
	ThirdPartyName string `json:"third_party_name"`
	AccountId      int    `json:"account_id" binding:"required"`
}

// CreateAccountingRule registers a manual rule with confidence 1 and no
// amount history.
func CreateAccountingRule(ctx context.Context, input *NewAccountingRule) (*AccountingRule, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := utils.ValidateResourceId[Account](ctx, companyId, input.AccountId); err != nil {
		return nil, errors.New("account not found")
	}
	count, err := utils.ResourceCountWhere[AccountingRule](ctx, companyId, "third_party_nit = ?", input.ThirdPartyNit)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("a rule for this nit already exists")
	}

	rule := AccountingRule{
		CompanyId:       companyId,
		ThirdPartyNit:   input.ThirdPartyNit,
		ThirdPartyName:  input.ThirdPartyName,
		AccountId:       input.AccountId,
		ConfidenceScore: 1,
		CreatedByUser:   utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

func DeleteAccountingRule(ctx context.Context, id int) (*AccountingRule, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	rule, err := utils.FetchModel[AccountingRule](ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

func GetAccountingRule(ctx context.Context, id int) (*AccountingRule, error) {
	return GetResource[AccountingRule](ctx, id, "Account")
}

// GetAccountingRules lists the company's rules, most trusted first.
func GetAccountingRules(ctx context.Context, keyword *string) ([]*AccountingRule, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	var results []*AccountingRule

	dbCtx := db.WithContext(ctx).Preload("Account").Where("company_id = ?", companyId)
	if keyword != nil && len(*keyword) > 0 {
		kw := "%" + *keyword + "%"
		dbCtx = dbCtx.Where("third_party_nit LIKE ? OR third_party_name LIKE ?", kw, kw)
	}
	if err := dbCtx.Order("confidence_score DESC, third_party_name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
