package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/utils"
	"github.com/shopspring/decimal"
)

// Classification is the engine's answer for one expense: where it goes and
// whether the amount deserves review.
type Classification struct {
	AccountCode string `json:"account_code"`
	IsAnomalous bool   `json:"is_anomalous"`
	Reason      string `json:"reason"`
}

// ClassifyByKeywords matches the counterparty name against the keyword
// tables, company overrides first, then the base table, in declaration
// order. The first keyword hit wins; no hit falls back to the default
// expense account.
func ClassifyByKeywords(settings *config.ClasificacionSettings, companyId string, name string) (string, string) {
	lowered := strings.ToLower(name)

	tables := [][]config.KeywordRule{
		settings.CompanyKeywords[companyId],
		settings.BaseKeywords,
	}
	for _, table := range tables {
		for _, rule := range table {
			for _, keyword := range rule.Keywords {
				if strings.Contains(lowered, keyword) {
					return rule.AccountCode, fmt.Sprintf("palabra clave %q", keyword)
				}
			}
		}
	}
	return settings.DefaultExpenseCode, "sin coincidencia, cuenta de gastos diversos"
}

// ClassifyExpense resolves the account for a counterparty and amount.
//
// A learned rule, when present, always decides the account. An amount far
// off the rule's running average is flagged for review but keeps the learned
// account and leaves the statistics untouched. Normal amounts feed the
// statistics. Without a rule the keyword tables decide and, when the chosen
// code exists in the company's chart, a fresh rule is seeded with this first
// amount. Only a user edit may later change the account a rule points to.
func ClassifyExpense(ctx context.Context, nit string, name string, amount decimal.Decimal) (*Classification, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	mu := lockRuleKey(companyId, nit)
	mu.Lock()
	defer mu.Unlock()

	db := config.GetDB()

	rule, err := getRuleByNit(ctx, companyId, nit)
	if err != nil {
		code, reason := ClassifyByKeywords(config.Clasificacion(), companyId, name)
		if account, err := GetAccountByCode(ctx, code); err == nil {
			rule = &AccountingRule{
				CompanyId:      companyId,
				ThirdPartyNit:  nit,
				ThirdPartyName: name,
				AccountId:      account.ID,
				CreatedByUser:  utils.NewFalse(),
			}
			rule.UpdateStatistics(amount)
			if err := db.WithContext(ctx).Create(rule).Error; err != nil {
				return nil, err
			}
		}
		return &Classification{AccountCode: code, IsAnomalous: false, Reason: reason}, nil
	}

	account, err := utils.FetchSingleModel[Account](ctx, rule.AccountId)
	if err != nil {
		return nil, err
	}

	if anomalous, deviation := rule.IsAmountAnomaly(amount); anomalous {
		reason := fmt.Sprintf(
			"monto %s se desvía %s%% del promedio %s para %s",
			amount.StringFixed(2),
			deviation.Mul(decimal.NewFromInt(100)).StringFixed(0),
			rule.AverageAmount.Decimal.StringFixed(2),
			rule.ThirdPartyName,
		)
		return &Classification{AccountCode: account.Code, IsAnomalous: true, Reason: reason}, nil
	}

	rule.UpdateStatistics(amount)
	if err := db.WithContext(ctx).Save(rule).Error; err != nil {
		return nil, err
	}

	reason := fmt.Sprintf("regla aprendida para %s (confianza %d)", rule.ThirdPartyName, rule.ConfidenceScore)
	return &Classification{AccountCode: account.Code, IsAnomalous: false, Reason: reason}, nil
}

// LearnFromEdit records a user reassigning a movement's account. This is the
// only path that may change which account a rule points to: heuristic
// classification never overwrites an existing rule.
func LearnFromEdit(ctx context.Context, movementId int, newAccountId int) (bool, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return false, errors.New("company id is required")
	}

	db := config.GetDB()

	movement, err := utils.FetchSingleModel[Movement](ctx, movementId, "ThirdParty")
	if err != nil {
		return false, err
	}
	// The movement must belong to the context company before any rule learns
	// from it.
	if _, err := utils.FetchModel[Transaction](ctx, companyId, movement.TransactionId); err != nil {
		return false, err
	}
	if movement.ThirdParty == nil {
		return false, errors.New("movement has no third party")
	}
	if err := utils.ValidateResourceId[Account](ctx, companyId, newAccountId); err != nil {
		return false, errors.New("account not found")
	}

	amount := movement.Debit
	if amount.IsZero() {
		amount = movement.Credit
	}
	nit := movement.ThirdParty.Nit

	mu := lockRuleKey(companyId, nit)
	mu.Lock()
	defer mu.Unlock()

	rule, err := getRuleByNit(ctx, companyId, nit)
	if err != nil {
		rule = &AccountingRule{
			CompanyId:      companyId,
			ThirdPartyNit:  nit,
			ThirdPartyName: movement.ThirdParty.DisplayName(),
			AccountId:      newAccountId,
			CreatedByUser:  utils.NewTrue(),
		}
		rule.UpdateStatistics(amount)
		if err := db.WithContext(ctx).Create(rule).Error; err != nil {
			return false, err
		}
		return true, nil
	}

	rule.AccountId = newAccountId
	rule.ThirdPartyName = movement.ThirdParty.DisplayName()
	rule.CreatedByUser = utils.NewTrue()
	rule.UpdateStatistics(amount)
	if err := db.WithContext(ctx).Save(rule).Error; err != nil {
		return false, err
	}
	return true, nil
}
