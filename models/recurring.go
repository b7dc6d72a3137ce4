package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/utils"
	"github.com/shopspring/decimal"
)

// RecurringTransaction is a monthly entry template: on its day of month a
// real comprobante is generated from the templates. LastGenerated makes the
// batch trigger idempotent per month.
type RecurringTransaction struct {
	ID            int                          `gorm:"primary_key" json:"id"`
	CompanyId     string                       `gorm:"index;size:36;not null" json:"company_id"`
	Concept       string                       `gorm:"size:500;not null" json:"concept" binding:"required"`
	DayOfMonth    int                          `gorm:"not null" json:"day_of_month" binding:"required"`
	IsActive      *bool                        `gorm:"not null;default:true" json:"is_active"`
	LastGenerated *time.Time                   `json:"last_generated"`
	Templates     []RecurringMovementTemplate  `gorm:"constraint:OnDelete:CASCADE" json:"templates"`
	CreatedAt     time.Time                    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time                    `gorm:"autoUpdateTime" json:"updated_at"`
}

type RecurringMovementTemplate struct {
	ID                     int             `gorm:"primary_key" json:"id"`
	RecurringTransactionId int             `gorm:"index;not null" json:"recurring_transaction_id"`
	AccountId              int             `gorm:"index;not null" json:"account_id"`
	ThirdPartyId           int             `gorm:"index;not null" json:"third_party_id"`
	Debit                  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"debit"`
	Credit                 decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"credit"`
	Description            string          `gorm:"size:500" json:"description"`
}

type NewRecurringTransaction struct {
	Concept    string         `json:"concept" binding:"required"`
	DayOfMonth int            `json:"day_of_month" binding:"required"`
	Movements  []*NewMovement `json:"movements" binding:"required"`
}

func CreateRecurringTransaction(ctx context.Context, input *NewRecurringTransaction) (*RecurringTransaction, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	if input.DayOfMonth < 1 || input.DayOfMonth > 28 {
		return nil, errors.New("day of month must be between 1 and 28")
	}

	// Templates go through the same validation as real movements.
	movements, err := receiveMovements(input.Movements)
	if err != nil {
		return nil, err
	}
	if _, err := validateMovementRefs(ctx, companyId, movements); err != nil {
		return nil, err
	}

	templates := make([]RecurringMovementTemplate, 0, len(movements))
	for _, m := range movements {
		templates = append(templates, RecurringMovementTemplate{
			AccountId:    m.AccountId,
			ThirdPartyId: m.ThirdPartyId,
			Debit:        m.Debit,
			Credit:       m.Credit,
			Description:  m.Description,
		})
	}

	recurring := RecurringTransaction{
		CompanyId:  companyId,
		Concept:    input.Concept,
		DayOfMonth: input.DayOfMonth,
		IsActive:   utils.NewTrue(),
		Templates:  templates,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&recurring).Error; err != nil {
		return nil, err
	}
	return &recurring, nil
}

func DeleteRecurringTransaction(ctx context.Context, id int) (*RecurringTransaction, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	recurring, err := utils.FetchModel[RecurringTransaction](ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	if err := tx.Where("recurring_transaction_id = ?", id).
		Delete(&RecurringMovementTemplate{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Delete(recurring).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return recurring, nil
}

func GetRecurringTransactions(ctx context.Context) ([]*RecurringTransaction, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	return utils.FetchAllModels[RecurringTransaction](ctx, companyId, "Templates")
}

// isDue reports whether the schedule should fire for asOf: the day has
// arrived and nothing was generated for asOf's month yet.
func (r *RecurringTransaction) isDue(asOf time.Time) bool {
	if r.IsActive == nil || !*r.IsActive {
		return false
	}
	if asOf.Day() < r.DayOfMonth {
		return false
	}
	if r.LastGenerated == nil {
		return true
	}
	return r.LastGenerated.Year() != asOf.Year() || r.LastGenerated.Month() != asOf.Month()
}

// GenerateDueTransactions posts a comprobante for every schedule due as of
// the given date and stamps LastGenerated. Safe to call repeatedly: a month
// already generated is skipped.
func GenerateDueTransactions(ctx context.Context, asOf time.Time) (int, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return 0, errors.New("company id is required")
	}

	schedules, err := GetRecurringTransactions(ctx)
	if err != nil {
		return 0, err
	}

	db := config.GetDB()
	generated := 0
	for _, schedule := range schedules {
		if !schedule.isDue(asOf) {
			continue
		}

		movements := make([]*NewMovement, 0, len(schedule.Templates))
		for _, t := range schedule.Templates {
			movements = append(movements, &NewMovement{
				AccountId:    t.AccountId,
				ThirdPartyId: t.ThirdPartyId,
				Debit:        t.Debit,
				Credit:       t.Credit,
				Description:  t.Description,
			})
		}

		input := NewTransaction{
			Date:      asOf,
			Concept:   fmt.Sprintf("%s (%s)", schedule.Concept, asOf.Format("2006-01")),
			Movements: movements,
		}
		if _, err := CreateTransaction(ctx, &input); err != nil {
			return generated, err
		}

		if err := db.WithContext(ctx).Model(schedule).
			Update("last_generated", asOf).Error; err != nil {
			return generated, err
		}
		generated++
	}
	return generated, nil
}
