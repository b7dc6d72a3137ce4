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

// Account is a cuenta contable of the PUC (Plan Único de Cuentas). Tipo and
// naturaleza are derived from the code when not explicitly set; level always
// tracks the code length so hierarchy depth stays consistent.
type Account struct {
	ID          int         `gorm:"primary_key" json:"id"`
	CompanyId   string      `gorm:"index;size:36;not null" json:"company_id"`
	Code        string      `gorm:"index;size:20;not null" json:"code" binding:"required"`
	Name        string      `gorm:"index;size:255;not null" json:"name" binding:"required"`
	Tipo        AccountType `gorm:"type:enum('ACTIVO','PASIVO','PATRIMONIO','INGRESO','GASTO','COSTO','ORDEN_DEUDOR','ORDEN_ACREEDOR');index;size:20" json:"tipo"`
	Naturaleza  Naturaleza  `gorm:"type:enum('DEBITO','CREDITO');size:10" json:"naturaleza"`
	ParentId    int         `gorm:"index" json:"parent_id"`
	Level       int         `gorm:"index;not null;default:1" json:"level"`
	IsGroup     *bool       `gorm:"not null;default:false" json:"is_group"`
	IsActive    *bool       `gorm:"not null;default:true" json:"is_active"`
	Description string      `gorm:"type:text" json:"description"`
	CreatedAt   time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewAccount struct {
	Code        string      `json:"code" binding:"required"`
	Name        string      `json:"name" binding:"required"`
	Tipo        AccountType `json:"tipo"`
	Naturaleza  Naturaleza  `json:"naturaleza"`
	ParentId    int         `json:"parent_id"`
	IsGroup     *bool       `json:"is_group"`
	Description string      `json:"description"`
}

// BeforeSave derives tipo and naturaleza when unset and recomputes level from
// the code. Level is not independently settable.
func (a *Account) BeforeSave(tx *gorm.DB) error {
	if a.Tipo == "" {
		a.Tipo = DetectAccountType(a.Code)
	}
	if a.Naturaleza == "" {
		a.Naturaleza = DetectNaturaleza(a.Tipo)
	}
	if a.Code != "" {
		a.Level = len(a.Code)
	}
	return nil
}

func (a *Account) FullName() string {
	return a.Code + " - " + a.Name
}

// validate input for both create & update. (id = 0 for create)

func (input *NewAccount) validate(ctx context.Context, companyId string, id int) error {
	if id > 0 {
		if id == input.ParentId {
			return errors.New("self-parent not allowed")
		}
		if err := utils.ValidateResourceId[Account](ctx, companyId, id); err != nil {
			return err
		}
	}
	// code
	if err := utils.ValidateUnique[Account](ctx, companyId, "code", input.Code, id); err != nil {
		return err
	}
	if input.ParentId > 0 {
		if err := utils.ValidateResourceId[Account](ctx, companyId, input.ParentId); err != nil {
			return errors.New("parent not found")
		}
	}
	return nil
}

func CreateAccount(ctx context.Context, input *NewAccount) (*Account, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := input.validate(ctx, companyId, 0); err != nil {
		return nil, err
	}

	account := Account{
		CompanyId:   companyId,
		Code:        input.Code,
		Name:        input.Name,
		Tipo:        input.Tipo,
		Naturaleza:  input.Naturaleza,
		ParentId:    input.ParentId,
		IsGroup:     input.IsGroup,
		Description: input.Description,
		IsActive:    utils.NewTrue(),
	}
	if account.IsGroup == nil {
		account.IsGroup = utils.NewFalse()
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func UpdateAccount(ctx context.Context, id int, input *NewAccount) (*Account, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := input.validate(ctx, companyId, id); err != nil {
		return nil, err
	}

	account, err := utils.FetchModel[Account](ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	account.Code = input.Code
	account.Name = input.Name
	account.Tipo = input.Tipo
	account.Naturaleza = input.Naturaleza
	account.Description = input.Description
	if input.ParentId > 0 {
		account.ParentId = input.ParentId
	}
	if input.IsGroup != nil {
		account.IsGroup = input.IsGroup
	}

	db := config.GetDB()
	// Save (not Updates) so BeforeSave re-derives tipo/naturaleza/level.
	if err := db.WithContext(ctx).Save(account).Error; err != nil {
		return nil, err
	}
	return account, nil
}

func DeleteAccount(ctx context.Context, id int) (*Account, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()

	result, err := utils.FetchModel[Account](ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.WithContext(ctx).Model(&Account{}).
		Where("parent_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("this account has child account(s)")
	}

	if err := db.WithContext(ctx).Model(&Movement{}).
		Where("account_id = ?", id).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("this account has movements")
	}

	if err := db.WithContext(ctx).Delete(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

func GetAccount(ctx context.Context, id int) (*Account, error) {
	return GetResource[Account](ctx, id)
}

func GetAccounts(ctx context.Context, name *string, code *string) ([]*Account, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	var results []*Account

	dbCtx := db.WithContext(ctx).Where("company_id = ?", companyId)
	if name != nil && len(*name) > 0 {
		dbCtx = dbCtx.Where("name LIKE ?", "%"+*name+"%")
	}
	if code != nil && len(*code) > 0 {
		dbCtx = dbCtx.Where("code LIKE ?", *code+"%")
	}
	if err := dbCtx.Order("code").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// GetAccountByCode resolves an account by its PUC code within the company.
func GetAccountByCode(ctx context.Context, code string) (*Account, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	db := config.GetDB()
	var result Account
	err := db.WithContext(ctx).Where("company_id = ? AND code = ?", companyId, code).First(&result).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

// Balance sums the account's movements honoring its naturaleza: débito
// accounts grow with debits, crédito accounts with credits.
func (a *Account) Balance(ctx context.Context) (decimal.Decimal, error) {
	db := config.GetDB()
	var totals struct {
		TotalDebit  decimal.Decimal
		TotalCredit decimal.Decimal
	}
	err := db.WithContext(ctx).Model(&Movement{}).
		Select("COALESCE(SUM(debit),0) AS total_debit, COALESCE(SUM(credit),0) AS total_credit").
		Where("account_id = ?", a.ID).
		Scan(&totals).Error
	if err != nil {
		return decimal.Zero, err
	}
	if a.Naturaleza == NaturalezaDebito {
		return totals.TotalDebit.Sub(totals.TotalCredit), nil
	}
	return totals.TotalCredit.Sub(totals.TotalDebit), nil
}
