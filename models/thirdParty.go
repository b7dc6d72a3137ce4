package models

import (
	"context"
	"errors"
	"time"

	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/utils"
)

// ThirdParty is a tercero: a customer, supplier or other counterpart
// identified by NIT. Terceros are soft deleted so historic movements keep
// their reference.
type ThirdParty struct {
	ID        int        `gorm:"primary_key" json:"id"`
	CompanyId string     `gorm:"index;size:36;not null" json:"company_id"`
	Nit       string     `gorm:"index;size:30;not null" json:"nit" binding:"required"`
	Name      string     `gorm:"index;size:255;not null" json:"name" binding:"required"`
	Alias     string     `gorm:"size:255" json:"alias"`
	Address   string     `gorm:"size:255" json:"address"`
	Phone     string     `gorm:"size:50" json:"phone"`
	Email     string     `gorm:"size:255" json:"email"`
	IsDeleted *bool      `gorm:"not null;default:false" json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewThirdParty struct {
	Nit     string `json:"nit" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Alias   string `json:"alias"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

// DisplayName prefers the alias when one is set.
func (t *ThirdParty) DisplayName() string {
	if t.Alias != "" {
		return t.Alias
	}
	return t.Name
}

func (input *NewThirdParty) validate(ctx context.Context, companyId string, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[ThirdParty](ctx, companyId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidateUnique[ThirdParty](ctx, companyId, "nit", input.Nit, id); err != nil {
		return err
	}
	return nil
}

func CreateThirdParty(ctx context.Context, input *NewThirdParty) (*ThirdParty, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := input.validate(ctx, companyId, 0); err != nil {
		return nil, err
	}

	thirdParty := ThirdParty{
		CompanyId: companyId,
		Nit:       input.Nit,
		Name:      input.Name,
		Alias:     input.Alias,
		Address:   input.Address,
		Phone:     input.Phone,
		Email:     input.Email,
		IsDeleted: utils.NewFalse(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&thirdParty).Error; err != nil {
		return nil, err
	}
	return &thirdParty, nil
}

func UpdateThirdParty(ctx context.Context, id int, input *NewThirdParty) (*ThirdParty, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	if err := input.validate(ctx, companyId, id); err != nil {
		return nil, err
	}

	thirdParty, err := utils.FetchModel[ThirdParty](ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	thirdParty.Nit = input.Nit
	thirdParty.Name = input.Name
	thirdParty.Alias = input.Alias
	thirdParty.Address = input.Address
	thirdParty.Phone = input.Phone
	thirdParty.Email = input.Email

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(thirdParty).Error; err != nil {
		return nil, err
	}
	return thirdParty, nil
}

// SoftDeleteThirdParty marks the tercero deleted without removing the row, so
// existing movements keep resolving.
func SoftDeleteThirdParty(ctx context.Context, id int) (*ThirdParty, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	thirdParty, err := utils.FetchModel[ThirdParty](ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	thirdParty.IsDeleted = utils.NewTrue()
	thirdParty.DeletedAt = &now

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(thirdParty).Error; err != nil {
		return nil, err
	}
	return thirdParty, nil
}

func RestoreThirdParty(ctx context.Context, id int) (*ThirdParty, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	thirdParty, err := utils.FetchModel[ThirdParty](ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	thirdParty.IsDeleted = utils.NewFalse()
	thirdParty.DeletedAt = nil

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(thirdParty).Error; err != nil {
		return nil, err
	}
	return thirdParty, nil
}

func GetThirdParty(ctx context.Context, id int) (*ThirdParty, error) {
	return GetResource[ThirdParty](ctx, id)
}

func GetThirdPartyByNit(ctx context.Context, nit string) (*ThirdParty, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	db := config.GetDB()
	var result ThirdParty
	err := db.WithContext(ctx).Where("company_id = ? AND nit = ?", companyId, nit).First(&result).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &result, nil
}

func GetThirdParties(ctx context.Context, keyword *string, includeDeleted bool) ([]*ThirdParty, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	var results []*ThirdParty

	dbCtx := db.WithContext(ctx).Where("company_id = ?", companyId)
	if !includeDeleted {
		dbCtx = dbCtx.Where("is_deleted = ?", false)
	}
	if keyword != nil && len(*keyword) > 0 {
		kw := "%" + *keyword + "%"
		dbCtx = dbCtx.Where("name LIKE ? OR alias LIKE ? OR nit LIKE ?", kw, kw, kw)
	}
	if err := dbCtx.Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
