package models

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/utils"
	"gorm.io/gorm"
)

type Company struct {
	ID                uuid.UUID `gorm:"primary_key;type:char(36)" json:"id"`
	Name              string    `gorm:"index;size:200;not null" json:"name" binding:"required"`
	Nit               string    `gorm:"uniqueIndex;size:20;not null" json:"nit" binding:"required"`
	TransactionPrefix string    `gorm:"size:10;not null;default:'TRX'" json:"transaction_prefix"`
	Address           string    `gorm:"type:text" json:"address"`
	Phone             string    `gorm:"size:20" json:"phone"`
	Email             string    `gorm:"size:255" json:"email"`
	IsActive          *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCompany struct {
	Name              string `json:"name" binding:"required"`
	Nit               string `json:"nit" binding:"required"`
	TransactionPrefix string `json:"transaction_prefix"`
	Address           string `json:"address"`
	Phone             string `json:"phone"`
	Email             string `json:"email"`
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.TransactionPrefix == "" {
		c.TransactionPrefix = "TRX"
	}
	return nil
}

func CreateCompany(ctx context.Context, input *NewCompany) (*Company, error) {

	db := config.GetDB()
	var count int64
	if err := db.WithContext(ctx).Model(&Company{}).Where("nit = ?", input.Nit).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errors.New("duplicate nit")
	}

	company := Company{
		Name:              input.Name,
		Nit:               input.Nit,
		TransactionPrefix: input.TransactionPrefix,
		Address:           input.Address,
		Phone:             input.Phone,
		Email:             input.Email,
		IsActive:          utils.NewTrue(),
	}
	tx := db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(&company).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	// New companies get the starter chart and a trial license.
	if _, err := CreateDefaultAccounts(tx, ctx, company.ID.String()); err != nil {
		return nil, err
	}
	trial := License{
		CompanyId: company.ID.String(),
		Type:      LicenseTypeTrial,
		StartsAt:  time.Now(),
		ExpiresAt: time.Now().AddDate(0, 1, 0),
		IsActive:  utils.NewTrue(),
	}
	if err := tx.Create(&trial).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func GetCompany(ctx context.Context) (*Company, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	db := config.GetDB()
	var company Company
	if err := db.WithContext(ctx).Where("id = ?", companyId).First(&company).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &company, nil
}

func GetCompanies(ctx context.Context) ([]*Company, error) {
	db := config.GetDB()
	var results []*Company
	if err := db.WithContext(ctx).Where("is_active = ?", true).Order("name").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// FormatTransactionNumber renders a comprobante number: prefix plus a
// five-digit zero-padded sequence.
func FormatTransactionNumber(prefix string, n int) string {
	return fmt.Sprintf("%s-%05d", prefix, n)
}

// ParseNumberSuffix extracts the sequence from a comprobante number.
// Returns 0 for anything unparseable, which restarts the series at 1.
func ParseNumberSuffix(number string) int {
	idx := strings.LastIndex(number, "-")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(number[idx+1:])
	if err != nil {
		return 0
	}
	return n
}

// nextTransactionNumber allocates the next comprobante number for the
// company's prefix. Must run inside a posting-locked transaction: the scan of
// the last used number and the insert that consumes it cannot interleave with
// another allocation for the same company.
func nextTransactionNumber(ctx context.Context, tx *gorm.DB, company *Company) (string, error) {
	var last string
	err := tx.WithContext(ctx).Model(&Transaction{}).
		Where("company_id = ? AND number LIKE ?", company.ID.String(), company.TransactionPrefix+"-%").
		Order("id DESC").Limit(1).
		Pluck("number", &last).Error
	if err != nil {
		return "", err
	}
	return FormatTransactionNumber(company.TransactionPrefix, ParseNumberSuffix(last)+1), nil
}
