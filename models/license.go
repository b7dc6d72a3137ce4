package models

import (
	"context"
	"errors"
	"time"

	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/utils"
)

// License gates a company's access to the API. One active license per
// company; expired licenses stay on record.
type License struct {
	ID        int         `gorm:"primary_key" json:"id"`
	CompanyId string      `gorm:"index;size:36;not null" json:"company_id"`
	Type      LicenseType `gorm:"type:enum('TRIAL','BASIC','PRO','ENTERPRISE');size:20;not null;default:'TRIAL'" json:"type"`
	StartsAt  time.Time   `gorm:"not null" json:"starts_at"`
	ExpiresAt time.Time   `gorm:"index;not null" json:"expires_at"`
	IsActive  *bool       `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewLicense struct {
	CompanyId string      `json:"company_id" binding:"required"`
	Type      LicenseType `json:"type" binding:"required"`
	StartsAt  time.Time   `json:"starts_at" binding:"required"`
	ExpiresAt time.Time   `json:"expires_at" binding:"required"`
}

func (l *License) IsValid(now time.Time) bool {
	if l.IsActive == nil || !*l.IsActive {
		return false
	}
	return !now.Before(l.StartsAt) && now.Before(l.ExpiresAt)
}

func CreateLicense(ctx context.Context, input *NewLicense) (*License, error) {

	if !input.ExpiresAt.After(input.StartsAt) {
		return nil, errors.New("expiry must be after start")
	}

	license := License{
		CompanyId: input.CompanyId,
		Type:      input.Type,
		StartsAt:  input.StartsAt,
		ExpiresAt: input.ExpiresAt,
		IsActive:  utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&license).Error; err != nil {
		return nil, err
	}
	return &license, nil
}

// HasValidLicense reports whether the company holds a currently valid
// license. Used by the request middleware to gate every company-scoped call.
func HasValidLicense(ctx context.Context, companyId string) (bool, error) {

	db := config.GetDB()
	var licenses []*License
	err := db.WithContext(ctx).
		Where("company_id = ? AND is_active = ?", companyId, true).
		Find(&licenses).Error
	if err != nil {
		return false, err
	}

	now := time.Now()
	for _, l := range licenses {
		if l.IsValid(now) {
			return true, nil
		}
	}
	return false, nil
}

func GetLicenses(ctx context.Context, companyId string) ([]*License, error) {
	db := config.GetDB()
	var results []*License
	err := db.WithContext(ctx).
		Where("company_id = ?", companyId).
		Order("expires_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
