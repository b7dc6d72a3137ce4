package models

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/utils"
	"gorm.io/gorm"
)

// AuditLog is the append-only record of ledger changes. Rows are written
// once per event from model hooks and never updated.
type AuditLog struct {
	ID            int         `gorm:"primary_key" json:"id"`
	CompanyId     string      `gorm:"index;size:36;not null" json:"company_id"`
	Action        AuditAction `gorm:"size:10;not null" json:"action"`
	Before        string      `gorm:"type:text" json:"before"`
	After         string      `gorm:"type:text" json:"after"`
	Description   string      `gorm:"type:text" json:"description"`
	ReferenceId   int         `gorm:"index" json:"reference_id"`
	ReferenceType string      `gorm:"size:255" json:"reference_type"`
	UserId        int         `gorm:"index" json:"user_id"`
	UserName      string      `gorm:"size:100" json:"user_name"`
	CreatedAt     time.Time   `gorm:"autoCreateTime" json:"created_at"`
}

func saveAudit(tx *gorm.DB,
	action AuditAction,
	referenceId int,
	referenceType string,
	before interface{},
	after interface{},
	description string) error {

	ctx := tx.Statement.Context

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return errors.New("company id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)

	b, _ := json.Marshal(before)
	a, _ := json.Marshal(after)

	audit := AuditLog{
		CompanyId:     companyId,
		Action:        action,
		Before:        string(b),
		After:         string(a),
		Description:   description,
		ReferenceId:   referenceId,
		ReferenceType: referenceType,
		UserId:        userId,
		UserName:      userName,
	}
	return tx.Create(&audit).Error
}

func SaveAuditCreate(tx *gorm.DB, id int, obj interface{}, description string) error {
	return saveAudit(tx, AuditActionCreate, id, tx.Statement.Table, nil, obj, description)
}

func SaveAuditUpdate(tx *gorm.DB, id int, before interface{}, description string) error {
	return saveAudit(tx, AuditActionUpdate, id, tx.Statement.Table, before, tx.Statement.Dest, description)
}

func SaveAuditDelete(tx *gorm.DB, id int, obj interface{}, description string) error {
	return saveAudit(tx, AuditActionDelete, id, tx.Statement.Table, obj, nil, description)
}

func GetAuditLogs(ctx context.Context, referenceId *int, referenceType *string, userId *int) ([]*AuditLog, error) {

	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}

	db := config.GetDB()
	var results []*AuditLog

	dbCtx := db.WithContext(ctx).Where("company_id = ?", companyId)
	if referenceId != nil && *referenceId > 0 {
		dbCtx = dbCtx.Where("reference_id = ?", referenceId)
	}
	if referenceType != nil && len(*referenceType) > 0 {
		dbCtx = dbCtx.Where("reference_type = ?", referenceType)
	}
	if userId != nil && *userId > 0 {
		dbCtx = dbCtx.Where("user_id = ?", userId)
	}
	if err := dbCtx.Order("created_at DESC").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
