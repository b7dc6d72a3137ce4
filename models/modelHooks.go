package models

import (
	"fmt"

	"github.com/peppinicontable/contable_backend/config"
	"gorm.io/gorm"
)

// Audit writes are fire-and-forget: a failed log line is logged and
// swallowed so it can never fail the ledger write it describes.

func (t *Transaction) AfterCreate(tx *gorm.DB) error {
	description := fmt.Sprintf("Comprobante %s creado por valor de %s.", t.Number, t.TotalDebit().StringFixed(2))
	if err := SaveAuditCreate(tx, t.ID, t, description); err != nil {
		config.LogError(config.GetLogger(), "models", "Transaction.AfterCreate", "save audit", t.ID, err)
	}
	return nil
}

func (t *Transaction) BeforeUpdate(tx *gorm.DB) error {
	description := fmt.Sprintf("Comprobante %s actualizado.", t.Number)
	if tx.Statement.Changed("Status") {
		description = fmt.Sprintf("Comprobante %s anulado.", t.Number)
	}
	if err := SaveAuditUpdate(tx, t.ID, t, description); err != nil {
		config.LogError(config.GetLogger(), "models", "Transaction.BeforeUpdate", "save audit", t.ID, err)
	}
	return nil
}

func (t *Transaction) AfterDelete(tx *gorm.DB) error {
	description := fmt.Sprintf("Comprobante %s eliminado.", t.Number)
	if err := SaveAuditDelete(tx, t.ID, t, description); err != nil {
		config.LogError(config.GetLogger(), "models", "Transaction.AfterDelete", "save audit", t.ID, err)
	}
	return nil
}

func (t *ThirdParty) AfterCreate(tx *gorm.DB) error {
	description := fmt.Sprintf("Tercero %s (%s) creado.", t.DisplayName(), t.Nit)
	if err := SaveAuditCreate(tx, t.ID, t, description); err != nil {
		config.LogError(config.GetLogger(), "models", "ThirdParty.AfterCreate", "save audit", t.ID, err)
	}
	return nil
}

func (r *AccountingRule) AfterCreate(tx *gorm.DB) error {
	description := fmt.Sprintf("Regla contable creada para %s (%s).", r.ThirdPartyName, r.ThirdPartyNit)
	if err := SaveAuditCreate(tx, r.ID, r, description); err != nil {
		config.LogError(config.GetLogger(), "models", "AccountingRule.AfterCreate", "save audit", r.ID, err)
	}
	return nil
}

func (r *AccountingRule) AfterDelete(tx *gorm.DB) error {
	description := fmt.Sprintf("Regla contable eliminada para %s (%s).", r.ThirdPartyName, r.ThirdPartyNit)
	if err := SaveAuditDelete(tx, r.ID, r, description); err != nil {
		config.LogError(config.GetLogger(), "models", "AccountingRule.AfterDelete", "save audit", r.ID, err)
	}
	return nil
}
