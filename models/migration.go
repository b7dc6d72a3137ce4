package models

import (
	"github.com/peppinicontable/contable_backend/config"
)

// Migrate creates or updates the schema for every model.
func Migrate() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&Company{},
		&User{},
		&License{},
		&Account{},
		&ThirdParty{},
		&Transaction{},
		&Movement{},
		&AccountingRule{},
		&AuditLog{},
		&RecurringTransaction{},
		&RecurringMovementTemplate{},
	)
}
