package models

import (
	"context"
	"fmt"

	"github.com/peppinicontable/contable_backend/config"
	"gorm.io/gorm"
)

// WithPostingLock serializes ledger posting per company across instances
// using MySQL advisory locks, so comprobante number allocation cannot
// interleave and produce gaps or collisions.
//
// GET_LOCK is session-scoped and survives COMMIT, so the lock must be taken
// and released on one pinned connection, with the posting transaction opened
// on that same connection in between. Releasing on the transaction handle
// after commit would hit a finished tx and never reach the server.
func WithPostingLock(ctx context.Context, companyId string, fn func(tx *gorm.DB) error) error {
	lockName := fmt.Sprintf("posting:%s", companyId)
	db := config.GetDB()

	return db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		var acquired int
		if err := conn.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&acquired).Error; err != nil {
			return err
		}
		if acquired != 1 {
			return fmt.Errorf("could not acquire posting lock for company_id=%s", companyId)
		}
		defer func() {
			var released int
			if err := conn.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&released).Error; err != nil {
				config.LogError(config.GetLogger(), "models", "WithPostingLock", companyId, lockName, err)
			}
		}()

		return conn.Transaction(fn)
	})
}
