package workflow

import (
	"context"
	"time"

	"github.com/bsm/redislock"
	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/models"
	"github.com/peppinicontable/contable_backend/utils"
)

// RunRecurringGeneration posts the due recurring entries for every company.
// A distributed lock keeps overlapping batch triggers from double posting;
// when the lock is held elsewhere the run is simply skipped. Generation is
// idempotent per month regardless, the lock just avoids wasted work.
func RunRecurringGeneration(ctx context.Context, asOf time.Time) {

	logger := config.GetLogger()

	locker := config.GetRedisLock()
	if locker != nil {
		lock, err := locker.Obtain(config.GetRedisContext(), "recurring-generation", 5*time.Minute, nil)
		if err == redislock.ErrNotObtained {
			logger.Info("recurring generation already running elsewhere, skipping")
			return
		}
		if err == nil {
			defer lock.Release(config.GetRedisContext())
		}
	}

	companies, err := models.GetCompanies(ctx)
	if err != nil {
		config.LogError(logger, "workflow", "RunRecurringGeneration", "list companies", nil, err)
		return
	}

	for _, company := range companies {
		companyCtx := utils.SetCompanyIdInContext(ctx, company.ID.String())
		generated, err := models.GenerateDueTransactions(companyCtx, asOf)
		if err != nil {
			config.LogError(logger, "workflow", "RunRecurringGeneration", "generate", company.ID.String(), err)
			continue
		}
		if generated > 0 {
			logger.WithField("companyId", company.ID.String()).
				WithField("generated", generated).
				Info("recurring entries posted")
		}
	}
}

// StartRecurringScheduler fires the generation run once a day until the
// context is cancelled.
func StartRecurringScheduler(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		RunRecurringGeneration(ctx, time.Now())
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				RunRecurringGeneration(ctx, time.Now())
			}
		}
	}()
}
