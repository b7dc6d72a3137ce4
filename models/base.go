package models

import (
	"context"
	"errors"

	"github.com/peppinicontable/contable_backend/config"
	"github.com/peppinicontable/contable_backend/utils"
)

// GetResource fetches a company-scoped row by id using the company id from ctx.
func GetResource[T any](ctx context.Context, id int, associations ...string) (*T, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return nil, errors.New("company id is required")
	}
	return utils.FetchModel[T](ctx, companyId, id, associations...)
}

// InvalidateCompanyCache drops cached dashboard data for a company. The ledger
// only emits the invalidation signal; cache policy lives with the cache.
// Failures are logged, never surfaced: a stale dashboard must not fail a write.
func InvalidateCompanyCache(companyId string) {
	if err := config.RemoveRedisKey("dashboard_" + companyId); err != nil {
		config.LogError(config.GetLogger(), "models", "InvalidateCompanyCache", companyId, nil, err)
	}
}
