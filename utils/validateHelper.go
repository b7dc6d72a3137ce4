package utils

import (
	"context"
	"errors"
	"reflect"

	"github.com/peppinicontable/contable_backend/config"
)

func ResourceCountWhere[T any](ctx context.Context, companyId string, cond string, values ...interface{}) (int64, error) {
	db := config.GetDB()
	var model T
	var count int64
	err := db.WithContext(ctx).Model(&model).
		Where("company_id = ?", companyId).
		Where(cond, values...).
		Count(&count).Error
	return count, err
}

// check if id exists, using ctx's company_id in WHERE, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, companyId string, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, companyId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

func ValidateUnique[T any](ctx context.Context, companyId string, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, companyId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, companyId, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New("duplicate " + column)
	}
	return nil
}
