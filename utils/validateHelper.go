package utils

import (
	"context"
	"reflect"

	"github.com/brewcrafthq/brewery_backend/config"
)

// check if id exists, using ctx's brewery_id in WHERE, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, breweryId string, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, breweryId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

func ValidateUnique[T any](ctx context.Context, breweryId string, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, breweryId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, breweryId, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return NewInvalidInputError("duplicate " + column)
	}
	return nil
}

// count records, using WHERE brewery_id = ? AND $condition
func ResourceCountWhere[T any](ctx context.Context, breweryId string, condition string, value ...interface{}) (int64, error) {
	var model T

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&model)
	var count int64
	if breweryId != "" {
		dbCtx = dbCtx.Where("brewery_id = ?", breweryId)
	}
	dbCtx = dbCtx.Where(condition, value...)
	if err := dbCtx.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
