package utils

import (
	"context"

	"github.com/brewcrafthq/brewery_backend/config"
)

/* DB fetching */

// fetch model from db
// (ctx's brewery_id is used in query's WHERE, may return RecordNotFound)
func FetchModel[T any](ctx context.Context, breweryId string, id int, associations ...string) (*T, error) {

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("brewery_id = ?", breweryId)
	// preloading
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		return nil, ErrorRecordNotFound
	}
	return &result, nil
}
