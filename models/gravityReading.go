package models

import (
	"context"
	"time"

	"github.com/brewcrafthq/brewery_backend/config"
	"github.com/brewcrafthq/brewery_backend/utils"
	"github.com/shopspring/decimal"
)

// GravityReading is an immutable fermentation-progress fact. Rows are only
// ever appended; there is no update or delete path.
type GravityReading struct {
	ID          int              `gorm:"primary_key" json:"id"`
	BreweryId   string           `gorm:"index;not null" json:"brewery_id"`
	BatchId     int              `gorm:"index;not null" json:"batch_id"`
	Gravity     decimal.Decimal  `gorm:"type:decimal(6,4);not null" json:"gravity"`
	Temperature *decimal.Decimal `gorm:"type:decimal(6,2)" json:"temperature"`
	Notes       string           `gorm:"type:text" json:"notes"`
	RecordedBy  string           `gorm:"size:100" json:"recorded_by"`
	RecordedAt  time.Time        `gorm:"not null;index" json:"recorded_at"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

func ListGravityReadings(ctx context.Context, batchId int) ([]*GravityReading, error) {
	breweryId, ok := utils.GetBreweryIdFromContext(ctx)
	if !ok || breweryId == "" {
		return nil, utils.NewInvalidInputError("brewery id is required")
	}

	// batch must exist and belong to the caller's brewery
	if err := utils.ValidateResourceId[Batch](ctx, breweryId, batchId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*GravityReading
	err := db.WithContext(ctx).
		Where("brewery_id = ? AND batch_id = ?", breweryId, batchId).
		Order("recorded_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
