package models

import (
	"context"
	"time"

	"github.com/brewcrafthq/brewery_backend/config"
	"github.com/brewcrafthq/brewery_backend/utils"
	"github.com/shopspring/decimal"
)

type Batch struct {
	ID              int              `gorm:"primary_key" json:"id"`
	BreweryId       string           `gorm:"index;not null" json:"brewery_id"`
	RecipeId        int              `gorm:"index;not null" json:"recipe_id"`
	Name            string           `gorm:"size:100" json:"name"`
	Volume          decimal.Decimal  `gorm:"type:decimal(12,2);not null" json:"volume"`
	Status          BatchStatus      `gorm:"size:20;not null;index" json:"status"`
	OriginalGravity *decimal.Decimal `gorm:"type:decimal(6,4)" json:"original_gravity"`
	FinalGravity    *decimal.Decimal `gorm:"type:decimal(6,4)" json:"final_gravity"`
	BrewedAt        *time.Time       `json:"brewed_at"`
	CancelReason    string           `gorm:"size:255" json:"cancel_reason"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewBatch struct {
	RecipeId        int              `json:"recipe_id" binding:"required"`
	Name            string           `json:"name"`
	Volume          decimal.Decimal  `json:"volume" binding:"required"`
	OriginalGravity *decimal.Decimal `json:"original_gravity"`
}

func CreateBatch(ctx context.Context, input *NewBatch) (*Batch, error) {

	breweryId, ok := utils.GetBreweryIdFromContext(ctx)
	if !ok || breweryId == "" {
		return nil, utils.NewInvalidInputError("brewery id is required")
	}

	if !input.Volume.IsPositive() {
		return nil, utils.NewInvalidInputError("volume must be positive")
	}

	batch := Batch{
		BreweryId:       breweryId,
		RecipeId:        input.RecipeId,
		Name:            input.Name,
		Volume:          input.Volume,
		Status:          BatchStatusPlanned,
		OriginalGravity: input.OriginalGravity,
	}

	// db action
	db := config.GetDB()
	err := db.WithContext(ctx).Create(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func GetBatch(ctx context.Context, id int) (*Batch, error) {
	breweryId, ok := utils.GetBreweryIdFromContext(ctx)
	if !ok || breweryId == "" {
		return nil, utils.NewInvalidInputError("brewery id is required")
	}
	return utils.FetchModel[Batch](ctx, breweryId, id)
}

func ListBatches(ctx context.Context, status *BatchStatus) ([]*Batch, error) {
	breweryId, ok := utils.GetBreweryIdFromContext(ctx)
	if !ok || breweryId == "" {
		return nil, utils.NewInvalidInputError("brewery id is required")
	}

	db := config.GetDB()
	var results []*Batch

	dbCtx := db.WithContext(ctx).Where("brewery_id = ?", breweryId)
	if status != nil && len(*status) > 0 {
		dbCtx = dbCtx.Where("status = ?", *status)
	}
	err := dbCtx.Order("created_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
