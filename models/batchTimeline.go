package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/brewcrafthq/brewery_backend/config"
	"github.com/brewcrafthq/brewery_backend/utils"
)

// BatchTimeline is the append-only audit trail attached to a batch. Every
// lifecycle transition writes one entry inside the same transaction that
// performs the transition. Entries are never mutated.
type BatchTimeline struct {
	ID          int               `gorm:"primary_key" json:"id"`
	BreweryId   string            `gorm:"index;not null" json:"brewery_id"`
	BatchId     int               `gorm:"index;not null" json:"batch_id"`
	Type        TimelineEntryType `gorm:"size:30;not null" json:"type"`
	Title       string            `gorm:"size:255;not null" json:"title"`
	Description string            `gorm:"type:text" json:"description"`
	Data        json.RawMessage   `gorm:"type:json" json:"data"`
	CreatedById int               `gorm:"index" json:"created_by_id"`
	CreatedBy   string            `gorm:"size:100" json:"created_by"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

// NewTimelineEntry builds an entry from context identity, marshalling data
// into the JSON payload column.
func NewTimelineEntry(ctx context.Context, batchId int, entryType TimelineEntryType, title string, description string, data interface{}) (*BatchTimeline, error) {
	breweryId, ok := utils.GetBreweryIdFromContext(ctx)
	if !ok || breweryId == "" {
		return nil, utils.NewInvalidInputError("brewery id is required")
	}
	userId, _ := utils.GetUserIdFromContext(ctx)
	userName, _ := utils.GetUserNameFromContext(ctx)

	var payload json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		payload = b
	}

	return &BatchTimeline{
		BreweryId:   breweryId,
		BatchId:     batchId,
		Type:        entryType,
		Title:       title,
		Description: description,
		Data:        payload,
		CreatedById: userId,
		CreatedBy:   userName,
	}, nil
}

func GetBatchTimeline(ctx context.Context, batchId int) ([]*BatchTimeline, error) {
	breweryId, ok := utils.GetBreweryIdFromContext(ctx)
	if !ok || breweryId == "" {
		return nil, utils.NewInvalidInputError("brewery id is required")
	}

	// batch must exist and belong to the caller's brewery
	if err := utils.ValidateResourceId[Batch](ctx, breweryId, batchId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*BatchTimeline
	err := db.WithContext(ctx).
		Where("brewery_id = ? AND batch_id = ?", breweryId, batchId).
		Order("created_at DESC").Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
