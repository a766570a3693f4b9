package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is the scheduling unit binding one or more batches to tank time.
// A split spreads one batch across several lots; a blend joins several
// batches into one lot.
type Lot struct {
	ID          int        `gorm:"primary_key" json:"id"`
	BreweryId   string     `gorm:"index;not null" json:"brewery_id"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type LotBatch struct {
	ID            int             `gorm:"primary_key" json:"id"`
	BreweryId     string          `gorm:"index;not null" json:"brewery_id"`
	LotId         int             `gorm:"index;not null" json:"lot_id"`
	BatchId       int             `gorm:"index;not null" json:"batch_id"`
	VolumePortion decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"volume_portion"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
