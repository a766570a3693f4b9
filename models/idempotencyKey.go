package models

import "time"

type IdempotencyStatus string

// Rows are written inside the planning transaction, so a key only ever
// lands once its operation committed.
const IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"

// IdempotencyKey provides durable, DB-backed idempotency for mutating
// scheduler operations. The redis result cache answers fast replays; this
// row is the backstop once the cache entry has expired.
// Unique constraint: (brewery_id, handler_name, request_key).
type IdempotencyKey struct {
	ID          int               `gorm:"primary_key" json:"id"`
	BreweryId   string            `gorm:"size:64;not null;index:uniq_idem,unique" json:"brewery_id"`
	HandlerName string            `gorm:"size:100;not null;index:uniq_idem,unique" json:"handler_name"`
	RequestKey  string            `gorm:"size:255;not null;index:uniq_idem,unique" json:"request_key"`
	Status      IdempotencyStatus `gorm:"size:20;not null;index" json:"status"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}
