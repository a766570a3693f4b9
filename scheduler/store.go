package scheduler

import (
	"context"
	"time"

	"github.com/brewcrafthq/brewery_backend/models"
)

// Store is the data access boundary of the scheduler. The production
// implementation is GormStore (gormstore.go) over MySQL; tests run against an
// in-memory implementation. Every method is tenant-scoped: a row owned by
// another brewery behaves exactly like a missing row
// (utils.ErrorRecordNotFound).
//
// The scheduler is the only writer of tank assignments; all mutating paths
// go through InTransaction while holding the relevant tank locks.
type Store interface {
	// InTransaction runs fn against a transactional view of the store.
	// If fn returns an error nothing written inside it survives.
	InTransaction(ctx context.Context, fn func(tx Store) error) error

	GetTank(ctx context.Context, breweryId string, id int) (*models.Tank, error)
	ListTanks(ctx context.Context, breweryId string) ([]*models.Tank, error)
	UpdateTankStatus(ctx context.Context, breweryId string, id int, status models.TankStatus) error

	GetBatch(ctx context.Context, breweryId string, id int) (*models.Batch, error)
	ListBatchesByIds(ctx context.Context, breweryId string, ids []int) ([]*models.Batch, error)
	UpdateBatch(ctx context.Context, batch *models.Batch) error

	CreateLot(ctx context.Context, lot *models.Lot) error
	GetLot(ctx context.Context, breweryId string, id int) (*models.Lot, error)
	UpdateLot(ctx context.Context, lot *models.Lot) error
	CreateLotBatch(ctx context.Context, lotBatch *models.LotBatch) error
	ListLotBatches(ctx context.Context, breweryId string, lotId int) ([]*models.LotBatch, error)

	CreateAssignment(ctx context.Context, assignment *models.TankAssignment) error
	GetAssignment(ctx context.Context, breweryId string, id int) (*models.TankAssignment, error)
	UpdateAssignment(ctx context.Context, assignment *models.TankAssignment) error
	// ListOpenAssignments returns the tank's assignments with status
	// PLANNED or ACTIVE — the set the no-overlap invariant ranges over.
	ListOpenAssignments(ctx context.Context, breweryId string, tankId int) ([]*models.TankAssignment, error)
	ListAssignmentsForLot(ctx context.Context, breweryId string, lotId int) ([]*models.TankAssignment, error)
	// ListAssignmentsInRange returns assignments of any status whose
	// interval intersects [start, end).
	ListAssignmentsInRange(ctx context.Context, breweryId string, start, end time.Time) ([]*models.TankAssignment, error)

	CreateTransfer(ctx context.Context, transfer *models.TankTransfer) error
	GetTransfer(ctx context.Context, breweryId string, id int) (*models.TankTransfer, error)
	UpdateTransfer(ctx context.Context, transfer *models.TankTransfer) error
	ListTransfersForLot(ctx context.Context, breweryId string, lotId int) ([]*models.TankTransfer, error)

	CreateTimelineEntry(ctx context.Context, entry *models.BatchTimeline) error

	CreateGravityReading(ctx context.Context, reading *models.GravityReading) error
	// LatestGravityReading returns (nil, nil) when the batch has none.
	LatestGravityReading(ctx context.Context, breweryId string, batchId int) (*models.GravityReading, error)

	// CreateIdempotencyKey inserts the durable idempotency record.
	// Returns created=false when the (brewery, handler, key) row already
	// exists.
	CreateIdempotencyKey(ctx context.Context, key *models.IdempotencyKey) (bool, error)
}
