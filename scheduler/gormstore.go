package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/brewcrafthq/brewery_backend/models"
	"github.com/brewcrafthq/brewery_backend/utils"
)

// GormStore is the production Store over MySQL. InTransaction hands fn a
// store bound to the gorm transaction, so every write inside it commits or
// rolls back as one unit.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) InTransaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

func fetchScoped[T any](ctx context.Context, db *gorm.DB, breweryId string, id int) (*T, error) {
	var model T
	err := db.WithContext(ctx).Where("brewery_id = ?", breweryId).First(&model, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrorRecordNotFound
	} else if err != nil {
		return nil, err
	}
	return &model, nil
}

func (s *GormStore) GetTank(ctx context.Context, breweryId string, id int) (*models.Tank, error) {
	return fetchScoped[models.Tank](ctx, s.db, breweryId, id)
}

func (s *GormStore) ListTanks(ctx context.Context, breweryId string) ([]*models.Tank, error) {
	var tanks []*models.Tank
	err := s.db.WithContext(ctx).Where("brewery_id = ?", breweryId).Order("name").Find(&tanks).Error
	if err != nil {
		return nil, err
	}
	return tanks, nil
}

func (s *GormStore) UpdateTankStatus(ctx context.Context, breweryId string, id int, status models.TankStatus) error {
	result := s.db.WithContext(ctx).Model(&models.Tank{}).
		Where("brewery_id = ? AND id = ?", breweryId, id).
		Update("Status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

func (s *GormStore) GetBatch(ctx context.Context, breweryId string, id int) (*models.Batch, error) {
	return fetchScoped[models.Batch](ctx, s.db, breweryId, id)
}

func (s *GormStore) ListBatchesByIds(ctx context.Context, breweryId string, ids []int) ([]*models.Batch, error) {
	if len(ids) == 0 {
		return []*models.Batch{}, nil
	}
	var batches []*models.Batch
	err := s.db.WithContext(ctx).
		Where("brewery_id = ? AND id IN ?", breweryId, ids).
		Find(&batches).Error
	if err != nil {
		return nil, err
	}
	// a missing (or foreign) batch is indistinguishable from a deleted one
	if len(batches) != len(utils.UniqueSlice(ids)) {
		return nil, utils.ErrorRecordNotFound
	}
	return batches, nil
}

func (s *GormStore) UpdateBatch(ctx context.Context, batch *models.Batch) error {
	return s.db.WithContext(ctx).Save(batch).Error
}

func (s *GormStore) CreateLot(ctx context.Context, lot *models.Lot) error {
	return s.db.WithContext(ctx).Create(lot).Error
}

func (s *GormStore) GetLot(ctx context.Context, breweryId string, id int) (*models.Lot, error) {
	return fetchScoped[models.Lot](ctx, s.db, breweryId, id)
}

func (s *GormStore) UpdateLot(ctx context.Context, lot *models.Lot) error {
	return s.db.WithContext(ctx).Save(lot).Error
}

func (s *GormStore) CreateLotBatch(ctx context.Context, lotBatch *models.LotBatch) error {
	return s.db.WithContext(ctx).Create(lotBatch).Error
}

func (s *GormStore) ListLotBatches(ctx context.Context, breweryId string, lotId int) ([]*models.LotBatch, error) {
	var lotBatches []*models.LotBatch
	err := s.db.WithContext(ctx).
		Where("brewery_id = ? AND lot_id = ?", breweryId, lotId).
		Order("id").Find(&lotBatches).Error
	if err != nil {
		return nil, err
	}
	return lotBatches, nil
}

func (s *GormStore) CreateAssignment(ctx context.Context, assignment *models.TankAssignment) error {
	return s.db.WithContext(ctx).Create(assignment).Error
}

func (s *GormStore) GetAssignment(ctx context.Context, breweryId string, id int) (*models.TankAssignment, error) {
	return fetchScoped[models.TankAssignment](ctx, s.db, breweryId, id)
}

func (s *GormStore) UpdateAssignment(ctx context.Context, assignment *models.TankAssignment) error {
	return s.db.WithContext(ctx).Save(assignment).Error
}

func (s *GormStore) ListOpenAssignments(ctx context.Context, breweryId string, tankId int) ([]*models.TankAssignment, error) {
	var assignments []*models.TankAssignment
	err := s.db.WithContext(ctx).
		Where("brewery_id = ? AND tank_id = ? AND status IN ?", breweryId, tankId,
			[]models.AssignmentStatus{models.AssignmentStatusPlanned, models.AssignmentStatusActive}).
		Order("planned_start").Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (s *GormStore) ListAssignmentsForLot(ctx context.Context, breweryId string, lotId int) ([]*models.TankAssignment, error) {
	var assignments []*models.TankAssignment
	err := s.db.WithContext(ctx).
		Where("brewery_id = ? AND lot_id = ?", breweryId, lotId).
		Order("planned_start").Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (s *GormStore) ListAssignmentsInRange(ctx context.Context, breweryId string, start, end time.Time) ([]*models.TankAssignment, error) {
	var assignments []*models.TankAssignment
	// effective start is started_at once the lot is in the tank
	err := s.db.WithContext(ctx).
		Where("brewery_id = ? AND planned_end > ? AND COALESCE(started_at, planned_start) < ?",
			breweryId, start, end).
		Order("planned_start").Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (s *GormStore) CreateTransfer(ctx context.Context, transfer *models.TankTransfer) error {
	return s.db.WithContext(ctx).Create(transfer).Error
}

func (s *GormStore) GetTransfer(ctx context.Context, breweryId string, id int) (*models.TankTransfer, error) {
	return fetchScoped[models.TankTransfer](ctx, s.db, breweryId, id)
}

func (s *GormStore) UpdateTransfer(ctx context.Context, transfer *models.TankTransfer) error {
	return s.db.WithContext(ctx).Save(transfer).Error
}

func (s *GormStore) ListTransfersForLot(ctx context.Context, breweryId string, lotId int) ([]*models.TankTransfer, error) {
	var transfers []*models.TankTransfer
	err := s.db.WithContext(ctx).
		Where("brewery_id = ? AND lot_id = ?", breweryId, lotId).
		Order("planned_at").Find(&transfers).Error
	if err != nil {
		return nil, err
	}
	return transfers, nil
}

func (s *GormStore) CreateTimelineEntry(ctx context.Context, entry *models.BatchTimeline) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *GormStore) CreateGravityReading(ctx context.Context, reading *models.GravityReading) error {
	return s.db.WithContext(ctx).Create(reading).Error
}

func (s *GormStore) LatestGravityReading(ctx context.Context, breweryId string, batchId int) (*models.GravityReading, error) {
	var reading models.GravityReading
	err := s.db.WithContext(ctx).
		Where("brewery_id = ? AND batch_id = ?", breweryId, batchId).
		Order("recorded_at DESC").First(&reading).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return &reading, nil
}

func (s *GormStore) CreateIdempotencyKey(ctx context.Context, key *models.IdempotencyKey) (bool, error) {
	err := s.db.WithContext(ctx).Create(key).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
