package scheduler

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brewcrafthq/brewery_backend/models"
	"github.com/brewcrafthq/brewery_backend/utils"
)

// advanceBatch moves a batch one step forward, enforcing that the current
// status is the immediately preceding one.
func advanceBatch(ctx context.Context, tx Store, batch *models.Batch, next models.BatchStatus) error {
	expected, ok := next.PrecedingStatus()
	if !ok {
		return newValidationError("invalid batch status %s", next)
	}
	if batch.Status != expected {
		return &InvalidTransitionError{Entity: "batch", Expected: string(expected), Actual: string(batch.Status)}
	}
	batch.Status = next
	return tx.UpdateBatch(ctx, batch)
}

// advanceBatchThrough moves a batch forward to target if it is behind it,
// and leaves it alone if it already reached (or passed) it. Used by the
// phase sync points, which are tolerant by design ("advance if not already
// there").
func advanceBatchThrough(ctx context.Context, tx Store, batch *models.Batch, target models.BatchStatus) error {
	if batch.Status == models.BatchStatusCancelled {
		return &InvalidTransitionError{Entity: "batch", Expected: string(target), Actual: string(models.BatchStatusCancelled)}
	}
	currentRank, targetRank := batchRank(batch.Status), batchRank(target)
	if currentRank < 0 || targetRank < 0 || currentRank >= targetRank {
		return nil
	}
	batch.Status = target
	return tx.UpdateBatch(ctx, batch)
}

func batchRank(status models.BatchStatus) int {
	order := []models.BatchStatus{
		models.BatchStatusPlanned,
		models.BatchStatusBrewing,
		models.BatchStatusFermenting,
		models.BatchStatusConditioning,
		models.BatchStatusPackaging,
		models.BatchStatusReady,
		models.BatchStatusPackaged,
	}
	for i, s := range order {
		if s == status {
			return i
		}
	}
	return -1
}

// CancelBatch moves a batch to CANCELLED from any non-terminal status.
// A reason is required.
func (s *Service) CancelBatch(ctx context.Context, batchId int, reason string) (*models.Batch, error) {
	breweryId, err := breweryIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if utils.IsBlank(reason) {
		return nil, newValidationError("cancel reason is required")
	}

	var cancelled *models.Batch
	err = s.store.InTransaction(ctx, func(tx Store) error {
		batch, err := tx.GetBatch(ctx, breweryId, batchId)
		if err != nil {
			return err
		}
		if batch.Status.IsTerminal() {
			return &InvalidTransitionError{Entity: "batch", Expected: "non-terminal", Actual: string(batch.Status)}
		}
		batch.Status = models.BatchStatusCancelled
		batch.CancelReason = reason
		if err := tx.UpdateBatch(ctx, batch); err != nil {
			return err
		}
		entry, err := models.NewTimelineEntry(ctx, batch.ID, models.TimelineBatchCancelled,
			"Batch cancelled", reason, nil)
		if err != nil {
			return err
		}
		if err := tx.CreateTimelineEntry(ctx, entry); err != nil {
			return err
		}
		cancelled = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

type NewGravityReading struct {
	Gravity     decimal.Decimal  `json:"gravity" binding:"required"`
	Temperature *decimal.Decimal `json:"temperature"`
	Notes       string           `json:"notes"`
	RecordedAt  *time.Time       `json:"recorded_at"`
}

// RecordGravityReading appends an immutable reading to a FERMENTING batch
// and logs it on the batch timeline.
func (s *Service) RecordGravityReading(ctx context.Context, batchId int, input *NewGravityReading) (*models.GravityReading, error) {
	breweryId, err := breweryIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !input.Gravity.IsPositive() {
		return nil, newValidationError("gravity must be positive")
	}
	userName, _ := utils.GetUserNameFromContext(ctx)

	recordedAt := time.Now().UTC()
	if input.RecordedAt != nil {
		recordedAt = *input.RecordedAt
	}

	var reading *models.GravityReading
	err = s.store.InTransaction(ctx, func(tx Store) error {
		batch, err := tx.GetBatch(ctx, breweryId, batchId)
		if err != nil {
			return err
		}
		if batch.Status != models.BatchStatusFermenting {
			return &InvalidTransitionError{Entity: "batch", Expected: string(models.BatchStatusFermenting), Actual: string(batch.Status)}
		}

		reading = &models.GravityReading{
			BreweryId:   breweryId,
			BatchId:     batchId,
			Gravity:     input.Gravity,
			Temperature: input.Temperature,
			Notes:       input.Notes,
			RecordedBy:  userName,
			RecordedAt:  recordedAt,
		}
		if err := tx.CreateGravityReading(ctx, reading); err != nil {
			return err
		}

		entry, err := models.NewTimelineEntry(ctx, batchId, models.TimelineGravityReading,
			"Gravity reading", "", map[string]interface{}{
				"gravity":     input.Gravity,
				"temperature": input.Temperature,
				"recorded_at": recordedAt,
			})
		if err != nil {
			return err
		}
		return tx.CreateTimelineEntry(ctx, entry)
	})
	if err != nil {
		return nil, err
	}
	return reading, nil
}

// completeLotIfDone stamps completedAt once every assignment of the lot has
// reached COMPLETED.
func completeLotIfDone(ctx context.Context, tx Store, breweryId string, lotId int, now time.Time) error {
	assignments, err := tx.ListAssignmentsForLot(ctx, breweryId, lotId)
	if err != nil {
		return err
	}
	for _, a := range assignments {
		if a.Status != models.AssignmentStatusCompleted {
			return nil
		}
	}
	lot, err := tx.GetLot(ctx, breweryId, lotId)
	if err != nil {
		return err
	}
	if lot.CompletedAt != nil {
		return nil
	}
	lot.CompletedAt = &now
	return tx.UpdateLot(ctx, lot)
}
