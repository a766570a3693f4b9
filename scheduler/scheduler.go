package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brewcrafthq/brewery_backend/config"
	"github.com/brewcrafthq/brewery_backend/models"
	"github.com/brewcrafthq/brewery_backend/utils"
)

type Destination struct {
	TankId        int              `json:"tank_id" binding:"required"`
	PlannedStart  time.Time        `json:"planned_start" binding:"required"`
	PlannedEnd    time.Time        `json:"planned_end" binding:"required"`
	VolumePortion *decimal.Decimal `json:"volume_portion"`
}

// PlanFermentationInput covers both shapes: a single destination, a split
// (one batch, several destinations) and a blend (several batches, one
// destination).
type PlanFermentationInput struct {
	BatchIds       []int         `json:"batch_ids" binding:"required"`
	Destinations   []Destination `json:"destinations" binding:"required"`
	Notes          string        `json:"notes"`
	IdempotencyKey string        `json:"idempotency_key"`
}

type PlannedAssignment struct {
	AssignmentId  int             `json:"assignment_id"`
	LotId         int             `json:"lot_id"`
	TankId        int             `json:"tank_id"`
	PlannedStart  time.Time       `json:"planned_start"`
	PlannedEnd    time.Time       `json:"planned_end"`
	Phase         string          `json:"phase"`
	VolumePortion decimal.Decimal `json:"volume_portion"`
}

type PlanFermentationResult struct {
	BatchIds    []int               `json:"batch_ids"`
	Assignments []PlannedAssignment `json:"assignments"`
}

func (input *PlanFermentationInput) validate() error {
	if len(input.BatchIds) == 0 {
		return newValidationError("at least one batch id is required")
	}
	if len(input.Destinations) == 0 {
		return newValidationError("at least one destination is required")
	}
	if len(input.BatchIds) > 1 && len(input.Destinations) > 1 {
		return newValidationError("a blend takes exactly one destination")
	}
	if len(utils.UniqueSlice(input.BatchIds)) != len(input.BatchIds) {
		return newValidationError("duplicate batch ids")
	}
	for _, dest := range input.Destinations {
		if dest.TankId <= 0 {
			return newValidationError("tank id is required on every destination")
		}
		if !dest.PlannedStart.Before(dest.PlannedEnd) {
			return newValidationError("planned start must be before planned end (tank %d)", dest.TankId)
		}
	}
	// destinations inside one request must not overlap each other
	for i, a := range input.Destinations {
		for _, b := range input.Destinations[i+1:] {
			if a.TankId == b.TankId && a.PlannedStart.Before(b.PlannedEnd) && b.PlannedStart.Before(a.PlannedEnd) {
				return newValidationError("destinations overlap each other on tank %d", a.TankId)
			}
		}
	}
	return nil
}

// splitPortions returns one volume portion per destination. Operator-given
// portions must sum to the batch volume; otherwise the volume is divided
// equally, with the remainder folded into the last portion.
func splitPortions(volume decimal.Decimal, destinations []Destination) ([]decimal.Decimal, error) {
	portions := make([]decimal.Decimal, len(destinations))

	given := 0
	for _, dest := range destinations {
		if dest.VolumePortion != nil {
			given++
		}
	}
	if given > 0 {
		if given != len(destinations) {
			return nil, newValidationError("volume portions must be set on all destinations or none")
		}
		sum := decimal.Zero
		for i, dest := range destinations {
			if !dest.VolumePortion.IsPositive() {
				return nil, newValidationError("volume portion must be positive (tank %d)", dest.TankId)
			}
			portions[i] = *dest.VolumePortion
			sum = sum.Add(*dest.VolumePortion)
		}
		if !sum.Equal(volume) {
			return nil, newValidationError("volume portions sum to %s, batch volume is %s", sum, volume)
		}
		return portions, nil
	}

	n := decimal.NewFromInt(int64(len(destinations)))
	share := volume.Div(n).Round(2)
	rest := volume
	for i := range destinations {
		if i == len(destinations)-1 {
			portions[i] = rest
		} else {
			portions[i] = share
			rest = rest.Sub(share)
		}
	}
	return portions, nil
}

// PlanFermentation books the destination tank(s) for the source batch(es):
// per destination it re-checks availability under the tank lock, then
// creates Lot, LotBatch and TankAssignment rows as one atomic unit. On any
// conflict the entire request aborts — no partial booking.
func (s *Service) PlanFermentation(ctx context.Context, input *PlanFermentationInput) (*PlanFermentationResult, error) {
	result, err := s.planFermentation(ctx, input)
	s.recordOutcome("plan_fermentation", err)
	return result, err
}

func (s *Service) planFermentation(ctx context.Context, input *PlanFermentationInput) (*PlanFermentationResult, error) {
	breweryId, err := breweryIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	// Duplicate client retries get the cached result back instead of a
	// second booking.
	idemCacheKey := ""
	if input.IdempotencyKey != "" {
		idemCacheKey = fmt.Sprintf("idem:plan-fermentation:%s:%s", breweryId, input.IdempotencyKey)
		var cached PlanFermentationResult
		if found, err := s.idem.Get(ctx, idemCacheKey, &cached); err != nil {
			return nil, err
		} else if found {
			return &cached, nil
		}
	}

	batches, err := s.store.ListBatchesByIds(ctx, breweryId, input.BatchIds)
	if err != nil {
		return nil, err
	}

	isBlend := len(input.BatchIds) > 1
	phase := models.AssignmentPhaseFermentation
	if isBlend {
		first := batches[0].Status
		for _, batch := range batches {
			if batch.Status != first {
				return nil, &IncompatibleBatchStateError{BatchIds: input.BatchIds,
					Reason: "all batches of a blend must share one status"}
			}
		}
		switch first {
		case models.BatchStatusPlanned:
			// co-fermented blend, booked before brewing
		case models.BatchStatusFermenting:
			phase = models.AssignmentPhaseBright
		default:
			return nil, &IncompatibleBatchStateError{BatchIds: input.BatchIds,
				Reason: fmt.Sprintf("blend requires PLANNED or FERMENTING batches, got %s", first)}
		}
	} else {
		if batches[0].Status != models.BatchStatusPlanned {
			return nil, &InvalidTransitionError{Entity: "batch",
				Expected: string(models.BatchStatusPlanned), Actual: string(batches[0].Status)}
		}
	}

	var portions []decimal.Decimal
	if !isBlend {
		portions, err = splitPortions(batches[0].Volume, input.Destinations)
		if err != nil {
			return nil, err
		}
	}

	tankIds := make([]int, 0, len(input.Destinations))
	for _, dest := range input.Destinations {
		tankIds = append(tankIds, dest.TankId)
	}

	var result *PlanFermentationResult
	err = s.withTankLocks(ctx, breweryId, tankIds, func() error {
		return s.store.InTransaction(ctx, func(tx Store) error {
			if input.IdempotencyKey != "" {
				created, err := tx.CreateIdempotencyKey(ctx, &models.IdempotencyKey{
					BreweryId:   breweryId,
					HandlerName: "plan-fermentation",
					RequestKey:  input.IdempotencyKey,
					Status:      models.IdempotencyStatusSucceeded,
				})
				if err != nil {
					return err
				}
				if !created {
					return ErrDuplicateRequest
				}
			}

			// re-check every destination under the lock; collect every
			// conflicting destination before aborting
			var conflicts []TankConflict
			for _, dest := range input.Destinations {
				if _, err := tx.GetTank(ctx, breweryId, dest.TankId); err != nil {
					return err
				}
				check, err := s.checkTankWindow(ctx, tx, breweryId, dest.TankId, dest.PlannedStart, dest.PlannedEnd)
				if err != nil {
					return err
				}
				if !check.Available {
					conflicts = append(conflicts, TankConflict{
						TankId:        dest.TankId,
						Start:         dest.PlannedStart,
						End:           dest.PlannedEnd,
						AssignmentIds: check.Conflicts,
					})
				}
			}
			if len(conflicts) > 0 {
				return &ConflictError{Conflicts: conflicts}
			}

			planned := make([]PlannedAssignment, 0, len(input.Destinations))
			if isBlend {
				entry, err := s.createLotAssignment(ctx, tx, breweryId, batches, input.Destinations[0], phase, input.Notes, nil)
				if err != nil {
					return err
				}
				planned = append(planned, *entry)
			} else {
				for i, dest := range input.Destinations {
					entry, err := s.createLotAssignment(ctx, tx, breweryId, batches, dest, phase, input.Notes, &portions[i])
					if err != nil {
						return err
					}
					planned = append(planned, *entry)
				}
			}

			// brewing starts once the plan lands
			for _, batch := range batches {
				if batch.Status == models.BatchStatusPlanned {
					if err := advanceBatch(ctx, tx, batch, models.BatchStatusBrewing); err != nil {
						return err
					}
				}
			}

			for _, batch := range batches {
				entry, err := models.NewTimelineEntry(ctx, batch.ID, models.TimelineFermentationPlanned,
					"Fermentation planned", input.Notes, map[string]interface{}{
						"assignments": planned,
					})
				if err != nil {
					return err
				}
				if err := tx.CreateTimelineEntry(ctx, entry); err != nil {
					return err
				}
			}

			result = &PlanFermentationResult{BatchIds: input.BatchIds, Assignments: planned}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// The cache write sits outside the transaction: if the process dies
	// between commit and here, a replay gets ErrDuplicateRequest from the
	// durable key instead of the cached result. The booking itself exists
	// exactly once either way.
	if idemCacheKey != "" {
		if err := s.idem.Set(ctx, idemCacheKey, result, s.idemTTL); err != nil {
			config.LogError(s.logger, "scheduler", "PlanFermentation", "cache idempotent result", idemCacheKey, err)
		}
	}
	return result, nil
}

// createLotAssignment writes one Lot, its LotBatch rows and one PLANNED
// TankAssignment. portion is nil for blends (each batch contributes its
// full volume).
func (s *Service) createLotAssignment(ctx context.Context, tx Store, breweryId string, batches []*models.Batch, dest Destination, phase models.AssignmentPhase, notes string, portion *decimal.Decimal) (*PlannedAssignment, error) {
	lot := &models.Lot{BreweryId: breweryId}
	if err := tx.CreateLot(ctx, lot); err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, batch := range batches {
		batchPortion := batch.Volume
		if portion != nil {
			batchPortion = *portion
		}
		if err := tx.CreateLotBatch(ctx, &models.LotBatch{
			BreweryId:     breweryId,
			LotId:         lot.ID,
			BatchId:       batch.ID,
			VolumePortion: batchPortion,
		}); err != nil {
			return nil, err
		}
		total = total.Add(batchPortion)
	}

	assignment := &models.TankAssignment{
		BreweryId:    breweryId,
		LotId:        lot.ID,
		TankId:       dest.TankId,
		PlannedStart: dest.PlannedStart,
		PlannedEnd:   dest.PlannedEnd,
		Status:       models.AssignmentStatusPlanned,
		Phase:        phase,
		Notes:        notes,
	}
	if err := tx.CreateAssignment(ctx, assignment); err != nil {
		return nil, err
	}

	return &PlannedAssignment{
		AssignmentId:  assignment.ID,
		LotId:         lot.ID,
		TankId:        dest.TankId,
		PlannedStart:  dest.PlannedStart,
		PlannedEnd:    dest.PlannedEnd,
		Phase:         string(phase),
		VolumePortion: total,
	}, nil
}

type PlanTransferInput struct {
	LotId     int       `json:"lot_id" binding:"required"`
	ToTankId  int       `json:"to_tank_id" binding:"required"`
	PlannedAt time.Time `json:"planned_at" binding:"required"`
}

// PlanTransfer schedules moving a lot to a destination tank. The lot's
// current assignment must be ACTIVE, and the destination must be free from
// plannedAt until the end of the lot's existing occupancy.
func (s *Service) PlanTransfer(ctx context.Context, input *PlanTransferInput) (*models.TankTransfer, error) {
	transfer, err := s.planTransfer(ctx, input)
	s.recordOutcome("plan_transfer", err)
	return transfer, err
}

func (s *Service) planTransfer(ctx context.Context, input *PlanTransferInput) (*models.TankTransfer, error) {
	breweryId, err := breweryIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.GetLot(ctx, breweryId, input.LotId); err != nil {
		return nil, err
	}
	current, err := s.activeAssignmentForLot(ctx, s.store, breweryId, input.LotId)
	if err != nil {
		return nil, err
	}
	if input.ToTankId == current.TankId {
		return nil, newValidationError("destination tank equals current tank")
	}
	if !input.PlannedAt.Before(current.PlannedEnd) {
		return nil, newValidationError("planned transfer time is after the lot's occupancy ends")
	}

	var transfer *models.TankTransfer
	err = s.withTankLocks(ctx, breweryId, []int{input.ToTankId}, func() error {
		return s.store.InTransaction(ctx, func(tx Store) error {
			if _, err := tx.GetTank(ctx, breweryId, input.ToTankId); err != nil {
				return err
			}
			check, err := s.checkTankWindow(ctx, tx, breweryId, input.ToTankId, input.PlannedAt, current.PlannedEnd)
			if err != nil {
				return err
			}
			if !check.Available {
				return &ConflictError{Conflicts: []TankConflict{{
					TankId:        input.ToTankId,
					Start:         input.PlannedAt,
					End:           current.PlannedEnd,
					AssignmentIds: check.Conflicts,
				}}}
			}

			transfer = &models.TankTransfer{
				BreweryId:  breweryId,
				LotId:      input.LotId,
				FromTankId: current.TankId,
				ToTankId:   input.ToTankId,
				PlannedAt:  input.PlannedAt,
			}
			if err := tx.CreateTransfer(ctx, transfer); err != nil {
				return err
			}

			return s.appendLotTimeline(ctx, tx, breweryId, input.LotId, models.TimelineTransferPlanned,
				"Transfer planned", map[string]interface{}{
					"transfer_id":  transfer.ID,
					"from_tank_id": transfer.FromTankId,
					"to_tank_id":   transfer.ToTankId,
					"planned_at":   transfer.PlannedAt,
				})
		})
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

// ExecuteTransfer moves the lot: the existing assignment is re-pointed at
// the destination tank, the vacated tank goes to NEEDS_CIP, and the
// destination goes to IN_USE.
func (s *Service) ExecuteTransfer(ctx context.Context, transferId int, executedAt *time.Time) (*models.TankTransfer, error) {
	transfer, err := s.executeTransfer(ctx, transferId, executedAt)
	s.recordOutcome("execute_transfer", err)
	return transfer, err
}

func (s *Service) executeTransfer(ctx context.Context, transferId int, executedAt *time.Time) (*models.TankTransfer, error) {
	breweryId, err := breweryIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	transfer, err := s.store.GetTransfer(ctx, breweryId, transferId)
	if err != nil {
		return nil, err
	}
	if transfer.ExecutedAt != nil {
		return nil, &InvalidTransitionError{Entity: "transfer", Expected: "planned", Actual: "executed"}
	}

	when := time.Now().UTC()
	if executedAt != nil {
		when = *executedAt
	}

	err = s.withTankLocks(ctx, breweryId, []int{transfer.FromTankId, transfer.ToTankId}, func() error {
		return s.store.InTransaction(ctx, func(tx Store) error {
			current, err := s.activeAssignmentForLot(ctx, tx, breweryId, transfer.LotId)
			if err != nil {
				return err
			}
			if current.TankId != transfer.FromTankId {
				return newValidationError("lot is no longer in the source tank")
			}
			if !when.Before(current.PlannedEnd) {
				return newValidationError("execution time is after the lot's occupancy ends")
			}

			// the destination may have been booked since planning
			check, err := s.checkTankWindow(ctx, tx, breweryId, transfer.ToTankId, when, current.PlannedEnd)
			if err != nil {
				return err
			}
			if !check.Available {
				return &ConflictError{Conflicts: []TankConflict{{
					TankId:        transfer.ToTankId,
					Start:         when,
					End:           current.PlannedEnd,
					AssignmentIds: check.Conflicts,
				}}}
			}

			// on the destination the lot occupies [executedAt, plannedEnd);
			// without moving startedAt forward the assignment would claim
			// the destination's past, overlapping bookings that ended
			// before the transfer. The original fill time survives in the
			// transfer record and the timeline.
			current.TankId = transfer.ToTankId
			if current.StartedAt == nil || current.StartedAt.Before(when) {
				current.StartedAt = &when
			}
			if err := tx.UpdateAssignment(ctx, current); err != nil {
				return err
			}
			if err := tx.UpdateTankStatus(ctx, breweryId, transfer.FromTankId, models.TankStatusNeedsCIP); err != nil {
				return err
			}
			if err := tx.UpdateTankStatus(ctx, breweryId, transfer.ToTankId, models.TankStatusInUse); err != nil {
				return err
			}
			transfer.ExecutedAt = &when
			if err := tx.UpdateTransfer(ctx, transfer); err != nil {
				return err
			}

			return s.appendLotTimeline(ctx, tx, breweryId, transfer.LotId, models.TimelineTransferExecuted,
				"Transfer executed", map[string]interface{}{
					"transfer_id":  transfer.ID,
					"from_tank_id": transfer.FromTankId,
					"to_tank_id":   transfer.ToTankId,
					"executed_at":  when,
				})
		})
	})
	if err != nil {
		return nil, err
	}
	return transfer, nil
}

// StartLot activates the lot's single PLANNED assignment.
func (s *Service) StartLot(ctx context.Context, lotId int, startedAt *time.Time) (*models.TankAssignment, error) {
	breweryId, err := breweryIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetLot(ctx, breweryId, lotId); err != nil {
		return nil, err
	}
	assignments, err := s.store.ListAssignmentsForLot(ctx, breweryId, lotId)
	if err != nil {
		return nil, err
	}
	var planned *models.TankAssignment
	for _, a := range assignments {
		if a.Status == models.AssignmentStatusPlanned {
			planned = a
			break
		}
	}
	if planned == nil {
		return nil, NewAssignmentNotPlanned("NONE")
	}
	return s.StartAssignment(ctx, planned.ID, startedAt)
}

// StartAssignment transitions a PLANNED assignment to ACTIVE, marks the
// tank IN_USE and advances the lot's batches into the phase's batch status.
func (s *Service) StartAssignment(ctx context.Context, assignmentId int, startedAt *time.Time) (*models.TankAssignment, error) {
	assignment, err := s.startAssignment(ctx, assignmentId, startedAt)
	s.recordOutcome("start_assignment", err)
	return assignment, err
}

func (s *Service) startAssignment(ctx context.Context, assignmentId int, startedAt *time.Time) (*models.TankAssignment, error) {
	breweryId, err := breweryIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	assignment, err := s.store.GetAssignment(ctx, breweryId, assignmentId)
	if err != nil {
		return nil, err
	}

	when := time.Now().UTC()
	if startedAt != nil {
		when = *startedAt
	}

	err = s.withTankLocks(ctx, breweryId, []int{assignment.TankId}, func() error {
		return s.store.InTransaction(ctx, func(tx Store) error {
			assignment, err = tx.GetAssignment(ctx, breweryId, assignmentId)
			if err != nil {
				return err
			}
			if assignment.Status != models.AssignmentStatusPlanned {
				return NewAssignmentNotPlanned(string(assignment.Status))
			}

			// starting earlier than planned widens the occupied interval;
			// make sure it still fits
			if when.Before(assignment.PlannedStart) {
				open, err := tx.ListOpenAssignments(ctx, breweryId, assignment.TankId)
				if err != nil {
					return err
				}
				var blocking []int
				for _, other := range open {
					if other.ID != assignment.ID && other.Overlaps(when, assignment.PlannedEnd) {
						blocking = append(blocking, other.ID)
					}
				}
				if len(blocking) > 0 {
					return &ConflictError{Conflicts: []TankConflict{{
						TankId:        assignment.TankId,
						Start:         when,
						End:           assignment.PlannedEnd,
						AssignmentIds: blocking,
					}}}
				}
			}

			assignment.Status = models.AssignmentStatusActive
			assignment.StartedAt = &when
			if err := tx.UpdateAssignment(ctx, assignment); err != nil {
				return err
			}
			if err := tx.UpdateTankStatus(ctx, breweryId, assignment.TankId, models.TankStatusInUse); err != nil {
				return err
			}

			batches, err := s.batchesForLot(ctx, tx, breweryId, assignment.LotId)
			if err != nil {
				return err
			}
			target := phaseBatchTarget(assignment.Phase)
			for _, batch := range batches {
				if err := advanceBatchThrough(ctx, tx, batch, target); err != nil {
					return err
				}
				if assignment.Phase == models.AssignmentPhaseFermentation && batch.BrewedAt == nil {
					batch.BrewedAt = &when
					if err := tx.UpdateBatch(ctx, batch); err != nil {
						return err
					}
				}
				entry, err := models.NewTimelineEntry(ctx, batch.ID, models.TimelineFermentationStarted,
					"Lot started", "", map[string]interface{}{
						"assignment_id": assignment.ID,
						"tank_id":       assignment.TankId,
						"started_at":    when,
					})
				if err != nil {
					return err
				}
				if err := tx.CreateTimelineEntry(ctx, entry); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// CompleteAssignment finishes an ACTIVE assignment. releaseTank sends the
// tank to NEEDS_CIP — never straight back to AVAILABLE; cleaning is a
// mandatory intermediate state closed out by the external CIP workflow.
func (s *Service) CompleteAssignment(ctx context.Context, assignmentId int, releaseTank bool, endedAt *time.Time) (*models.TankAssignment, error) {
	assignment, err := s.completeAssignment(ctx, assignmentId, releaseTank, endedAt)
	s.recordOutcome("complete_assignment", err)
	return assignment, err
}

func (s *Service) completeAssignment(ctx context.Context, assignmentId int, releaseTank bool, endedAt *time.Time) (*models.TankAssignment, error) {
	breweryId, err := breweryIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	assignment, err := s.store.GetAssignment(ctx, breweryId, assignmentId)
	if err != nil {
		return nil, err
	}

	when := time.Now().UTC()
	if endedAt != nil {
		when = *endedAt
	}

	err = s.withTankLocks(ctx, breweryId, []int{assignment.TankId}, func() error {
		return s.store.InTransaction(ctx, func(tx Store) error {
			assignment, err = tx.GetAssignment(ctx, breweryId, assignmentId)
			if err != nil {
				return err
			}
			if assignment.Status != models.AssignmentStatusActive {
				return &InvalidTransitionError{Entity: "assignment",
					Expected: string(models.AssignmentStatusActive), Actual: string(assignment.Status)}
			}

			assignment.Status = models.AssignmentStatusCompleted
			assignment.EndedAt = &when
			if err := tx.UpdateAssignment(ctx, assignment); err != nil {
				return err
			}
			if releaseTank {
				if err := tx.UpdateTankStatus(ctx, breweryId, assignment.TankId, models.TankStatusNeedsCIP); err != nil {
					return err
				}
			}
			if err := completeLotIfDone(ctx, tx, breweryId, assignment.LotId, when); err != nil {
				return err
			}
			return s.appendLotTimeline(ctx, tx, breweryId, assignment.LotId, models.TimelineAssignmentCompleted,
				"Assignment completed", map[string]interface{}{
					"assignment_id": assignment.ID,
					"tank_id":       assignment.TankId,
					"ended_at":      when,
					"release_tank":  releaseTank,
				})
		})
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// MarkPhase advances an ACTIVE assignment's phase without touching its
// status, and applies the batch-status sync points in the same transaction:
// BRIGHT conditions the batches, PACKAGING starts packaging them.
func (s *Service) MarkPhase(ctx context.Context, assignmentId int, phase models.AssignmentPhase) (*models.TankAssignment, error) {
	assignment, err := s.markPhase(ctx, assignmentId, phase)
	s.recordOutcome("mark_phase", err)
	return assignment, err
}

func (s *Service) markPhase(ctx context.Context, assignmentId int, phase models.AssignmentPhase) (*models.TankAssignment, error) {
	breweryId, err := breweryIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !phase.IsValid() {
		return nil, newValidationError("invalid phase %s", phase)
	}
	assignment, err := s.store.GetAssignment(ctx, breweryId, assignmentId)
	if err != nil {
		return nil, err
	}

	err = s.withTankLocks(ctx, breweryId, []int{assignment.TankId}, func() error {
		return s.store.InTransaction(ctx, func(tx Store) error {
			assignment, err = tx.GetAssignment(ctx, breweryId, assignmentId)
			if err != nil {
				return err
			}
			if assignment.Status != models.AssignmentStatusActive {
				return &InvalidTransitionError{Entity: "assignment",
					Expected: string(models.AssignmentStatusActive), Actual: string(assignment.Status)}
			}
			if phase.Rank() <= assignment.Phase.Rank() {
				return &InvalidTransitionError{Entity: "assignment phase",
					Expected: "after " + string(assignment.Phase), Actual: string(phase)}
			}

			assignment.Phase = phase
			if err := tx.UpdateAssignment(ctx, assignment); err != nil {
				return err
			}

			batches, err := s.batchesForLot(ctx, tx, breweryId, assignment.LotId)
			if err != nil {
				return err
			}
			target := phaseBatchTarget(phase)
			for _, batch := range batches {
				if err := advanceBatchThrough(ctx, tx, batch, target); err != nil {
					return err
				}
				entry, err := models.NewTimelineEntry(ctx, batch.ID, models.TimelinePhaseChanged,
					"Phase changed", "", map[string]interface{}{
						"assignment_id": assignment.ID,
						"phase":         phase,
					})
				if err != nil {
					return err
				}
				if err := tx.CreateTimelineEntry(ctx, entry); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// phaseBatchTarget maps an assignment phase to the batch status the lot's
// batches should have reached by then.
func phaseBatchTarget(phase models.AssignmentPhase) models.BatchStatus {
	switch phase {
	case models.AssignmentPhaseBright:
		return models.BatchStatusConditioning
	case models.AssignmentPhasePackaging:
		return models.BatchStatusPackaging
	default:
		return models.BatchStatusFermenting
	}
}

func (s *Service) activeAssignmentForLot(ctx context.Context, store Store, breweryId string, lotId int) (*models.TankAssignment, error) {
	assignments, err := store.ListAssignmentsForLot(ctx, breweryId, lotId)
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		if a.Status == models.AssignmentStatusActive {
			return a, nil
		}
	}
	return nil, &InvalidTransitionError{Entity: "assignment",
		Expected: string(models.AssignmentStatusActive), Actual: "NONE"}
}

func (s *Service) batchesForLot(ctx context.Context, tx Store, breweryId string, lotId int) ([]*models.Batch, error) {
	lotBatches, err := tx.ListLotBatches(ctx, breweryId, lotId)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(lotBatches))
	for _, lb := range lotBatches {
		ids = append(ids, lb.BatchId)
	}
	return tx.ListBatchesByIds(ctx, breweryId, ids)
}

func (s *Service) appendLotTimeline(ctx context.Context, tx Store, breweryId string, lotId int, entryType models.TimelineEntryType, title string, data map[string]interface{}) error {
	batches, err := s.batchesForLot(ctx, tx, breweryId, lotId)
	if err != nil {
		return err
	}
	for _, batch := range batches {
		entry, err := models.NewTimelineEntry(ctx, batch.ID, entryType, title, "", data)
		if err != nil {
			return err
		}
		if err := tx.CreateTimelineEntry(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) recordOutcome(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		switch {
		case errors.As(err, new(*ConflictError)):
			outcome = "conflict"
			config.MetricConflicts.Inc()
		case errors.Is(err, ErrLockTimeout):
			outcome = "lock_timeout"
			config.MetricLockTimeouts.Inc()
		}
	}
	config.MetricPlanRequests.WithLabelValues(operation, outcome).Inc()
}
