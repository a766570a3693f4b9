package scheduler

import (
	"context"
	"time"

	"github.com/brewcrafthq/brewery_backend/utils"
)

type AvailabilityResult struct {
	TankId    int   `json:"tank_id"`
	Available bool  `json:"available"`
	Conflicts []int `json:"conflicts"`
}

type BatchAvailabilityResult struct {
	AllAvailable bool                        `json:"all_available"`
	Tanks        map[int]*AvailabilityResult `json:"tanks"`
}

// CheckAvailability reports whether any PLANNED/ACTIVE assignment on the
// tank overlaps [start, end). Half-open intervals: touching boundaries do
// not conflict, so back-to-back bookings are allowed. Returns the full
// conflict list, not just the first.
//
// This is a lock-free preview; every creation path re-validates under the
// tank lock before committing.
func (s *Service) CheckAvailability(ctx context.Context, tankId int, start, end time.Time) (*AvailabilityResult, error) {
	breweryId, err := breweryIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !start.Before(end) {
		return nil, newValidationError("start must be before end")
	}
	if _, err := s.store.GetTank(ctx, breweryId, tankId); err != nil {
		return nil, err
	}
	return s.checkTankWindow(ctx, s.store, breweryId, tankId, start, end)
}

// CheckBatchAvailability runs the same check per tank and aggregates an
// allAvailable flag with a per-tank result map.
func (s *Service) CheckBatchAvailability(ctx context.Context, tankIds []int, start, end time.Time) (*BatchAvailabilityResult, error) {
	breweryId, err := breweryIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if len(tankIds) == 0 {
		return nil, newValidationError("at least one tank id is required")
	}
	if !start.Before(end) {
		return nil, newValidationError("start must be before end")
	}

	result := &BatchAvailabilityResult{
		AllAvailable: true,
		Tanks:        make(map[int]*AvailabilityResult),
	}
	for _, tankId := range utils.UniqueSlice(tankIds) {
		if _, err := s.store.GetTank(ctx, breweryId, tankId); err != nil {
			return nil, err
		}
		tankResult, err := s.checkTankWindow(ctx, s.store, breweryId, tankId, start, end)
		if err != nil {
			return nil, err
		}
		if !tankResult.Available {
			result.AllAvailable = false
		}
		result.Tanks[tankId] = tankResult
	}
	return result, nil
}

// checkTankWindow is the shared conflict scan, also run by the scheduler
// inside its locked transaction. An assignment [s,e) conflicts with the
// window [start,end) iff s < end && start < e.
func (s *Service) checkTankWindow(ctx context.Context, store Store, breweryId string, tankId int, start, end time.Time) (*AvailabilityResult, error) {
	open, err := store.ListOpenAssignments(ctx, breweryId, tankId)
	if err != nil {
		return nil, err
	}

	result := &AvailabilityResult{TankId: tankId, Available: true, Conflicts: []int{}}
	for _, assignment := range open {
		if assignment.Overlaps(start, end) {
			result.Conflicts = append(result.Conflicts, assignment.ID)
		}
	}
	result.Available = len(result.Conflicts) == 0
	return result, nil
}
