package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/brewcrafthq/brewery_backend/models"
	"github.com/brewcrafthq/brewery_backend/utils"
)

func seedAssignment(store *memStore, lotId, tankId int, start, end time.Time, status models.AssignmentStatus) *models.TankAssignment {
	assignment := models.TankAssignment{
		ID:           store.d.nextId(),
		BreweryId:    testBrewery,
		LotId:        lotId,
		TankId:       tankId,
		PlannedStart: start,
		PlannedEnd:   end,
		Status:       status,
		Phase:        models.AssignmentPhaseFermentation,
	}
	store.d.assignments[assignment.ID] = assignment
	return &assignment
}

func TestCheckAvailabilityEmptyTank(t *testing.T) {
	svc, store, _ := newTestService()
	tank := seedTank(store, "FV1")

	result, err := svc.CheckAvailability(testContext(), tank.ID, day(10), day(15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Available {
		t.Fatalf("expected tank to be available, conflicts: %v", result.Conflicts)
	}
}

func TestCheckAvailabilityOverlap(t *testing.T) {
	svc, store, _ := newTestService()
	tank := seedTank(store, "FV1")
	existing := seedAssignment(store, 1, tank.ID, day(6), day(10), models.AssignmentStatusPlanned)

	result, err := svc.CheckAvailability(testContext(), tank.ID, day(9), day(12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Available {
		t.Fatal("expected a conflict")
	}
	if len(result.Conflicts) != 1 || result.Conflicts[0] != existing.ID {
		t.Fatalf("expected conflict with assignment %d, got %v", existing.ID, result.Conflicts)
	}
}

func TestCheckAvailabilityBackToBack(t *testing.T) {
	svc, store, _ := newTestService()
	tank := seedTank(store, "FV1")
	seedAssignment(store, 1, tank.ID, day(6), day(10), models.AssignmentStatusPlanned)

	// half-open intervals: ending at 06-10 and starting at 06-10 touch but
	// do not overlap
	result, err := svc.CheckAvailability(testContext(), tank.ID, day(10), day(15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Available {
		t.Fatalf("back-to-back booking should be allowed, conflicts: %v", result.Conflicts)
	}
}

func TestCheckAvailabilityUsesEffectiveStart(t *testing.T) {
	svc, store, _ := newTestService()
	tank := seedTank(store, "FV1")
	assignment := seedAssignment(store, 1, tank.ID, day(10), day(20), models.AssignmentStatusActive)
	started := day(8)
	assignment.StartedAt = &started
	store.d.assignments[assignment.ID] = *assignment

	// the lot went in two days early; [06-08, 06-10) is occupied even
	// though the planned start was 06-10
	result, err := svc.CheckAvailability(testContext(), tank.ID, day(8), day(10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Available {
		t.Fatal("expected conflict with early-started assignment")
	}
}

func TestCheckAvailabilityIgnoresCompleted(t *testing.T) {
	svc, store, _ := newTestService()
	tank := seedTank(store, "FV1")
	seedAssignment(store, 1, tank.ID, day(6), day(10), models.AssignmentStatusCompleted)

	result, err := svc.CheckAvailability(testContext(), tank.ID, day(7), day(9))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Available {
		t.Fatal("completed assignments must not block the window")
	}
}

func TestCheckAvailabilityInvalidWindow(t *testing.T) {
	svc, store, _ := newTestService()
	tank := seedTank(store, "FV1")

	_, err := svc.CheckAvailability(testContext(), tank.ID, day(15), day(10))
	if Kind(err) != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCheckAvailabilityUnknownTank(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CheckAvailability(testContext(), 999, day(10), day(15))
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestCheckAvailabilityCrossTenant(t *testing.T) {
	svc, store, _ := newTestService()
	tank := seedTank(store, "FV1")

	ctx := utils.SetBreweryIdInContext(testContext(), "other-brewery")
	_, err := svc.CheckAvailability(ctx, tank.ID, day(10), day(15))
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("cross-tenant read must look like a missing row, got %v", err)
	}
}

func TestCheckBatchAvailability(t *testing.T) {
	svc, store, _ := newTestService()
	free := seedTank(store, "FV1")
	busy := seedTank(store, "FV2")
	seedAssignment(store, 1, busy.ID, day(6), day(12), models.AssignmentStatusPlanned)

	result, err := svc.CheckBatchAvailability(testContext(), []int{free.ID, busy.ID}, day(10), day(15))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AllAvailable {
		t.Fatal("expected allAvailable=false")
	}
	if !result.Tanks[free.ID].Available {
		t.Fatal("free tank should be available")
	}
	if result.Tanks[busy.ID].Available {
		t.Fatal("busy tank should conflict")
	}
}
