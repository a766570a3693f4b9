package scheduler

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/brewcrafthq/brewery_backend/config"
	"github.com/brewcrafthq/brewery_backend/models"
)

func TestPlanFermentationSingleDestination(t *testing.T) {
	svc, store, _ := newTestService()
	tank := seedTank(store, "FV1")
	batch := seedBatch(store, models.BatchStatusPlanned, 1000)

	result, err := svc.PlanFermentation(testContext(), &PlanFermentationInput{
		BatchIds: []int{batch.ID},
		Destinations: []Destination{
			{TankId: tank.ID, PlannedStart: day(10), PlannedEnd: day(20)},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Assignments) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(result.Assignments))
	}
	planned := result.Assignments[0]
	if planned.Phase != string(models.AssignmentPhaseFermentation) {
		t.Fatalf("expected FERMENTATION phase, got %s", planned.Phase)
	}
	if !planned.VolumePortion.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("expected full volume portion, got %s", planned.VolumePortion)
	}

	got, err := store.GetBatch(testContext(), testBrewery, batch.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.BatchStatusBrewing {
		t.Fatalf("planning must advance PLANNED batch to BREWING, got %s", got.Status)
	}

	entries := store.timelineEntries(batch.ID)
	if len(entries) != 1 || entries[0].Type != models.TimelineFermentationPlanned {
		t.Fatalf("expected one FERMENTATION_PLANNED timeline entry, got %v", entries)
	}
}

func TestPlanFermentationSplitEqualPortions(t *testing.T) {
	svc, store, _ := newTestService()
	fv1 := seedTank(store, "FV1")
	fv2 := seedTank(store, "FV2")
	batch := seedBatch(store, models.BatchStatusPlanned, 1000)

	result, err := svc.PlanFermentation(testContext(), &PlanFermentationInput{
		BatchIds: []int{batch.ID},
		Destinations: []Destination{
			{TankId: fv1.ID, PlannedStart: day(10), PlannedEnd: day(20)},
			{TankId: fv2.ID, PlannedStart: day(10), PlannedEnd: day(20)},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(result.Assignments))
	}
	sum := decimal.Zero
	for _, a := range result.Assignments {
		if a.LotId == 0 {
			t.Fatal("each destination must get its own lot")
		}
		if !a.VolumePortion.Equal(decimal.NewFromInt(500)) {
			t.Fatalf("expected equal 500L portions, got %s", a.VolumePortion)
		}
		sum = sum.Add(a.VolumePortion)
	}
	if !sum.Equal(batch.Volume) {
		t.Fatalf("portions must sum to batch volume, got %s", sum)
	}
	if result.Assignments[0].LotId == result.Assignments[1].LotId {
		t.Fatal("split destinations must not share a lot")
	}
}

func TestPlanFermentationSplitExplicitPortions(t *testing.T) {
	svc, store, _ := newTestService()
	fv1 := seedTank(store, "FV1")
	fv2 := seedTank(store, "FV2")
	batch := seedBatch(store, models.BatchStatusPlanned, 1000)

	p1 := decimal.NewFromInt(700)
	p2 := decimal.NewFromInt(200)
	_, err := svc.PlanFermentation(testContext(), &PlanFermentationInput{
		BatchIds: []int{batch.ID},
		Destinations: []Destination{
			{TankId: fv1.ID, PlannedStart: day(10), PlannedEnd: day(20), VolumePortion: &p1},
			{TankId: fv2.ID, PlannedStart: day(10), PlannedEnd: day(20), VolumePortion: &p2},
		},
	})
	if Kind(err) != KindValidation {
		t.Fatalf("portions not summing to volume must fail validation, got %v", err)
	}
}

func TestPlanFermentationAllOrNothing(t *testing.T) {
	svc, store, _ := newTestService()
	free := seedTank(store, "FV1")
	busy := seedTank(store, "FV2")
	seedAssignment(store, 90, busy.ID, day(5), day(15), models.AssignmentStatusPlanned)
	batch := seedBatch(store, models.BatchStatusPlanned, 1000)

	_, err := svc.PlanFermentation(testContext(), &PlanFermentationInput{
		BatchIds: []int{batch.ID},
		Destinations: []Destination{
			{TankId: free.ID, PlannedStart: day(10), PlannedEnd: day(20)},
			{TankId: busy.ID, PlannedStart: day(10), PlannedEnd: day(20)},
		},
	})
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if len(conflict.Conflicts) != 1 || conflict.Conflicts[0].TankId != busy.ID {
		t.Fatalf("expected conflict on tank %d, got %+v", busy.ID, conflict.Conflicts)
	}

	// nothing may be booked, not even the free destination
	open, err := store.ListOpenAssignments(testContext(), testBrewery, free.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(open) != 0 {
		t.Fatal("conflicting request must not book the free tank")
	}
	got, _ := store.GetBatch(testContext(), testBrewery, batch.ID)
	if got.Status != models.BatchStatusPlanned {
		t.Fatalf("batch must stay PLANNED after a failed plan, got %s", got.Status)
	}
}

func TestPlanFermentationBlend(t *testing.T) {
	svc, store, _ := newTestService()
	tank := seedTank(store, "BBT1")
	b1 := seedBatch(store, models.BatchStatusFermenting, 500)
	b2 := seedBatch(store, models.BatchStatusFermenting, 300)

	result, err := svc.PlanFermentation(testContext(), &PlanFermentationInput{
		BatchIds: []int{b1.ID, b2.ID},
		Destinations: []Destination{
			{TankId: tank.ID, PlannedStart: day(10), PlannedEnd: day(20)},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Assignments) != 1 {
		t.Fatalf("blend must create exactly one assignment, got %d", len(result.Assignments))
	}
	if result.Assignments[0].Phase != string(models.AssignmentPhaseBright) {
		t.Fatalf("blending fermenting batches goes to BRIGHT, got %s", result.Assignments[0].Phase)
	}

	lotBatches, _ := store.ListLotBatches(testContext(), testBrewery, result.Assignments[0].LotId)
	if len(lotBatches) != 2 {
		t.Fatalf("expected 2 lot batches, got %d", len(lotBatches))
	}
}

func TestPlanFermentationBlendMixedStatus(t *testing.T) {
	svc, store, _ := newTestService()
	tank := seedTank(store, "BBT1")
	b1 := seedBatch(store, models.BatchStatusFermenting, 500)
	b2 := seedBatch(store, models.BatchStatusPlanned, 300)

	_, err := svc.PlanFermentation(testContext(), &PlanFermentationInput{
		BatchIds: []int{b1.ID, b2.ID},
		Destinations: []Destination{
			{TankId: tank.ID, PlannedStart: day(10), PlannedEnd: day(20)},
		},
	})
	var incompatible *IncompatibleBatchStateError
	if !errors.As(err, &incompatible) {
		t.Fatalf("expected IncompatibleBatchStateError, got %v", err)
	}
}

func TestPlanFermentationNonPlannedBatch(t *testing.T) {
	svc, store, _ := newTestService()
	tank := seedTank(store, "FV1")
	batch := seedBatch(store, models.BatchStatusPackaging, 1000)

	_, err := svc.PlanFermentation(testContext(), &PlanFermentationInput{
		BatchIds: []int{batch.ID},
		Destinations: []Destination{
			{TankId: tank.ID, PlannedStart: day(10), PlannedEnd: day(20)},
		},
	})
	if Kind(err) != KindInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestPlanFermentationOverlappingDestinations(t *testing.T) {
	svc, store, _ := newTestService()
	tank := seedTank(store, "FV1")
	batch := seedBatch(store, models.BatchStatusPlanned, 1000)

	_, err := svc.PlanFermentation(testContext(), &PlanFermentationInput{
		BatchIds: []int{batch.ID},
		Destinations: []Destination{
			{TankId: tank.ID, PlannedStart: day(10), PlannedEnd: day(20)},
			{TankId: tank.ID, PlannedStart: day(15), PlannedEnd: day(25)},
		},
	})
	if Kind(err) != KindValidation {
		t.Fatalf("in-request overlap must fail validation, got %v", err)
	}
}

func TestPlanFermentationIdempotentReplay(t *testing.T) {
	svc, store, cache := newTestService()
	tank := seedTank(store, "FV1")
	batch := seedBatch(store, models.BatchStatusPlanned, 1000)

	input := &PlanFermentationInput{
		BatchIds: []int{batch.ID},
		Destinations: []Destination{
			{TankId: tank.ID, PlannedStart: day(10), PlannedEnd: day(20)},
		},
		IdempotencyKey: "req-42",
	}
	first, err := svc.PlanFermentation(testContext(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.PlanFermentation(testContext(), input)
	if err != nil {
		t.Fatalf("replay must succeed, got %v", err)
	}
	if len(second.Assignments) != 1 || second.Assignments[0].AssignmentId != first.Assignments[0].AssignmentId {
		t.Fatalf("replay must return the original result, got %+v", second)
	}
	open, _ := store.ListOpenAssignments(testContext(), testBrewery, tank.ID)
	if len(open) != 1 {
		t.Fatalf("replay must not double-book, found %d assignments", len(open))
	}

	// after the cached result expires the durable key still rejects reuse
	cache.drop("idem:plan-fermentation:" + testBrewery + ":req-42")
	_, err = svc.PlanFermentation(testContext(), input)
	if !errors.Is(err, ErrDuplicateRequest) {
		t.Fatalf("expected duplicate request after cache expiry, got %v", err)
	}
	open, _ = store.ListOpenAssignments(testContext(), testBrewery, tank.ID)
	if len(open) != 1 {
		t.Fatalf("duplicate must not book again, found %d assignments", len(open))
	}
}

func TestPlanFermentationLockTimeout(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, busyLocker{}, newMemIdemCache(), config.GetLogger())
	tank := seedTank(store, "FV1")
	batch := seedBatch(store, models.BatchStatusPlanned, 1000)

	_, err := svc.PlanFermentation(testContext(), &PlanFermentationInput{
		BatchIds: []int{batch.ID},
		Destinations: []Destination{
			{TankId: tank.ID, PlannedStart: day(10), PlannedEnd: day(20)},
		},
	})
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected lock timeout, got %v", err)
	}
}

func TestPlanFermentationConcurrentSameWindow(t *testing.T) {
	svc, store, _ := newTestService()
	tank := seedTank(store, "FV1")
	b1 := seedBatch(store, models.BatchStatusPlanned, 500)
	b2 := seedBatch(store, models.BatchStatusPlanned, 500)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, batch := range []*models.Batch{b1, b2} {
		wg.Add(1)
		go func(i int, batchId int) {
			defer wg.Done()
			_, errs[i] = svc.PlanFermentation(testContext(), &PlanFermentationInput{
				BatchIds: []int{batchId},
				Destinations: []Destination{
					{TankId: tank.ID, PlannedStart: day(10), PlannedEnd: day(20)},
				},
			})
		}(i, batch.ID)
	}
	wg.Wait()

	var conflicts, successes int
	for _, err := range errs {
		switch {
		case err == nil:
			successes++
		case Kind(err) == KindConflict:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("expected exactly one winner and one conflict, got %d/%d", successes, conflicts)
	}
	open, _ := store.ListOpenAssignments(testContext(), testBrewery, tank.ID)
	if len(open) != 1 {
		t.Fatalf("tank must hold exactly one booking, found %d", len(open))
	}
}

func TestStartLot(t *testing.T) {
	svc, store, _ := newTestService()
	tank := seedTank(store, "FV1")
	batch := seedBatch(store, models.BatchStatusPlanned, 1000)

	result, err := svc.PlanFermentation(testContext(), &PlanFermentationInput{
		BatchIds: []int{batch.ID},
		Destinations: []Destination{
			{TankId: tank.ID, PlannedStart: day(10), PlannedEnd: day(20)},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lotId := result.Assignments[0].LotId

	started := day(10)
	assignment, err := svc.StartLot(testContext(), lotId, &started)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assignment.Status != models.AssignmentStatusActive {
		t.Fatalf("expected ACTIVE, got %s", assignment.Status)
	}
	if assignment.StartedAt == nil || !assignment.StartedAt.Equal(started) {
		t.Fatalf("startedAt not recorded: %v", assignment.StartedAt)
	}

	got, _ := store.GetBatch(testContext(), testBrewery, batch.ID)
	if got.Status != models.BatchStatusFermenting {
		t.Fatalf("starting a fermentation lot must move batch to FERMENTING, got %s", got.Status)
	}
	if got.BrewedAt == nil {
		t.Fatal("brewedAt must be stamped on first fermentation start")
	}
	tk, _ := store.GetTank(testContext(), testBrewery, tank.ID)
	if tk.Status != models.TankStatusInUse {
		t.Fatalf("tank must be IN_USE, got %s", tk.Status)
	}

	// second start must fail the PLANNED guard
	_, err = svc.StartLot(testContext(), lotId, &started)
	if Kind(err) != KindInvalidTransition {
		t.Fatalf("expected invalid transition on double start, got %v", err)
	}
}

func TestStartAssignmentEarlyStartConflict(t *testing.T) {
	svc, store, _ := newTestService()
	tank := seedTank(store, "FV1")
	seedAssignment(store, 80, tank.ID, day(5), day(10), models.AssignmentStatusActive)
	assignment := seedAssignment(store, 81, tank.ID, day(10), day(20), models.AssignmentStatusPlanned)
	store.d.lots[80] = models.Lot{ID: 80, BreweryId: testBrewery}
	store.d.lots[81] = models.Lot{ID: 81, BreweryId: testBrewery}

	early := day(9)
	_, err := svc.StartAssignment(testContext(), assignment.ID, &early)
	if Kind(err) != KindConflict {
		t.Fatalf("starting early into an occupied window must conflict, got %v", err)
	}
}

func TestCompleteAssignment(t *testing.T) {
	svc, store, _ := newTestService()
	tank := seedTank(store, "FV1")
	batch := seedBatch(store, models.BatchStatusPlanned, 1000)

	result, err := svc.PlanFermentation(testContext(), &PlanFermentationInput{
		BatchIds: []int{batch.ID},
		Destinations: []Destination{
			{TankId: tank.ID, PlannedStart: day(10), PlannedEnd: day(20)},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assignmentId := result.Assignments[0].AssignmentId
	lotId := result.Assignments[0].LotId

	// completing a PLANNED assignment is rejected
	_, err = svc.CompleteAssignment(testContext(), assignmentId, true, nil)
	if Kind(err) != KindInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	if _, err := svc.StartLot(testContext(), lotId, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ended := day(20)
	assignment, err := svc.CompleteAssignment(testContext(), assignmentId, true, &ended)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assignment.Status != models.AssignmentStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", assignment.Status)
	}

	tk, _ := store.GetTank(testContext(), testBrewery, tank.ID)
	if tk.Status != models.TankStatusNeedsCIP {
		t.Fatalf("released tank must go to NEEDS_CIP, got %s", tk.Status)
	}
	lot, _ := store.GetLot(testContext(), testBrewery, lotId)
	if lot.CompletedAt == nil {
		t.Fatal("lot must be completed once its only assignment is done")
	}
}

func TestTransferFlow(t *testing.T) {
	svc, store, _ := newTestService()
	fv := seedTank(store, "FV1")
	bbt := seedTank(store, "BBT1")
	batch := seedBatch(store, models.BatchStatusPlanned, 1000)

	result, err := svc.PlanFermentation(testContext(), &PlanFermentationInput{
		BatchIds: []int{batch.ID},
		Destinations: []Destination{
			{TankId: fv.ID, PlannedStart: day(1), PlannedEnd: day(20)},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lotId := result.Assignments[0].LotId
	if _, err := svc.StartLot(testContext(), lotId, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	transfer, err := svc.PlanTransfer(testContext(), &PlanTransferInput{
		LotId:     lotId,
		ToTankId:  bbt.ID,
		PlannedAt: day(14),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transfer.FromTankId != fv.ID || transfer.ToTankId != bbt.ID {
		t.Fatalf("wrong endpoints: %+v", transfer)
	}

	executed := day(14)
	transfer, err = svc.ExecuteTransfer(testContext(), transfer.ID, &executed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transfer.ExecutedAt == nil {
		t.Fatal("executedAt must be set")
	}

	assignment, _ := store.GetAssignment(testContext(), testBrewery, result.Assignments[0].AssignmentId)
	if assignment.TankId != bbt.ID {
		t.Fatalf("assignment must follow the lot to tank %d, got %d", bbt.ID, assignment.TankId)
	}
	from, _ := store.GetTank(testContext(), testBrewery, fv.ID)
	if from.Status != models.TankStatusNeedsCIP {
		t.Fatalf("vacated tank must need CIP, got %s", from.Status)
	}
	to, _ := store.GetTank(testContext(), testBrewery, bbt.ID)
	if to.Status != models.TankStatusInUse {
		t.Fatalf("destination tank must be IN_USE, got %s", to.Status)
	}

	// executing twice is rejected
	_, err = svc.ExecuteTransfer(testContext(), transfer.ID, &executed)
	if Kind(err) != KindInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestExecuteTransferStartsDestinationOccupancyAtExecution(t *testing.T) {
	svc, store, _ := newTestService()
	fv := seedTank(store, "FV1")
	bbt := seedTank(store, "BBT1")
	// the destination already hosted a booking that ends before the move
	past := seedAssignment(store, 90, bbt.ID, day(5), day(13), models.AssignmentStatusPlanned)
	batch := seedBatch(store, models.BatchStatusPlanned, 1000)

	result, err := svc.PlanFermentation(testContext(), &PlanFermentationInput{
		BatchIds: []int{batch.ID},
		Destinations: []Destination{
			{TankId: fv.ID, PlannedStart: day(1), PlannedEnd: day(20)},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	started := day(1)
	if _, err := svc.StartLot(testContext(), result.Assignments[0].LotId, &started); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	transfer, err := svc.PlanTransfer(testContext(), &PlanTransferInput{
		LotId:     result.Assignments[0].LotId,
		ToTankId:  bbt.ID,
		PlannedAt: day(14),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	executed := day(14)
	if _, err := svc.ExecuteTransfer(testContext(), transfer.ID, &executed); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	moved, _ := store.GetAssignment(testContext(), testBrewery, result.Assignments[0].AssignmentId)
	if moved.StartedAt == nil || !moved.StartedAt.Equal(executed) {
		t.Fatalf("moved assignment must occupy the destination from execution time, got %v", moved.StartedAt)
	}
	if moved.Overlaps(day(5), day(13)) {
		t.Fatal("moved assignment must not claim the destination's past")
	}

	// the no-double-booking invariant holds pairwise on the destination
	open, err := store.ListOpenAssignments(testContext(), testBrewery, bbt.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected 2 open assignments on the destination, got %d", len(open))
	}
	for i, a := range open {
		for _, b := range open[i+1:] {
			if a.Overlaps(b.EffectiveStart(), b.PlannedEnd) {
				t.Fatalf("overlap on tank %d: assignment %d vs %d", bbt.ID, a.ID, b.ID)
			}
		}
	}

	// a past window on the destination conflicts only with its real booking
	check, err := svc.CheckAvailability(testContext(), bbt.ID, day(6), day(12))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(check.Conflicts) != 1 || check.Conflicts[0] != past.ID {
		t.Fatalf("expected only assignment %d to block the past window, got %v", past.ID, check.Conflicts)
	}
}

func TestPlanTransferDestinationBusy(t *testing.T) {
	svc, store, _ := newTestService()
	fv := seedTank(store, "FV1")
	bbt := seedTank(store, "BBT1")
	seedAssignment(store, 90, bbt.ID, day(10), day(30), models.AssignmentStatusPlanned)
	batch := seedBatch(store, models.BatchStatusPlanned, 1000)

	result, err := svc.PlanFermentation(testContext(), &PlanFermentationInput{
		BatchIds: []int{batch.ID},
		Destinations: []Destination{
			{TankId: fv.ID, PlannedStart: day(1), PlannedEnd: day(20)},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lotId := result.Assignments[0].LotId
	if _, err := svc.StartLot(testContext(), lotId, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.PlanTransfer(testContext(), &PlanTransferInput{
		LotId:     lotId,
		ToTankId:  bbt.ID,
		PlannedAt: day(14),
	})
	if Kind(err) != KindConflict {
		t.Fatalf("busy destination must conflict, got %v", err)
	}
}

func TestMarkPhaseForwardOnly(t *testing.T) {
	svc, store, _ := newTestService()
	tank := seedTank(store, "FV1")
	batch := seedBatch(store, models.BatchStatusPlanned, 1000)

	result, err := svc.PlanFermentation(testContext(), &PlanFermentationInput{
		BatchIds: []int{batch.ID},
		Destinations: []Destination{
			{TankId: tank.ID, PlannedStart: day(1), PlannedEnd: day(30)},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assignmentId := result.Assignments[0].AssignmentId
	lotId := result.Assignments[0].LotId
	if _, err := svc.StartLot(testContext(), lotId, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assignment, err := svc.MarkPhase(testContext(), assignmentId, models.AssignmentPhaseBright)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if assignment.Phase != models.AssignmentPhaseBright {
		t.Fatalf("expected BRIGHT, got %s", assignment.Phase)
	}
	got, _ := store.GetBatch(testContext(), testBrewery, batch.ID)
	if got.Status != models.BatchStatusConditioning {
		t.Fatalf("marking bright must condition the batch, got %s", got.Status)
	}

	// backwards is rejected
	_, err = svc.MarkPhase(testContext(), assignmentId, models.AssignmentPhaseFermentation)
	if Kind(err) != KindInvalidTransition {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	if _, err := svc.MarkPhase(testContext(), assignmentId, models.AssignmentPhasePackaging); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ = store.GetBatch(testContext(), testBrewery, batch.ID)
	if got.Status != models.BatchStatusPackaging {
		t.Fatalf("start-packaging must sync the batch, got %s", got.Status)
	}
}
