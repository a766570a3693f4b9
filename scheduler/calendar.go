package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/brewcrafthq/brewery_backend/models"
	"github.com/brewcrafthq/brewery_backend/utils"
)

type CalendarBlock struct {
	AssignmentId int                     `json:"assignment_id"`
	LotId        int                     `json:"lot_id"`
	Status       models.AssignmentStatus `json:"status"`
	Phase        models.AssignmentPhase  `json:"phase"`
	Start        time.Time               `json:"start"`
	End          time.Time               `json:"end"`
	BatchIds     []int                   `json:"batch_ids"`
	BatchNames   []string                `json:"batch_names"`
}

type CalendarRow struct {
	TankId   int               `json:"tank_id"`
	TankName string            `json:"tank_name"`
	TankType models.TankType   `json:"tank_type"`
	Status   models.TankStatus `json:"tank_status"`
	Blocks   []CalendarBlock   `json:"blocks"`
}

type CalendarData struct {
	Start time.Time     `json:"start"`
	End   time.Time     `json:"end"`
	Rows  []CalendarRow `json:"rows"`
}

// GenerateCalendarData projects the brewery's assignments onto a per-tank
// timeline for the window [start, end). Blocks are clipped to the window
// and sorted by start; rows come out in tank-name order. Assignments whose
// tank no longer resolves are skipped rather than failing the whole view.
func (s *Service) GenerateCalendarData(ctx context.Context, start, end time.Time) (*CalendarData, error) {
	breweryId, err := breweryIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if !start.Before(end) {
		return nil, newValidationError("start must be before end")
	}

	tanks, err := s.store.ListTanks(ctx, breweryId)
	if err != nil {
		return nil, err
	}
	rowByTank := make(map[int]*CalendarRow, len(tanks))
	rows := make([]*CalendarRow, 0, len(tanks))
	for _, tank := range tanks {
		row := &CalendarRow{
			TankId:   tank.ID,
			TankName: tank.Name,
			TankType: tank.Type,
			Status:   tank.Status,
			Blocks:   []CalendarBlock{},
		}
		rowByTank[tank.ID] = row
		rows = append(rows, row)
	}

	assignments, err := s.store.ListAssignmentsInRange(ctx, breweryId, start, end)
	if err != nil {
		return nil, err
	}

	batchNameCache := make(map[int]lotBatchSummary)
	for _, assignment := range assignments {
		row, ok := rowByTank[assignment.TankId]
		if !ok {
			// stale assignment pointing at a removed tank; leave it off
			// the board instead of failing the projection
			continue
		}

		batchIds, batchNames, err := s.calendarBatchSummary(ctx, breweryId, assignment.LotId, batchNameCache)
		if err != nil {
			return nil, err
		}

		blockStart := assignment.EffectiveStart()
		if blockStart.Before(start) {
			blockStart = start
		}
		blockEnd := assignment.PlannedEnd
		if blockEnd.After(end) {
			blockEnd = end
		}

		row.Blocks = append(row.Blocks, CalendarBlock{
			AssignmentId: assignment.ID,
			LotId:        assignment.LotId,
			Status:       assignment.Status,
			Phase:        assignment.Phase,
			Start:        blockStart,
			End:          blockEnd,
			BatchIds:     batchIds,
			BatchNames:   batchNames,
		})
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].TankName < rows[j].TankName })
	data := &CalendarData{Start: start, End: end, Rows: make([]CalendarRow, 0, len(rows))}
	for _, row := range rows {
		sort.Slice(row.Blocks, func(i, j int) bool { return row.Blocks[i].Start.Before(row.Blocks[j].Start) })
		data.Rows = append(data.Rows, *row)
	}
	return data, nil
}

type lotBatchSummary struct {
	ids   []int
	names []string
}

func (s *Service) calendarBatchSummary(ctx context.Context, breweryId string, lotId int, cache map[int]lotBatchSummary) ([]int, []string, error) {
	if cached, ok := cache[lotId]; ok {
		return cached.ids, cached.names, nil
	}
	lotBatches, err := s.store.ListLotBatches(ctx, breweryId, lotId)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]int, 0, len(lotBatches))
	names := make([]string, 0, len(lotBatches))
	for _, lb := range lotBatches {
		batch, err := s.store.GetBatch(ctx, breweryId, lb.BatchId)
		if err != nil {
			if err == utils.ErrorRecordNotFound {
				continue
			}
			return nil, nil, err
		}
		ids = append(ids, batch.ID)
		names = append(names, batch.Name)
	}
	cache[lotId] = lotBatchSummary{ids: ids, names: names}
	return ids, names, nil
}

// BlockDetail is the drill-down behind a calendar block: the assignment,
// the lot it holds, the contributing batches with their portions, the
// lot's transfer history and the freshest gravity reading per batch.
type BlockDetail struct {
	Assignment     *models.TankAssignment         `json:"assignment"`
	Tank           *models.Tank                   `json:"tank"`
	Lot            *models.Lot                    `json:"lot"`
	Batches        []*models.Batch                `json:"batches"`
	LotBatches     []*models.LotBatch             `json:"lot_batches"`
	Transfers      []*models.TankTransfer         `json:"transfers"`
	LatestReadings map[int]*models.GravityReading `json:"latest_readings"`
}

func (s *Service) GetBlockDetail(ctx context.Context, assignmentId int) (*BlockDetail, error) {
	breweryId, err := breweryIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	assignment, err := s.store.GetAssignment(ctx, breweryId, assignmentId)
	if err != nil {
		return nil, err
	}
	tank, err := s.store.GetTank(ctx, breweryId, assignment.TankId)
	if err != nil {
		return nil, err
	}
	lot, err := s.store.GetLot(ctx, breweryId, assignment.LotId)
	if err != nil {
		return nil, err
	}
	lotBatches, err := s.store.ListLotBatches(ctx, breweryId, assignment.LotId)
	if err != nil {
		return nil, err
	}
	batches, err := s.batchesForLot(ctx, s.store, breweryId, assignment.LotId)
	if err != nil {
		return nil, err
	}
	transfers, err := s.store.ListTransfersForLot(ctx, breweryId, assignment.LotId)
	if err != nil {
		return nil, err
	}

	readings := make(map[int]*models.GravityReading, len(batches))
	for _, batch := range batches {
		reading, err := s.store.LatestGravityReading(ctx, breweryId, batch.ID)
		if err != nil {
			return nil, err
		}
		if reading != nil {
			readings[batch.ID] = reading
		}
	}

	return &BlockDetail{
		Assignment:     assignment,
		Tank:           tank,
		Lot:            lot,
		Batches:        batches,
		LotBatches:     lotBatches,
		Transfers:      transfers,
		LatestReadings: readings,
	}, nil
}
