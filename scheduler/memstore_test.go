package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/brewcrafthq/brewery_backend/config"
	"github.com/brewcrafthq/brewery_backend/models"
	"github.com/brewcrafthq/brewery_backend/utils"
)

// memStore is the in-memory Store used by the scheduler tests. It mirrors
// the GormStore contract: tenant scoping, value-copy reads, transactional
// rollback on error.
type memData struct {
	seq         int
	tanks       map[int]models.Tank
	batches     map[int]models.Batch
	lots        map[int]models.Lot
	lotBatches  []models.LotBatch
	assignments map[int]models.TankAssignment
	transfers   map[int]models.TankTransfer
	timeline    []models.BatchTimeline
	readings    []models.GravityReading
	idemKeys    map[string]bool
}

func newMemData() *memData {
	return &memData{
		tanks:       make(map[int]models.Tank),
		batches:     make(map[int]models.Batch),
		lots:        make(map[int]models.Lot),
		assignments: make(map[int]models.TankAssignment),
		transfers:   make(map[int]models.TankTransfer),
		idemKeys:    make(map[string]bool),
	}
}

func (d *memData) clone() *memData {
	out := newMemData()
	out.seq = d.seq
	for k, v := range d.tanks {
		out.tanks[k] = v
	}
	for k, v := range d.batches {
		out.batches[k] = v
	}
	for k, v := range d.lots {
		out.lots[k] = v
	}
	out.lotBatches = append(out.lotBatches, d.lotBatches...)
	for k, v := range d.assignments {
		out.assignments[k] = v
	}
	for k, v := range d.transfers {
		out.transfers[k] = v
	}
	out.timeline = append(out.timeline, d.timeline...)
	out.readings = append(out.readings, d.readings...)
	for k, v := range d.idemKeys {
		out.idemKeys[k] = v
	}
	return out
}

func (d *memData) nextId() int {
	d.seq++
	return d.seq
}

type memStore struct {
	mu   sync.Mutex
	inTx bool
	d    *memData
}

func newMemStore() *memStore {
	return &memStore{d: newMemData()}
}

func (s *memStore) lock() func() {
	if s.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) InTransaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	backup := s.d.clone()
	tx := &memStore{d: s.d, inTx: true}
	if err := fn(tx); err != nil {
		*s.d = *backup
		return err
	}
	return nil
}

func (s *memStore) GetTank(ctx context.Context, breweryId string, id int) (*models.Tank, error) {
	defer s.lock()()
	tank, ok := s.d.tanks[id]
	if !ok || tank.BreweryId != breweryId {
		return nil, utils.ErrorRecordNotFound
	}
	return &tank, nil
}

func (s *memStore) ListTanks(ctx context.Context, breweryId string) ([]*models.Tank, error) {
	defer s.lock()()
	var out []*models.Tank
	for _, tank := range s.d.tanks {
		if tank.BreweryId == breweryId {
			t := tank
			out = append(out, &t)
		}
	}
	return out, nil
}

func (s *memStore) UpdateTankStatus(ctx context.Context, breweryId string, id int, status models.TankStatus) error {
	defer s.lock()()
	tank, ok := s.d.tanks[id]
	if !ok || tank.BreweryId != breweryId {
		return utils.ErrorRecordNotFound
	}
	tank.Status = status
	s.d.tanks[id] = tank
	return nil
}

func (s *memStore) GetBatch(ctx context.Context, breweryId string, id int) (*models.Batch, error) {
	defer s.lock()()
	batch, ok := s.d.batches[id]
	if !ok || batch.BreweryId != breweryId {
		return nil, utils.ErrorRecordNotFound
	}
	return &batch, nil
}

func (s *memStore) ListBatchesByIds(ctx context.Context, breweryId string, ids []int) ([]*models.Batch, error) {
	defer s.lock()()
	out := make([]*models.Batch, 0, len(ids))
	for _, id := range utils.UniqueSlice(ids) {
		batch, ok := s.d.batches[id]
		if !ok || batch.BreweryId != breweryId {
			return nil, utils.ErrorRecordNotFound
		}
		b := batch
		out = append(out, &b)
	}
	return out, nil
}

func (s *memStore) UpdateBatch(ctx context.Context, batch *models.Batch) error {
	defer s.lock()()
	s.d.batches[batch.ID] = *batch
	return nil
}

func (s *memStore) CreateLot(ctx context.Context, lot *models.Lot) error {
	defer s.lock()()
	lot.ID = s.d.nextId()
	s.d.lots[lot.ID] = *lot
	return nil
}

func (s *memStore) GetLot(ctx context.Context, breweryId string, id int) (*models.Lot, error) {
	defer s.lock()()
	lot, ok := s.d.lots[id]
	if !ok || lot.BreweryId != breweryId {
		return nil, utils.ErrorRecordNotFound
	}
	return &lot, nil
}

func (s *memStore) UpdateLot(ctx context.Context, lot *models.Lot) error {
	defer s.lock()()
	s.d.lots[lot.ID] = *lot
	return nil
}

func (s *memStore) CreateLotBatch(ctx context.Context, lotBatch *models.LotBatch) error {
	defer s.lock()()
	lotBatch.ID = s.d.nextId()
	s.d.lotBatches = append(s.d.lotBatches, *lotBatch)
	return nil
}

func (s *memStore) ListLotBatches(ctx context.Context, breweryId string, lotId int) ([]*models.LotBatch, error) {
	defer s.lock()()
	var out []*models.LotBatch
	for _, lb := range s.d.lotBatches {
		if lb.BreweryId == breweryId && lb.LotId == lotId {
			cp := lb
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) CreateAssignment(ctx context.Context, assignment *models.TankAssignment) error {
	defer s.lock()()
	assignment.ID = s.d.nextId()
	s.d.assignments[assignment.ID] = *assignment
	return nil
}

func (s *memStore) GetAssignment(ctx context.Context, breweryId string, id int) (*models.TankAssignment, error) {
	defer s.lock()()
	assignment, ok := s.d.assignments[id]
	if !ok || assignment.BreweryId != breweryId {
		return nil, utils.ErrorRecordNotFound
	}
	return &assignment, nil
}

func (s *memStore) UpdateAssignment(ctx context.Context, assignment *models.TankAssignment) error {
	defer s.lock()()
	s.d.assignments[assignment.ID] = *assignment
	return nil
}

func (s *memStore) ListOpenAssignments(ctx context.Context, breweryId string, tankId int) ([]*models.TankAssignment, error) {
	defer s.lock()()
	var out []*models.TankAssignment
	for _, a := range s.d.assignments {
		if a.BreweryId != breweryId || a.TankId != tankId {
			continue
		}
		if a.Status != models.AssignmentStatusPlanned && a.Status != models.AssignmentStatusActive {
			continue
		}
		cp := a
		out = append(out, &cp)
	}
	return out, nil
}

func (s *memStore) ListAssignmentsForLot(ctx context.Context, breweryId string, lotId int) ([]*models.TankAssignment, error) {
	defer s.lock()()
	var out []*models.TankAssignment
	for _, a := range s.d.assignments {
		if a.BreweryId == breweryId && a.LotId == lotId {
			cp := a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) ListAssignmentsInRange(ctx context.Context, breweryId string, start, end time.Time) ([]*models.TankAssignment, error) {
	defer s.lock()()
	var out []*models.TankAssignment
	for _, a := range s.d.assignments {
		if a.BreweryId != breweryId {
			continue
		}
		if a.EffectiveStart().Before(end) && start.Before(a.PlannedEnd) {
			cp := a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) CreateTransfer(ctx context.Context, transfer *models.TankTransfer) error {
	defer s.lock()()
	transfer.ID = s.d.nextId()
	s.d.transfers[transfer.ID] = *transfer
	return nil
}

func (s *memStore) GetTransfer(ctx context.Context, breweryId string, id int) (*models.TankTransfer, error) {
	defer s.lock()()
	transfer, ok := s.d.transfers[id]
	if !ok || transfer.BreweryId != breweryId {
		return nil, utils.ErrorRecordNotFound
	}
	return &transfer, nil
}

func (s *memStore) UpdateTransfer(ctx context.Context, transfer *models.TankTransfer) error {
	defer s.lock()()
	s.d.transfers[transfer.ID] = *transfer
	return nil
}

func (s *memStore) ListTransfersForLot(ctx context.Context, breweryId string, lotId int) ([]*models.TankTransfer, error) {
	defer s.lock()()
	var out []*models.TankTransfer
	for _, tr := range s.d.transfers {
		if tr.BreweryId == breweryId && tr.LotId == lotId {
			cp := tr
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) CreateTimelineEntry(ctx context.Context, entry *models.BatchTimeline) error {
	defer s.lock()()
	entry.ID = s.d.nextId()
	entry.CreatedAt = time.Now().UTC()
	s.d.timeline = append(s.d.timeline, *entry)
	return nil
}

func (s *memStore) CreateGravityReading(ctx context.Context, reading *models.GravityReading) error {
	defer s.lock()()
	reading.ID = s.d.nextId()
	s.d.readings = append(s.d.readings, *reading)
	return nil
}

func (s *memStore) LatestGravityReading(ctx context.Context, breweryId string, batchId int) (*models.GravityReading, error) {
	defer s.lock()()
	var latest *models.GravityReading
	for i := range s.d.readings {
		r := s.d.readings[i]
		if r.BreweryId != breweryId || r.BatchId != batchId {
			continue
		}
		if latest == nil || r.RecordedAt.After(latest.RecordedAt) {
			cp := r
			latest = &cp
		}
	}
	return latest, nil
}

func (s *memStore) CreateIdempotencyKey(ctx context.Context, key *models.IdempotencyKey) (bool, error) {
	defer s.lock()()
	k := key.BreweryId + "|" + key.HandlerName + "|" + key.RequestKey
	if s.d.idemKeys[k] {
		return false, nil
	}
	s.d.idemKeys[k] = true
	return true, nil
}

// timelineEntries returns the recorded entries for a batch, oldest first.
func (s *memStore) timelineEntries(batchId int) []models.BatchTimeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.BatchTimeline
	for _, e := range s.d.timeline {
		if e.BatchId == batchId {
			out = append(out, e)
		}
	}
	return out
}

// memLocker serializes callers per key with plain mutexes.
type memLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMemLocker() *memLocker {
	return &memLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *memLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	l.mu.Lock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	l.mu.Unlock()

	m.Lock()
	defer m.Unlock()
	return fn()
}

// busyLocker fails every acquisition, simulating lock contention past the
// retry budget.
type busyLocker struct{}

func (busyLocker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error {
	return ErrLockTimeout
}

type memIdemCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMemIdemCache() *memIdemCache {
	return &memIdemCache{items: make(map[string][]byte)}
}

func (c *memIdemCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.items[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *memIdemCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.items[key] = data
	return nil
}

func (c *memIdemCache) drop(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

const testBrewery = "brewery-1"

func testContext() context.Context {
	ctx := utils.SetBreweryIdInContext(context.Background(), testBrewery)
	ctx = utils.SetUserIdInContext(ctx, 7)
	return utils.SetUserNameInContext(ctx, "brewer")
}

func newTestService() (*Service, *memStore, *memIdemCache) {
	store := newMemStore()
	cache := newMemIdemCache()
	svc := NewService(store, newMemLocker(), cache, config.GetLogger())
	return svc, store, cache
}

func seedTank(store *memStore, name string) *models.Tank {
	tank := models.Tank{
		ID:             store.d.nextId(),
		BreweryId:      testBrewery,
		Name:           name,
		Type:           models.TankTypeFermenter,
		CapacityLiters: decimal.NewFromInt(2000),
		Status:         models.TankStatusAvailable,
	}
	store.d.tanks[tank.ID] = tank
	return &tank
}

func seedBatch(store *memStore, status models.BatchStatus, volume int64) *models.Batch {
	batch := models.Batch{
		ID:        store.d.nextId(),
		BreweryId: testBrewery,
		RecipeId:  1,
		Name:      fmt.Sprintf("batch-%d", store.d.seq),
		Volume:    decimal.NewFromInt(volume),
		Status:    status,
	}
	store.d.batches[batch.ID] = batch
	return &batch
}

func day(d int) time.Time {
	return time.Date(2026, 6, d, 0, 0, 0, 0, time.UTC)
}
