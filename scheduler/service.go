package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brewcrafthq/brewery_backend/utils"
)

const (
	// DefaultLockTTL bounds the stuck-lock failure mode: a crashed holder's
	// lock becomes acquirable again after the TTL.
	DefaultLockTTL = 30 * time.Second
	// DefaultIdempotencyTTL is how long a cached planning result answers
	// replays with the identical response.
	DefaultIdempotencyTTL = 24 * time.Hour
)

// Service is the tank assignment scheduler. All of its mutating operations
// run as: acquire tank lock(s) -> re-check availability -> write all
// records in one transaction -> release. Read paths never lock.
type Service struct {
	store   Store
	locker  Locker
	idem    IdempotencyCache
	logger  *logrus.Logger
	lockTTL time.Duration
	idemTTL time.Duration
}

func NewService(store Store, locker Locker, idem IdempotencyCache, logger *logrus.Logger) *Service {
	return &Service{
		store:   store,
		locker:  locker,
		idem:    idem,
		logger:  logger,
		lockTTL: DefaultLockTTL,
		idemTTL: DefaultIdempotencyTTL,
	}
}

func breweryIdFromContext(ctx context.Context) (string, error) {
	breweryId, ok := utils.GetBreweryIdFromContext(ctx)
	if !ok || breweryId == "" {
		return "", newValidationError("brewery id is required")
	}
	return breweryId, nil
}

// WithBatchCreateLock serializes batch/lot creation for the caller's
// brewery, so concurrent create requests cannot race each other's
// uniqueness checks.
func (s *Service) WithBatchCreateLock(ctx context.Context, fn func() error) error {
	breweryId, err := breweryIdFromContext(ctx)
	if err != nil {
		return err
	}
	return s.locker.WithLock(ctx, BatchCreateLockKey(breweryId), s.lockTTL, fn)
}

// withTankLocks acquires one lock per tank in ascending tank-ID order, so
// two concurrent multi-destination requests sharing tanks cannot deadlock.
func (s *Service) withTankLocks(ctx context.Context, breweryId string, tankIds []int, fn func() error) error {
	ids := utils.UniqueSlice(tankIds)
	sort.Ints(ids)
	return s.lockNext(ctx, breweryId, ids, fn)
}

func (s *Service) lockNext(ctx context.Context, breweryId string, tankIds []int, fn func() error) error {
	if len(tankIds) == 0 {
		return fn()
	}
	return s.locker.WithLock(ctx, TankLockKey(breweryId, tankIds[0]), s.lockTTL, func() error {
		return s.lockNext(ctx, breweryId, tankIds[1:], fn)
	})
}
