package main

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/brewcrafthq/brewery_backend/config"
	"github.com/brewcrafthq/brewery_backend/scheduler"
	"github.com/brewcrafthq/brewery_backend/utils"
)

var (
	schedulerOnce sync.Once
	schedulerSvc  *scheduler.Service
)

// getScheduler builds the service on first use. The readiness gate in
// main() guarantees DB and Redis are connected before any handler runs.
func getScheduler() *scheduler.Service {
	schedulerOnce.Do(func() {
		schedulerSvc = scheduler.NewService(
			scheduler.NewGormStore(config.GetDB()),
			scheduler.NewRedisLocker(config.GetRedisLock()),
			scheduler.NewRedisIdempotencyCache(config.GetRedisDB()),
			config.GetLogger(),
		)
	})
	return schedulerSvc
}

// respondError maps scheduler error kinds to HTTP statuses. Cross-tenant
// reads surface as plain 404s; the response never reveals that the row
// exists under another brewery.
func respondError(c *gin.Context, err error) {
	kind := scheduler.Kind(err)
	status := http.StatusBadRequest
	switch kind {
	case scheduler.KindConflict, scheduler.KindDuplicate:
		status = http.StatusConflict
	case scheduler.KindInvalidTransition, scheduler.KindIncompatibleBatch:
		status = http.StatusUnprocessableEntity
	case scheduler.KindNotFound:
		status = http.StatusNotFound
	case scheduler.KindLockTimeout:
		status = http.StatusServiceUnavailable
	case scheduler.KindValidation:
		status = http.StatusBadRequest
	default:
		// untyped errors are infrastructure failures, not client mistakes
		status = http.StatusInternalServerError
		_ = c.Error(err)
	}

	body := gin.H{"error": err.Error()}
	if kind != "" {
		body["kind"] = kind
	}
	var conflict *scheduler.ConflictError
	if errors.As(err, &conflict) {
		body["conflicts"] = conflict.Conflicts
	}
	c.JSON(status, body)
}

// bindJSON binds and validates a JSON body. Field-level failures come back
// as a per-field map so the caller sees every violated rule at once.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "validation failed",
				"fields": utils.ProcessValidationErrors(err),
			})
		} else {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		}
		return false
	}
	return true
}

func pathId(c *gin.Context, name string) (int, bool) {
	id, ok := utils.ParseId(c.Param(name))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}
