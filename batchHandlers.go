package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/brewcrafthq/brewery_backend/models"
	"github.com/brewcrafthq/brewery_backend/scheduler"
)

func createBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewBatch
		if !bindJSON(c, &input) {
			return
		}
		// batch creation is serialized per brewery
		var batch *models.Batch
		err := getScheduler().WithBatchCreateLock(c.Request.Context(), func() error {
			var createErr error
			batch, createErr = models.CreateBatch(c.Request.Context(), &input)
			return createErr
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, batch)
	}
}

func getBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		batch, err := models.GetBatch(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, batch)
	}
}

func listBatchesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var status *models.BatchStatus
		if v := c.Query("status"); v != "" {
			s := models.BatchStatus(v)
			status = &s
		}
		batches, err := models.ListBatches(c.Request.Context(), status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, batches)
	}
}

type cancelBatchRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func cancelBatchHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req cancelBatchRequest
		if !bindJSON(c, &req) {
			return
		}
		batch, err := getScheduler().CancelBatch(c.Request.Context(), id, req.Reason)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, batch)
	}
}

func getBatchTimelineHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		entries, err := models.GetBatchTimeline(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, entries)
	}
}

func recordGravityReadingHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input scheduler.NewGravityReading
		if !bindJSON(c, &input) {
			return
		}
		reading, err := getScheduler().RecordGravityReading(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, reading)
	}
}

func listGravityReadingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		readings, err := models.ListGravityReadings(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, readings)
	}
}
