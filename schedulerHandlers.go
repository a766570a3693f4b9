package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brewcrafthq/brewery_backend/models"
	"github.com/brewcrafthq/brewery_backend/scheduler"
	"github.com/brewcrafthq/brewery_backend/utils"
)

func planFermentationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input scheduler.PlanFermentationInput
		if !bindJSON(c, &input) {
			return
		}
		// header takes precedence over the body field
		if key := c.GetHeader("Idempotency-Key"); key != "" {
			input.IdempotencyKey = key
		}
		ctx, span := tracer.Start(c.Request.Context(), "scheduler.plan-fermentation")
		defer span.End()
		result, err := getScheduler().PlanFermentation(ctx, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, result)
	}
}

func planTransferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input scheduler.PlanTransferInput
		if !bindJSON(c, &input) {
			return
		}
		transfer, err := getScheduler().PlanTransfer(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, transfer)
	}
}

type executeTransferRequest struct {
	ExecutedAt *time.Time `json:"executed_at"`
}

func executeTransferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req executeTransferRequest
		if c.Request.ContentLength > 0 {
			if !bindJSON(c, &req) {
				return
			}
		}
		transfer, err := getScheduler().ExecuteTransfer(c.Request.Context(), id, req.ExecutedAt)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, transfer)
	}
}

type startLotRequest struct {
	StartedAt *time.Time `json:"started_at"`
}

func startLotHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var req startLotRequest
		if c.Request.ContentLength > 0 {
			if !bindJSON(c, &req) {
				return
			}
		}
		assignment, err := getScheduler().StartLot(c.Request.Context(), id, req.StartedAt)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, assignment)
	}
}

type completeAssignmentRequest struct {
	ReleaseTank *bool      `json:"release_tank"`
	EndedAt     *time.Time `json:"ended_at"`
}

func completeAssignmentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		req := completeAssignmentRequest{}
		if c.Request.ContentLength > 0 {
			if !bindJSON(c, &req) {
				return
			}
		}
		releaseTank := utils.DereferencePtr(req.ReleaseTank, true)
		assignment, err := getScheduler().CompleteAssignment(c.Request.Context(), id, releaseTank, req.EndedAt)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, assignment)
	}
}

func markPhaseHandler(phase models.AssignmentPhase) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		assignment, err := getScheduler().MarkPhase(c.Request.Context(), id, phase)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, assignment)
	}
}

func calendarHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start, err := time.Parse(time.RFC3339, c.Query("start"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start"})
			return
		}
		end, err := time.Parse(time.RFC3339, c.Query("end"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end"})
			return
		}
		data, err := getScheduler().GenerateCalendarData(c.Request.Context(), start, end)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, data)
	}
}

func blockDetailHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "assignmentId")
		if !ok {
			return
		}
		detail, err := getScheduler().GetBlockDetail(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, detail)
	}
}
