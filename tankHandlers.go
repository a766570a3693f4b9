package main

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/brewcrafthq/brewery_backend/models"
	"github.com/brewcrafthq/brewery_backend/utils"
)

func createTankHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewTank
		if !bindJSON(c, &input) {
			return
		}
		tank, err := models.CreateTank(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, tank)
	}
}

func updateTankHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		var input models.NewTank
		if !bindJSON(c, &input) {
			return
		}
		tank, err := models.UpdateTank(c.Request.Context(), id, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, tank)
	}
}

func deleteTankHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		tank, err := models.DeleteTank(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, tank)
	}
}

func getTankHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		tank, err := models.GetTank(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, tank)
	}
}

func listTanksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var tankType *models.TankType
		var status *models.TankStatus
		if v := c.Query("type"); v != "" {
			t := models.TankType(v)
			tankType = &t
		}
		if v := c.Query("status"); v != "" {
			s := models.TankStatus(v)
			status = &s
		}
		tanks, err := models.ListTanks(c.Request.Context(), tankType, status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, tanks)
	}
}

func completeCIPHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathId(c, "id")
		if !ok {
			return
		}
		tank, err := models.CompleteCIP(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, tank)
	}
}

func checkAvailabilityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		tankId, ok := utils.ParseId(c.Query("tank_id"))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tank_id"})
			return
		}
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
		result, err := getScheduler().CheckAvailability(c.Request.Context(), tankId, start, end)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

type batchAvailabilityRequest struct {
	TankIds []int     `json:"tank_ids" binding:"required"`
	Start   time.Time `json:"start" binding:"required"`
	End     time.Time `json:"end" binding:"required"`
}

func checkBatchAvailabilityHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req batchAvailabilityRequest
		if !bindJSON(c, &req) {
			return
		}
		result, err := getScheduler().CheckBatchAvailability(c.Request.Context(), req.TankIds, req.Start, req.End)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
