package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/seedstore_backend/models"
)

func listLotsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		var filter models.LotFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.ListLots(c.Request.Context(), bindPage(c), filter)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func getLotHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		lot, err := models.GetLot(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, lot)
	}
}

func lotMovementsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		movements, err := models.ListLotMovements(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"lot_id": id, "movements": movements})
	}
}

func lotTraceHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		trace, err := models.TraceLot(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, trace)
	}
}
