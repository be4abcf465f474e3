package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/seedstore_backend/models"
)

func createCleaningHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		var input models.NewCleaningEvent
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		event, err := models.CreateCleaningEvent(c.Request.Context(), input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, event)
	}
}

func startCleaningHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		event, err := models.StartCleaningEvent(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, event)
	}
}

func addCleaningOutputHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewCleaningOutput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		event, err := models.AddCleaningOutput(c.Request.Context(), id, input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, event)
	}
}

func removeCleaningOutputHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		outputId, ok := idParam(c, "outputId")
		if !ok {
			return
		}
		event, err := models.RemoveCleaningOutput(c.Request.Context(), id, outputId)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, event)
	}
}

func completeCleaningHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.CompleteCleaningInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		release := obtainApprovalLock(c, fmt.Sprintf("lock:cleaning:%d", id))
		defer release()

		event, err := models.CompleteCleaningEvent(c.Request.Context(), id, input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, event)
	}
}

type cancelCleaningRequest struct {
	Reason string `json:"reason"`
}

func cancelCleaningHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req cancelCleaningRequest
		_ = c.ShouldBindJSON(&req)
		event, err := models.CancelCleaningEvent(c.Request.Context(), id, req.Reason)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, event)
	}
}

func getCleaningHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		event, err := models.GetCleaningEvent(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, event)
	}
}

func listCleaningHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		var filter models.CleaningFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.ListCleaningEvents(c.Request.Context(), bindPage(c), filter)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
