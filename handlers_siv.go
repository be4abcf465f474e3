package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/seedstore_backend/models"
)

func createSIVHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		var input models.NewSIV
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		siv, err := models.CreateSIV(c.Request.Context(), input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, siv)
	}
}

func updateSIVHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewSIV
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		siv, err := models.UpdateSIV(c.Request.Context(), id, input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, siv)
	}
}

func submitSIVHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		siv, err := models.SubmitSIV(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, siv)
	}
}

func approveSIVHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		release := obtainApprovalLock(c, fmt.Sprintf("lock:siv:%d", id))
		defer release()

		siv, err := models.ApproveSIV(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, siv)
	}
}

func rejectSIVHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req rejectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}
		siv, err := models.RejectSIV(c.Request.Context(), id, req.Reason)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, siv)
	}
}

func cancelSIVHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		siv, err := models.CancelSIV(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, siv)
	}
}

func getSIVHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		siv, err := models.GetSIV(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, siv)
	}
}

func listSIVsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		var filter models.SIVFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.ListSIVs(c.Request.Context(), bindPage(c), filter)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
