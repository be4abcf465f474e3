package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/seedstore_backend/models"
)

func createSRVHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		var input models.NewSRV
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		srv, err := models.CreateSRV(c.Request.Context(), input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, srv)
	}
}

func updateSRVHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var input models.NewSRV
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		srv, err := models.UpdateSRV(c.Request.Context(), id, input)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, srv)
	}
}

func submitSRVHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		srv, err := models.SubmitSRV(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, srv)
	}
}

func approveSRVHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		release := obtainApprovalLock(c, fmt.Sprintf("lock:srv:%d", id))
		defer release()

		srv, err := models.ApproveSRV(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, srv)
	}
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func rejectSRVHandler() gin.HandlerFunc {
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
		srv, err := models.RejectSRV(c.Request.Context(), id, req.Reason)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, srv)
	}
}

func cancelSRVHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		srv, err := models.CancelSRV(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, srv)
	}
}

func getSRVHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		srv, err := models.GetSRV(c.Request.Context(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, srv)
	}
}

func listSRVsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		var filter models.SRVFilter
		if err := c.ShouldBindQuery(&filter); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		result, err := models.ListSRVs(c.Request.Context(), bindPage(c), filter)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
