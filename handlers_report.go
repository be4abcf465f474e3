package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/seedstore_backend/models"
)

func stockSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		summary, err := models.GetStockSummary(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func srvSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		summary, err := models.GetSRVSummary(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func sivSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		summary, err := models.GetSIVSummary(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func cleaningSummaryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		summary, err := models.GetCleaningSummary(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

func dashboardHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireOfficer(c) {
			return
		}
		dashboard, err := models.GetDashboard(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, dashboard)
	}
}
