package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/bsm/redislock"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/seedstore_backend/config"
	"github.com/mmdatafocus/seedstore_backend/models"
	"github.com/mmdatafocus/seedstore_backend/utils"
	"github.com/sirupsen/logrus"
)

// obtainApprovalLock takes a best-effort redis lock around an approval.
// Redis being down or contended never blocks the operation; row locks in
// the approval transaction are what actually guarantee correctness. The
// returned release func is always safe to defer.
func obtainApprovalLock(c *gin.Context, key string) func() {
	logger := config.GetLogger()
	locker := config.GetRedisLock()
	if locker == nil {
		logger.WithFields(logrus.Fields{"key": key}).
			Warn("redis lock not ready; proceeding without lock")
		return func() {}
	}

	lock, err := locker.Obtain(c.Request.Context(), key, 30*time.Second, nil)
	if err != nil {
		if err != redislock.ErrNotObtained {
			logger.WithFields(logrus.Fields{"key": key}).
				Warn("error obtaining redis lock; proceeding without lock: " + err.Error())
		}
		return func() {}
	}
	return func() {
		if releaseErr := lock.Release(c.Request.Context()); releaseErr != nil {
			logger.WithFields(logrus.Fields{"key": key}).
				Warn("failed to release redis lock: " + releaseErr.Error())
		}
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses. Unknown
// errors are logged and returned as opaque 500s.
func writeError(c *gin.Context, err error) {
	var validationErr *utils.ValidationError
	var stateErr *utils.StateError
	var insufficientErr *utils.InsufficientQuantityError
	var conservationErr *utils.ConservationError
	var notFoundErr *utils.NotFoundError

	switch {
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &conservationErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":          conservationErr.Error(),
			"input_quantity": conservationErr.InputQuantity.String(),
			"accounted":      conservationErr.Accounted.String(),
		})
	case errors.As(err, &insufficientErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":      insufficientErr.Error(),
			"lot_id":     insufficientErr.LotId,
			"lot_number": insufficientErr.LotNumber,
			"requested":  insufficientErr.Requested.String(),
			"available":  insufficientErr.Available.String(),
		})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, gin.H{"error": stateErr.Error()})
	default:
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.LogError(config.GetLogger(), "handlers_common.go", "writeError", c.FullPath(), cid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// requireOfficer aborts with 401 unless the session middleware resolved an
// authenticated officer.
func requireOfficer(c *gin.Context) bool {
	if _, ok := utils.GetOfficerIdFromContext(c.Request.Context()); !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return false
	}
	return true
}

func idParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func bindPage(c *gin.Context) *models.PageInput {
	var page models.PageInput
	_ = c.ShouldBindQuery(&page)
	return &page
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}
