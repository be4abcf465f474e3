package models

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/mmdatafocus/seedstore_backend/config"
	"github.com/mmdatafocus/seedstore_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const txMaxRetries = 3

// isRetryableTxError matches the MySQL lock errors worth retrying. Anything
// else bubbles up unchanged.
func isRetryableTxError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Deadlock found") ||
		strings.Contains(msg, "Lock wait timeout") ||
		strings.Contains(msg, "Error 1213") ||
		strings.Contains(msg, "Error 1205")
}

// withTxRetry runs fn inside a transaction, retrying a bounded number of
// times on deadlock or lock-wait timeout. fn must be safe to re-run from
// scratch: it gets a fresh tx each attempt.
func withTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db := config.GetDB()

	var err error
	for attempt := 1; attempt <= txMaxRetries; attempt++ {
		err = db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return nil
		}
		if !isRetryableTxError(err) {
			return err
		}
		config.GetLogger().WithField("attempt", attempt).
			Warn("retrying transaction after lock conflict")
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	return err
}

// lockLotsTx loads the given lots under FOR UPDATE row locks. Ids are locked
// in ascending order so concurrent approvals touching overlapping lot sets
// acquire locks in the same order.
func lockLotsTx(tx *gorm.DB, ctx context.Context, lotIds []int) (map[int]*Lot, error) {
	ids := utils.UniqueSlice(lotIds)
	sort.Ints(ids)

	var lots []*Lot
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&lots).Error
	if err != nil {
		return nil, err
	}

	byId := make(map[int]*Lot, len(lots))
	for _, lot := range lots {
		byId[lot.ID] = lot
	}
	for _, id := range ids {
		if _, ok := byId[id]; !ok {
			return nil, utils.NewNotFoundError("lot", id)
		}
	}
	return byId, nil
}

// lockLotTx locks a single lot row FOR UPDATE.
func lockLotTx(tx *gorm.DB, ctx context.Context, lotId int) (*Lot, error) {
	lots, err := lockLotsTx(tx, ctx, []int{lotId})
	if err != nil {
		return nil, err
	}
	return lots[lotId], nil
}
