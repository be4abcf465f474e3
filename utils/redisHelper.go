package utils

import (
	"context"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/mmdatafocus/seedstore_backend/config"
)

var mutex sync.Mutex

// GetSequence returns the next monotonic sequence number for T within the
// given scope (e.g. a warehouse for lot numbers, "" for document numbers).
// Redis is the fast path; max(sequence_no) over the caller's db handle is
// the fallback when redis is cold or absent. Callers minting several rows in
// one transaction must pass that transaction, so the fallback sees its own
// uncommitted inserts and cannot hand out the same number twice. The
// uniqueness re-check guards against a stale counter.
func GetSequence[T any](ctx context.Context, db *gorm.DB, scope string, scopeCond string, scopeArgs ...interface{}) (int64, error) {
	var model T
	mutex.Lock()
	defer mutex.Unlock()

	cacheKey := strings.ToLower(GetTypeName[T]()) + "_seq"
	if scope != "" {
		cacheKey = scope + "-" + cacheKey
	}
	var seqNo int64
	var err error

	for {
		seqNo, err = config.GetRedisCounter(ctx, cacheKey)
		if err != nil {
			return 0, err
		}
		// cold counter (or redis absent): seed from the caller's handle
		if seqNo <= 1 {
			var dbSeq *int64
			dbCtx := db.WithContext(ctx).Model(&model).Select("max(sequence_no)")
			if scopeCond != "" {
				dbCtx = dbCtx.Where(scopeCond, scopeArgs...)
			}
			if err := dbCtx.Scan(&dbSeq).Error; err != nil {
				return 0, err
			}
			if dbSeq == nil {
				seqNo = 0
			} else {
				seqNo = *dbSeq
			}
			seqNo++
			if err := config.SetRedisObject(cacheKey, &seqNo, 0); err != nil {
				return 0, err
			}
		}
		// check the sequence number is actually free
		var count int64
		countCtx := db.WithContext(ctx).Model(&model).Where("sequence_no = ?", seqNo)
		if scopeCond != "" {
			countCtx = countCtx.Where(scopeCond, scopeArgs...)
		}
		if err := countCtx.Count(&count).Error; err != nil {
			return 0, err
		}
		if count == 0 {
			break
		}
	}
	return seqNo, nil
}
