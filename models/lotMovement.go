package models

import (
	"context"

	"github.com/mmdatafocus/seedstore_backend/config"
	"github.com/mmdatafocus/seedstore_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LotMovement is one row of the append-only balance ledger. Quantity is
// signed: positive for receipts, negative for issues and cleaning input.
// BalanceAfter snapshots the lot balance at write time so history reads
// need no replay.
type LotMovement struct {
	ID             int             `gorm:"primary_key" json:"id"`
	LotId          int             `gorm:"index;not null" json:"lot_id"`
	MovementType   MovementType    `gorm:"type:enum('received','issued','cleaning');not null" json:"movement_type"`
	DocumentNumber string          `gorm:"size:50;not null" json:"document_number"`
	Quantity       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	BalanceAfter   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"balance_after"`
	Notes          string          `gorm:"size:255" json:"notes"`
	CreatedAt      int             `gorm:"autoCreateTime" json:"created_at"`
}

func appendLotMovementTx(tx *gorm.DB, ctx context.Context, movement *LotMovement) error {
	return tx.WithContext(ctx).Create(movement).Error
}

// ListLotMovements returns the full chronological ledger for one lot.
func ListLotMovements(ctx context.Context, lotId int) ([]*LotMovement, error) {
	if err := utils.ValidateResourceId[Lot](ctx, lotId); err != nil {
		return nil, utils.NewNotFoundError("lot", lotId)
	}

	db := config.GetDB()
	var movements []*LotMovement
	err := db.WithContext(ctx).
		Where("lot_id = ?", lotId).
		Order("id ASC").
		Find(&movements).Error
	if err != nil {
		return nil, err
	}
	if movements == nil {
		movements = []*LotMovement{}
	}
	return movements, nil
}
