package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/seedstore_backend/config"
	"github.com/mmdatafocus/seedstore_backend/utils"
	"github.com/shopspring/decimal"
)

/* lot provenance

trace is read-only and flat: one level of ancestry (the SRV item or the
cleaning event that produced the lot) and one level of consumption (SIV
items, cleaning events using the lot as input, direct child lots). Callers
walk deeper generations by tracing the parent/child ids themselves. */

// TraceSRVInfo is the receiving voucher that minted the lot.
type TraceSRVInfo struct {
	SrvId        int             `json:"srv_id"`
	SrvNumber    string          `json:"srv_number"`
	SupplierName string          `json:"supplier_name"`
	ReceivedBy   string          `json:"received_by"`
	Quantity     decimal.Decimal `json:"quantity"`
	ApprovedAt   *time.Time      `json:"approved_at"`
}

// TraceCleaningOrigin is the cleaning event that minted the lot.
type TraceCleaningOrigin struct {
	CleaningEventId int             `json:"cleaning_event_id"`
	EventNumber     string          `json:"event_number"`
	OutputQuantity  decimal.Decimal `json:"output_quantity"`
	CompletedAt     *time.Time      `json:"completed_at"`
}

// TraceSIVItem is one approved issuance that debited the lot.
type TraceSIVItem struct {
	SivId         int             `json:"siv_id"`
	SivNumber     string          `json:"siv_number"`
	RecipientName string          `json:"recipient_name"`
	Purpose       IssuePurpose    `json:"purpose"`
	Quantity      decimal.Decimal `json:"quantity"`
	ApprovedAt    *time.Time      `json:"approved_at"`
}

// TraceCleaningUse is a cleaning event that consumed (or is consuming)
// the lot as input.
type TraceCleaningUse struct {
	CleaningEventId int             `json:"cleaning_event_id"`
	EventNumber     string          `json:"event_number"`
	InputQuantity   decimal.Decimal `json:"input_quantity"`
	Status          CleaningStatus  `json:"status"`
	CompletedAt     *time.Time      `json:"completed_at"`
}

// TraceLotSummary is the thin lot view used for parents and children.
type TraceLotSummary struct {
	Id              int             `json:"id"`
	LotNumber       string          `json:"lot_number"`
	SeedClassId     int             `json:"seed_class_id"`
	CurrentQuantity decimal.Decimal `json:"current_quantity"`
	Status          LotStatus       `json:"status"`
}

type TraceResult struct {
	Lot            *Lot                 `json:"lot"`
	SrvInfo        *TraceSRVInfo        `json:"srv_info"`
	CleaningOrigin *TraceCleaningOrigin `json:"cleaning_origin"`
	ParentLotInfo  *TraceLotSummary     `json:"parent_lot_info"`
	SivItems       []TraceSIVItem       `json:"siv_items"`
	CleaningInput  []TraceCleaningUse   `json:"cleaning_input"`
	ChildLots      []TraceLotSummary    `json:"child_lots"`
}

// TraceLot reconstructs the provenance of a lot. A freshly received lot
// with no consumption returns empty forward lists, never an error.
func TraceLot(ctx context.Context, lotId int) (*TraceResult, error) {
	lot, err := GetLot(ctx, lotId)
	if err != nil {
		return nil, err
	}

	result := TraceResult{
		Lot:           lot,
		SivItems:      []TraceSIVItem{},
		CleaningInput: []TraceCleaningUse{},
		ChildLots:     []TraceLotSummary{},
	}
	db := config.GetDB()

	if lot.ParentLotId == nil {
		// received directly: find the approved SRV item that minted it
		var srvInfo TraceSRVInfo
		err := db.WithContext(ctx).
			Table("srv_items").
			Select("srvs.id AS srv_id, srvs.srv_number, srvs.supplier_name, users.name AS received_by, srv_items.quantity, srvs.approved_at").
			Joins("JOIN srvs ON srvs.id = srv_items.srv_id").
			Joins("JOIN users ON users.id = srvs.receiving_officer_id").
			Where("srv_items.lot_id = ? AND srvs.status = ?", lot.ID, DocumentApproved).
			Limit(1).
			Scan(&srvInfo).Error
		if err != nil {
			return nil, err
		}
		if srvInfo.SrvId != 0 {
			result.SrvInfo = &srvInfo
		}
	} else {
		// cleaning-created: resolve the producing event and the parent
		var origin TraceCleaningOrigin
		err := db.WithContext(ctx).
			Table("cleaning_outputs").
			Select("cleaning_events.id AS cleaning_event_id, cleaning_events.event_number, cleaning_outputs.output_quantity, cleaning_events.completed_at").
			Joins("JOIN cleaning_events ON cleaning_events.id = cleaning_outputs.cleaning_event_id").
			Where("cleaning_outputs.output_lot_id = ?", lot.ID).
			Limit(1).
			Scan(&origin).Error
		if err != nil {
			return nil, err
		}
		if origin.CleaningEventId != 0 {
			result.CleaningOrigin = &origin
		}

		parent, err := utils.FetchModel[Lot](ctx, *lot.ParentLotId)
		if err == nil {
			result.ParentLotInfo = &TraceLotSummary{
				Id:              parent.ID,
				LotNumber:       parent.LotNumber,
				SeedClassId:     parent.SeedClassId,
				CurrentQuantity: parent.CurrentQuantity,
				Status:          parent.Status,
			}
		}
	}

	err = db.WithContext(ctx).
		Table("siv_items").
		Select("sivs.id AS siv_id, sivs.siv_number, sivs.recipient_name, sivs.purpose, siv_items.quantity, sivs.approved_at").
		Joins("JOIN sivs ON sivs.id = siv_items.siv_id").
		Where("siv_items.lot_id = ? AND sivs.status = ?", lot.ID, DocumentApproved).
		Order("sivs.approved_at ASC, sivs.id ASC").
		Scan(&result.SivItems).Error
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).
		Table("cleaning_events").
		Select("cleaning_events.id AS cleaning_event_id, event_number, input_quantity, status, completed_at").
		Where("input_lot_id = ? AND status IN ?", lot.ID, []CleaningStatus{CleaningInProgress, CleaningCompleted}).
		Order("cleaning_events.id ASC").
		Scan(&result.CleaningInput).Error
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).
		Table("lots").
		Select("id, lot_number, seed_class_id, current_quantity, status").
		Where("parent_lot_id = ?", lot.ID).
		Order("id ASC").
		Scan(&result.ChildLots).Error
	if err != nil {
		return nil, err
	}

	return &result, nil
}
