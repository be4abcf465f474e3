package models

import (
	"context"
	"fmt"
	"time"

	"github.com/mmdatafocus/seedstore_backend/config"
	"github.com/mmdatafocus/seedstore_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SIV is a Seed Issuing Voucher. Approval debits every referenced lot, all
// or nothing.
type SIV struct {
	ID               int             `gorm:"primary_key" json:"id"`
	SivNumber        string          `gorm:"size:50;uniqueIndex;not null" json:"siv_number"`
	SequenceNo       int64           `gorm:"not null" json:"-"`
	WarehouseId      int             `gorm:"index;not null" json:"warehouse_id"`
	Warehouse        *Warehouse      `json:"warehouse,omitempty"`
	RecipientType    RecipientType   `gorm:"type:enum('customer','grower','internal');not null" json:"recipient_type"`
	RecipientName    string          `gorm:"size:150;not null" json:"recipient_name"`
	RecipientContact string          `gorm:"size:100" json:"recipient_contact"`
	Destination      string          `gorm:"size:150" json:"destination"`
	VehicleNumber    string          `gorm:"size:50" json:"vehicle_number"`
	Purpose          IssuePurpose    `gorm:"type:enum('sales','distribution','research','transfer','disposal');not null" json:"purpose"`
	IssuingOfficerId int             `gorm:"index;not null" json:"issuing_officer_id"`
	IssuingOfficer   *User           `gorm:"foreignKey:IssuingOfficerId" json:"issuing_officer,omitempty"`
	Status           DocumentStatus  `gorm:"type:enum('draft','pending','approved','rejected','cancelled');not null;default:'draft'" json:"status"`
	TotalQuantity    decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_quantity"`
	ApprovedById     *int            `json:"approved_by_id"`
	ApprovedBy       *User           `gorm:"foreignKey:ApprovedById" json:"approved_by,omitempty"`
	ApprovedAt       *time.Time      `json:"approved_at"`
	RejectionReason  string          `gorm:"size:255" json:"rejection_reason"`
	Notes            string          `gorm:"size:255" json:"notes"`
	Items            []*SIVItem      `gorm:"foreignKey:SivId" json:"items,omitempty"`
	CreatedAt        int             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        int             `gorm:"autoUpdateTime" json:"updated_at"`
}

type SIVItem struct {
	ID       int             `gorm:"primary_key" json:"id"`
	SivId    int             `gorm:"index;not null" json:"siv_id"`
	LotId    int             `gorm:"index;not null" json:"lot_id"`
	Lot      *Lot            `json:"lot,omitempty"`
	Quantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
}

type NewSIV struct {
	WarehouseId      int           `json:"warehouse_id" binding:"required"`
	RecipientType    RecipientType `json:"recipient_type" binding:"required"`
	RecipientName    string        `json:"recipient_name" binding:"required"`
	RecipientContact string        `json:"recipient_contact"`
	Destination      string        `json:"destination"`
	VehicleNumber    string        `json:"vehicle_number"`
	Purpose          IssuePurpose  `json:"purpose" binding:"required"`
	Notes            string        `json:"notes"`
	Items            []NewSIVItem  `json:"items"`
}

type NewSIVItem struct {
	LotId    int             `json:"lot_id" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
}

func (input *NewSIV) validate(ctx context.Context) error {
	if err := utils.ValidateResourceId[Warehouse](ctx, input.WarehouseId); err != nil {
		return utils.NewNotFoundError("warehouse", input.WarehouseId)
	}
	if !input.RecipientType.Valid() {
		return utils.NewValidationError("invalid recipient type %q", input.RecipientType)
	}
	if !input.Purpose.Valid() {
		return utils.NewValidationError("invalid issue purpose %q", input.Purpose)
	}
	seen := map[int]bool{}
	for _, item := range input.Items {
		if seen[item.LotId] {
			return utils.NewValidationError("lot %d appears on more than one line", item.LotId)
		}
		seen[item.LotId] = true
		if err := item.validate(ctx); err != nil {
			return err
		}
	}
	return nil
}

// validate checks the referenced lot at draft time. Balances are advisory
// here; the binding check happens again under lock at approval.
func (input *NewSIVItem) validate(ctx context.Context) error {
	if err := utils.RequirePositiveQuantity("quantity", input.Quantity); err != nil {
		return err
	}
	lot, err := utils.FetchModel[Lot](ctx, input.LotId)
	if err != nil {
		return utils.NewNotFoundError("lot", input.LotId)
	}
	if lot.Status != LotStored {
		return utils.NewStateError("cannot issue from lot %s with status %s", lot.LotNumber, lot.Status)
	}
	if input.Quantity.GreaterThan(lot.AvailableQuantity()) {
		return &utils.InsufficientQuantityError{
			LotId:     lot.ID,
			LotNumber: lot.LotNumber,
			Requested: input.Quantity,
			Available: lot.AvailableQuantity(),
		}
	}
	return nil
}

func sivTotal(items []*SIVItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Quantity)
	}
	return total
}

// CreateSIV opens a draft voucher for the calling officer.
func CreateSIV(ctx context.Context, input NewSIV) (*SIV, error) {
	officerId, _, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	seqNo, err := utils.GetSequence[SIV](ctx, config.GetDB(), "", "")
	if err != nil {
		return nil, err
	}

	siv := SIV{
		SivNumber:        fmt.Sprintf("SIV-%05d", seqNo),
		SequenceNo:       seqNo,
		WarehouseId:      input.WarehouseId,
		RecipientType:    input.RecipientType,
		RecipientName:    input.RecipientName,
		RecipientContact: input.RecipientContact,
		Destination:      input.Destination,
		VehicleNumber:    input.VehicleNumber,
		Purpose:          input.Purpose,
		IssuingOfficerId: officerId,
		Status:           DocumentDraft,
		Notes:            input.Notes,
	}
	for _, item := range input.Items {
		siv.Items = append(siv.Items, &SIVItem{
			LotId:    item.LotId,
			Quantity: item.Quantity,
		})
	}
	siv.TotalQuantity = sivTotal(siv.Items)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&siv).Error; err != nil {
		return nil, err
	}
	return GetSIV(ctx, siv.ID)
}

// UpdateSIV replaces header fields and line items of a draft.
func UpdateSIV(ctx context.Context, id int, input NewSIV) (*SIV, error) {
	officerId, _, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	siv, err := utils.FetchModel[SIV](ctx, id, "Items")
	if err != nil {
		return nil, utils.NewNotFoundError("siv", id)
	}
	if err := canEditDocument(siv.Status, siv.IssuingOfficerId, officerId); err != nil {
		return nil, err
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	items := make([]*SIVItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, &SIVItem{
			SivId:    siv.ID,
			LotId:    item.LotId,
			Quantity: item.Quantity,
		})
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("siv_id = ?", siv.ID).Delete(&SIVItem{}).Error; err != nil {
			return err
		}
		siv.WarehouseId = input.WarehouseId
		siv.RecipientType = input.RecipientType
		siv.RecipientName = input.RecipientName
		siv.RecipientContact = input.RecipientContact
		siv.Destination = input.Destination
		siv.VehicleNumber = input.VehicleNumber
		siv.Purpose = input.Purpose
		siv.Notes = input.Notes
		siv.Items = items
		siv.TotalQuantity = sivTotal(items)
		return tx.Save(siv).Error
	})
	if err != nil {
		return nil, err
	}
	return GetSIV(ctx, siv.ID)
}

// SubmitSIV moves a draft to pending review.
func SubmitSIV(ctx context.Context, id int) (*SIV, error) {
	officerId, _, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	siv, err := utils.FetchModel[SIV](ctx, id, "Items")
	if err != nil {
		return nil, utils.NewNotFoundError("siv", id)
	}
	if err := canSubmitDocument(siv.Status, len(siv.Items), siv.IssuingOfficerId, officerId); err != nil {
		return nil, err
	}

	siv.Status = DocumentPending
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(siv).Error; err != nil {
		return nil, err
	}
	return GetSIV(ctx, siv.ID)
}

// ApproveSIV debits every item's lot and flips the voucher to approved in
// one transaction. Lots are locked in ascending id order and balances are
// re-validated under the lock, so two concurrent approvals racing for the
// same balance serialize and the loser gets InsufficientQuantity.
func ApproveSIV(ctx context.Context, id int) (*SIV, error) {
	approverId, approverRole, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var approved *SIV
	err = withTxRetry(ctx, func(tx *gorm.DB) error {
		var siv SIV
		if err := tx.WithContext(ctx).Preload("Items").First(&siv, id).Error; err != nil {
			return utils.NewNotFoundError("siv", id)
		}
		if err := canApproveDocument(siv.Status, siv.IssuingOfficerId, approverId, approverRole); err != nil {
			return err
		}
		if len(siv.Items) == 0 {
			return utils.NewValidationError("document has no line items")
		}

		lotIds := make([]int, 0, len(siv.Items))
		for _, item := range siv.Items {
			lotIds = append(lotIds, item.LotId)
		}
		lots, err := lockLotsTx(tx, ctx, lotIds)
		if err != nil {
			return err
		}

		// re-validate under lock before any debit
		for _, item := range siv.Items {
			lot := lots[item.LotId]
			if lot.Status != LotStored {
				return utils.NewStateError("cannot issue from lot %s with status %s", lot.LotNumber, lot.Status)
			}
			if item.Quantity.GreaterThan(lot.AvailableQuantity()) {
				return &utils.InsufficientQuantityError{
					LotId:     lot.ID,
					LotNumber: lot.LotNumber,
					Requested: item.Quantity,
					Available: lot.AvailableQuantity(),
				}
			}
		}

		for _, item := range siv.Items {
			if err := debitLotTx(tx, ctx, lots[item.LotId], item.Quantity, siv.SivNumber); err != nil {
				return err
			}
		}

		now := time.Now()
		siv.Status = DocumentApproved
		siv.ApprovedById = &approverId
		siv.ApprovedAt = &now
		if err := tx.WithContext(ctx).Save(&siv).Error; err != nil {
			return err
		}
		approved = &siv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetSIV(ctx, approved.ID)
}

// RejectSIV sends a pending voucher back with a mandatory reason.
func RejectSIV(ctx context.Context, id int, reason string) (*SIV, error) {
	approverId, approverRole, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	siv, err := utils.FetchModel[SIV](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("siv", id)
	}
	if err := canRejectDocument(siv.Status, siv.IssuingOfficerId, approverId, approverRole, reason); err != nil {
		return nil, err
	}

	// ApprovedById/ApprovedAt record approvals only; a rejection keeps them
	// empty and carries the reason instead.
	siv.Status = DocumentRejected
	siv.RejectionReason = reason
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(siv).Error; err != nil {
		return nil, err
	}
	return GetSIV(ctx, siv.ID)
}

// CancelSIV withdraws a draft. Pending vouchers must be rejected instead.
func CancelSIV(ctx context.Context, id int) (*SIV, error) {
	officerId, _, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	siv, err := utils.FetchModel[SIV](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("siv", id)
	}
	if err := canCancelDocument(siv.Status, siv.IssuingOfficerId, officerId); err != nil {
		return nil, err
	}

	siv.Status = DocumentCancelled
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(siv).Error; err != nil {
		return nil, err
	}
	return GetSIV(ctx, siv.ID)
}

func GetSIV(ctx context.Context, id int) (*SIV, error) {
	siv, err := utils.FetchModel[SIV](ctx, id,
		"Warehouse", "IssuingOfficer", "ApprovedBy",
		"Items", "Items.Lot", "Items.Lot.SeedProduct", "Items.Lot.SeedClass")
	if err != nil {
		return nil, utils.NewNotFoundError("siv", id)
	}
	return siv, nil
}

// SIVFilter narrows ListSIVs. Zero values mean "no filter".
type SIVFilter struct {
	WarehouseId int            `form:"warehouse"`
	Status      DocumentStatus `form:"status"`
	Purpose     IssuePurpose   `form:"purpose"`
	OfficerId   int            `form:"officer"`
	Search      string         `form:"search"`
	Ordering    string         `form:"ordering"`
}

var sivOrderings = map[string]string{
	"":            "sivs.id DESC",
	"created_at":  "sivs.created_at ASC",
	"-created_at": "sivs.created_at DESC",
	"siv_number":  "sivs.siv_number ASC",
	"-siv_number": "sivs.siv_number DESC",
}

func ListSIVs(ctx context.Context, page *PageInput, filter SIVFilter) (*Paginated[SIV], error) {
	order, ok := sivOrderings[filter.Ordering]
	if !ok {
		return nil, utils.NewValidationError("invalid ordering %q", filter.Ordering)
	}

	limit, offset := page.Normalize()
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&SIV{})

	if filter.WarehouseId != 0 {
		dbCtx = dbCtx.Where("sivs.warehouse_id = ?", filter.WarehouseId)
	}
	if filter.Status != "" {
		dbCtx = dbCtx.Where("sivs.status = ?", filter.Status)
	}
	if filter.Purpose != "" {
		dbCtx = dbCtx.Where("sivs.purpose = ?", filter.Purpose)
	}
	if filter.OfficerId != 0 {
		dbCtx = dbCtx.Where("sivs.issuing_officer_id = ?", filter.OfficerId)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		dbCtx = dbCtx.Where("sivs.siv_number LIKE ? OR sivs.recipient_name LIKE ?", pattern, pattern)
	}

	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return nil, err
	}

	var sivs []*SIV
	err := dbCtx.
		Preload("Warehouse").Preload("IssuingOfficer").
		Order(order).
		Limit(limit).Offset(offset).
		Find(&sivs).Error
	if err != nil {
		return nil, err
	}
	return newPaginated(count, page, sivs), nil
}
