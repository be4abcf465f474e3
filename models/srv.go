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

// SRV is a Seed Receiving Voucher. Approval mints one lot per line item.
type SRV struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	SrvNumber          string          `gorm:"size:50;uniqueIndex;not null" json:"srv_number"`
	SequenceNo         int64           `gorm:"not null" json:"-"`
	WarehouseId        int             `gorm:"index;not null" json:"warehouse_id"`
	Warehouse          *Warehouse      `json:"warehouse,omitempty"`
	SourceType         SourceType      `gorm:"type:enum('internal','in_grower','out_grower');not null" json:"source_type"`
	SupplierName       string          `gorm:"size:150" json:"supplier_name"`
	SupplierContact    string          `gorm:"size:100" json:"supplier_contact"`
	VehicleNumber      string          `gorm:"size:50" json:"vehicle_number"`
	ReceivingOfficerId int             `gorm:"index;not null" json:"receiving_officer_id"`
	ReceivingOfficer   *User           `gorm:"foreignKey:ReceivingOfficerId" json:"receiving_officer,omitempty"`
	Status             DocumentStatus  `gorm:"type:enum('draft','pending','approved','rejected','cancelled');not null;default:'draft'" json:"status"`
	TotalQuantity      decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"total_quantity"`
	ApprovedById       *int            `json:"approved_by_id"`
	ApprovedBy         *User           `gorm:"foreignKey:ApprovedById" json:"approved_by,omitempty"`
	ApprovedAt         *time.Time      `json:"approved_at"`
	RejectionReason    string          `gorm:"size:255" json:"rejection_reason"`
	Notes              string          `gorm:"size:255" json:"notes"`
	Items              []*SRVItem      `gorm:"foreignKey:SrvId" json:"items,omitempty"`
	CreatedAt          int             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          int             `gorm:"autoUpdateTime" json:"updated_at"`
}

type SRVItem struct {
	ID              int             `gorm:"primary_key" json:"id"`
	SrvId           int             `gorm:"index;not null" json:"srv_id"`
	SeedProductId   int             `gorm:"not null" json:"seed_product_id"`
	SeedProduct     *SeedProduct    `json:"seed_product,omitempty"`
	SeedClassId     int             `gorm:"not null" json:"seed_class_id"`
	SeedClass       *SeedClass      `json:"seed_class,omitempty"`
	SourceReference string          `gorm:"size:150" json:"source_reference"`
	Quantity        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	LotId           *int            `gorm:"index" json:"lot_id"`
	Lot             *Lot            `json:"lot,omitempty"`
}

type NewSRV struct {
	WarehouseId     int          `json:"warehouse_id" binding:"required"`
	SourceType      SourceType   `json:"source_type" binding:"required"`
	SupplierName    string       `json:"supplier_name"`
	SupplierContact string       `json:"supplier_contact"`
	VehicleNumber   string       `json:"vehicle_number"`
	Notes           string       `json:"notes"`
	Items           []NewSRVItem `json:"items"`
}

type NewSRVItem struct {
	SeedProductId   int             `json:"seed_product_id" binding:"required"`
	SeedClassId     int             `json:"seed_class_id" binding:"required"`
	SourceReference string          `json:"source_reference"`
	Quantity        decimal.Decimal `json:"quantity" binding:"required"`
}

func (input *NewSRV) validate(ctx context.Context) error {
	if err := utils.ValidateResourceId[Warehouse](ctx, input.WarehouseId); err != nil {
		return utils.NewNotFoundError("warehouse", input.WarehouseId)
	}
	if !input.SourceType.Valid() {
		return utils.NewValidationError("invalid source type %q", input.SourceType)
	}
	for _, item := range input.Items {
		if err := item.validate(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (input *NewSRVItem) validate(ctx context.Context) error {
	if err := utils.ValidateResourceId[SeedProduct](ctx, input.SeedProductId); err != nil {
		return utils.NewNotFoundError("seed product", input.SeedProductId)
	}
	if err := utils.ValidateResourceId[SeedClass](ctx, input.SeedClassId); err != nil {
		return utils.NewNotFoundError("seed class", input.SeedClassId)
	}
	return utils.RequirePositiveQuantity("quantity", input.Quantity)
}

func srvTotal(items []*SRVItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Quantity)
	}
	return total
}

// CreateSRV opens a draft voucher for the calling officer.
func CreateSRV(ctx context.Context, input NewSRV) (*SRV, error) {
	officerId, _, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	seqNo, err := utils.GetSequence[SRV](ctx, config.GetDB(), "", "")
	if err != nil {
		return nil, err
	}

	srv := SRV{
		SrvNumber:          fmt.Sprintf("SRV-%05d", seqNo),
		SequenceNo:         seqNo,
		WarehouseId:        input.WarehouseId,
		SourceType:         input.SourceType,
		SupplierName:       input.SupplierName,
		SupplierContact:    input.SupplierContact,
		VehicleNumber:      input.VehicleNumber,
		ReceivingOfficerId: officerId,
		Status:             DocumentDraft,
		Notes:              input.Notes,
	}
	for _, item := range input.Items {
		srv.Items = append(srv.Items, &SRVItem{
			SeedProductId:   item.SeedProductId,
			SeedClassId:     item.SeedClassId,
			SourceReference: item.SourceReference,
			Quantity:        item.Quantity,
		})
	}
	srv.TotalQuantity = srvTotal(srv.Items)

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&srv).Error; err != nil {
		return nil, err
	}
	return GetSRV(ctx, srv.ID)
}

// UpdateSRV replaces header fields and line items of a draft.
func UpdateSRV(ctx context.Context, id int, input NewSRV) (*SRV, error) {
	officerId, _, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	srv, err := utils.FetchModel[SRV](ctx, id, "Items")
	if err != nil {
		return nil, utils.NewNotFoundError("srv", id)
	}
	if err := canEditDocument(srv.Status, srv.ReceivingOfficerId, officerId); err != nil {
		return nil, err
	}
	if err := input.validate(ctx); err != nil {
		return nil, err
	}

	items := make([]*SRVItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, &SRVItem{
			SrvId:           srv.ID,
			SeedProductId:   item.SeedProductId,
			SeedClassId:     item.SeedClassId,
			SourceReference: item.SourceReference,
			Quantity:        item.Quantity,
		})
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("srv_id = ?", srv.ID).Delete(&SRVItem{}).Error; err != nil {
			return err
		}
		srv.WarehouseId = input.WarehouseId
		srv.SourceType = input.SourceType
		srv.SupplierName = input.SupplierName
		srv.SupplierContact = input.SupplierContact
		srv.VehicleNumber = input.VehicleNumber
		srv.Notes = input.Notes
		srv.Items = items
		srv.TotalQuantity = srvTotal(items)
		return tx.Save(srv).Error
	})
	if err != nil {
		return nil, err
	}
	return GetSRV(ctx, srv.ID)
}

// SubmitSRV moves a draft to pending review.
func SubmitSRV(ctx context.Context, id int) (*SRV, error) {
	officerId, _, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	srv, err := utils.FetchModel[SRV](ctx, id, "Items")
	if err != nil {
		return nil, utils.NewNotFoundError("srv", id)
	}
	if err := canSubmitDocument(srv.Status, len(srv.Items), srv.ReceivingOfficerId, officerId); err != nil {
		return nil, err
	}

	srv.Status = DocumentPending
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(srv).Error; err != nil {
		return nil, err
	}
	return GetSRV(ctx, srv.ID)
}

// ApproveSRV mints one lot per item and flips the voucher to approved,
// all in one transaction.
func ApproveSRV(ctx context.Context, id int) (*SRV, error) {
	approverId, approverRole, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var approved *SRV
	err = withTxRetry(ctx, func(tx *gorm.DB) error {
		var srv SRV
		if err := tx.WithContext(ctx).Preload("Items").First(&srv, id).Error; err != nil {
			return utils.NewNotFoundError("srv", id)
		}
		if err := canApproveDocument(srv.Status, srv.ReceivingOfficerId, approverId, approverRole); err != nil {
			return err
		}
		if len(srv.Items) == 0 {
			return utils.NewValidationError("document has no line items")
		}

		for _, item := range srv.Items {
			lot, err := createLotTx(tx, ctx, newLotSpec{
				WarehouseId:     srv.WarehouseId,
				SeedProductId:   item.SeedProductId,
				SeedClassId:     item.SeedClassId,
				SourceType:      srv.SourceType,
				SourceReference: item.SourceReference,
				Quantity:        item.Quantity,
				CreatedById:     srv.ReceivingOfficerId,
				DocumentNumber:  srv.SrvNumber,
				MovementType:    MovementReceived,
			})
			if err != nil {
				return err
			}
			item.LotId = &lot.ID
			if err := tx.WithContext(ctx).Save(item).Error; err != nil {
				return err
			}
		}

		now := time.Now()
		srv.Status = DocumentApproved
		srv.ApprovedById = &approverId
		srv.ApprovedAt = &now
		if err := tx.WithContext(ctx).Save(&srv).Error; err != nil {
			return err
		}
		approved = &srv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return GetSRV(ctx, approved.ID)
}

// RejectSRV sends a pending voucher back with a mandatory reason.
func RejectSRV(ctx context.Context, id int, reason string) (*SRV, error) {
	approverId, approverRole, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	srv, err := utils.FetchModel[SRV](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("srv", id)
	}
	if err := canRejectDocument(srv.Status, srv.ReceivingOfficerId, approverId, approverRole, reason); err != nil {
		return nil, err
	}

	// ApprovedById/ApprovedAt record approvals only; a rejection keeps them
	// empty and carries the reason instead.
	srv.Status = DocumentRejected
	srv.RejectionReason = reason
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(srv).Error; err != nil {
		return nil, err
	}
	return GetSRV(ctx, srv.ID)
}

// CancelSRV withdraws a draft. Pending vouchers must be rejected instead.
func CancelSRV(ctx context.Context, id int) (*SRV, error) {
	officerId, _, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	srv, err := utils.FetchModel[SRV](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("srv", id)
	}
	if err := canCancelDocument(srv.Status, srv.ReceivingOfficerId, officerId); err != nil {
		return nil, err
	}

	srv.Status = DocumentCancelled
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(srv).Error; err != nil {
		return nil, err
	}
	return GetSRV(ctx, srv.ID)
}

func GetSRV(ctx context.Context, id int) (*SRV, error) {
	srv, err := utils.FetchModel[SRV](ctx, id,
		"Warehouse", "ReceivingOfficer", "ApprovedBy",
		"Items", "Items.SeedProduct", "Items.SeedClass", "Items.Lot")
	if err != nil {
		return nil, utils.NewNotFoundError("srv", id)
	}
	return srv, nil
}

// SRVFilter narrows ListSRVs. Zero values mean "no filter".
type SRVFilter struct {
	WarehouseId int            `form:"warehouse"`
	Status      DocumentStatus `form:"status"`
	SourceType  SourceType     `form:"source_type"`
	OfficerId   int            `form:"officer"`
	Search      string         `form:"search"`
	Ordering    string         `form:"ordering"`
}

var srvOrderings = map[string]string{
	"":            "srvs.id DESC",
	"created_at":  "srvs.created_at ASC",
	"-created_at": "srvs.created_at DESC",
	"srv_number":  "srvs.srv_number ASC",
	"-srv_number": "srvs.srv_number DESC",
}

func ListSRVs(ctx context.Context, page *PageInput, filter SRVFilter) (*Paginated[SRV], error) {
	order, ok := srvOrderings[filter.Ordering]
	if !ok {
		return nil, utils.NewValidationError("invalid ordering %q", filter.Ordering)
	}

	limit, offset := page.Normalize()
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&SRV{})

	if filter.WarehouseId != 0 {
		dbCtx = dbCtx.Where("srvs.warehouse_id = ?", filter.WarehouseId)
	}
	if filter.Status != "" {
		dbCtx = dbCtx.Where("srvs.status = ?", filter.Status)
	}
	if filter.SourceType != "" {
		dbCtx = dbCtx.Where("srvs.source_type = ?", filter.SourceType)
	}
	if filter.OfficerId != 0 {
		dbCtx = dbCtx.Where("srvs.receiving_officer_id = ?", filter.OfficerId)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		dbCtx = dbCtx.Where("srvs.srv_number LIKE ? OR srvs.supplier_name LIKE ?", pattern, pattern)
	}

	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return nil, err
	}

	var srvs []*SRV
	err := dbCtx.
		Preload("Warehouse").Preload("ReceivingOfficer").
		Order(order).
		Limit(limit).Offset(offset).
		Find(&srvs).Error
	if err != nil {
		return nil, err
	}
	return newPaginated(count, page, srvs), nil
}
