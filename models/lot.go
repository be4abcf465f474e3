package models

import (
	"context"
	"fmt"

	"github.com/mmdatafocus/seedstore_backend/config"
	"github.com/mmdatafocus/seedstore_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Lot is the unit of seed inventory. Balances only ever decrease after
// creation; every change is mirrored in the lot_movements ledger.
type Lot struct {
	ID               int             `gorm:"primary_key" json:"id"`
	LotNumber        string          `gorm:"size:50;uniqueIndex;not null" json:"lot_number"`
	SequenceNo       int64           `gorm:"not null" json:"-"`
	WarehouseId      int             `gorm:"index;not null" json:"warehouse_id"`
	Warehouse        *Warehouse      `json:"warehouse,omitempty"`
	SeedProductId    int             `gorm:"index;not null" json:"seed_product_id"`
	SeedProduct      *SeedProduct    `json:"seed_product,omitempty"`
	SeedClassId      int             `gorm:"index;not null" json:"seed_class_id"`
	SeedClass        *SeedClass      `json:"seed_class,omitempty"`
	SourceType       SourceType      `gorm:"type:enum('internal','in_grower','out_grower');not null" json:"source_type"`
	SourceReference  string          `gorm:"size:150" json:"source_reference"`
	InitialQuantity  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"initial_quantity"`
	CurrentQuantity  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"current_quantity"`
	ReservedQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"reserved_quantity"`
	Status           LotStatus       `gorm:"type:enum('stored','cleaned','issued','exhausted');not null;default:'stored'" json:"status"`
	ParentLotId      *int            `gorm:"index" json:"parent_lot_id"`
	ParentLot        *Lot            `json:"parent_lot,omitempty"`
	CreatedById      int             `gorm:"not null" json:"created_by_id"`
	CreatedBy        *User           `gorm:"foreignKey:CreatedById" json:"created_by,omitempty"`
	Notes            string          `gorm:"size:255" json:"notes"`
	CreatedAt        int             `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        int             `gorm:"autoUpdateTime" json:"updated_at"`
}

// AvailableQuantity is the balance not held by an in-progress cleaning
// reservation. Debits and new reservations check against this, not against
// the raw current balance.
func (lot *Lot) AvailableQuantity() decimal.Decimal {
	return lot.CurrentQuantity.Sub(lot.ReservedQuantity)
}

// newLotSpec carries everything needed to mint a lot inside a document
// commit. DocumentNumber and MovementType feed the ledger entry.
type newLotSpec struct {
	WarehouseId     int
	SeedProductId   int
	SeedClassId     int
	SourceType      SourceType
	SourceReference string
	ParentLotId     *int
	Quantity        decimal.Decimal
	CreatedById     int
	DocumentNumber  string
	MovementType    MovementType
	Notes           string
}

// createLotTx mints a lot with a warehouse-scoped monotonic number and
// writes the opening ledger entry, all on the caller's transaction.
func createLotTx(tx *gorm.DB, ctx context.Context, spec newLotSpec) (*Lot, error) {
	if err := utils.RequirePositiveQuantity("initial_quantity", spec.Quantity); err != nil {
		return nil, err
	}

	var warehouse Warehouse
	if err := tx.WithContext(ctx).First(&warehouse, spec.WarehouseId).Error; err != nil {
		return nil, utils.NewNotFoundError("warehouse", spec.WarehouseId)
	}

	seqNo, err := utils.GetSequence[Lot](ctx, tx,
		fmt.Sprintf("wh%d", spec.WarehouseId), "warehouse_id = ?", spec.WarehouseId)
	if err != nil {
		return nil, err
	}

	lot := Lot{
		LotNumber:        fmt.Sprintf("LOT-%s-%04d", warehouse.Code, seqNo),
		SequenceNo:       seqNo,
		WarehouseId:      spec.WarehouseId,
		SeedProductId:    spec.SeedProductId,
		SeedClassId:      spec.SeedClassId,
		SourceType:       spec.SourceType,
		SourceReference:  spec.SourceReference,
		InitialQuantity:  spec.Quantity,
		CurrentQuantity:  spec.Quantity,
		ReservedQuantity: decimal.Zero,
		Status:           LotStored,
		ParentLotId:      spec.ParentLotId,
		CreatedById:      spec.CreatedById,
		Notes:            spec.Notes,
	}
	if err := tx.WithContext(ctx).Create(&lot).Error; err != nil {
		return nil, err
	}

	err = appendLotMovementTx(tx, ctx, &LotMovement{
		LotId:          lot.ID,
		MovementType:   spec.MovementType,
		DocumentNumber: spec.DocumentNumber,
		Quantity:       spec.Quantity,
		BalanceAfter:   lot.CurrentQuantity,
	})
	if err != nil {
		return nil, err
	}
	return &lot, nil
}

// debitLotTx reduces the lot balance for an issuance. The caller must hold
// the row lock (see lockLotsTx). A lot that hits zero becomes exhausted.
func debitLotTx(tx *gorm.DB, ctx context.Context, lot *Lot, amount decimal.Decimal, documentNumber string) error {
	if err := utils.RequirePositiveQuantity("quantity", amount); err != nil {
		return err
	}
	if lot.Status != LotStored {
		return utils.NewStateError("cannot issue from lot %s with status %s", lot.LotNumber, lot.Status)
	}
	if amount.GreaterThan(lot.AvailableQuantity()) {
		return &utils.InsufficientQuantityError{
			LotId:     lot.ID,
			LotNumber: lot.LotNumber,
			Requested: amount,
			Available: lot.AvailableQuantity(),
		}
	}

	lot.CurrentQuantity = lot.CurrentQuantity.Sub(amount)
	if lot.CurrentQuantity.IsZero() {
		lot.Status = LotExhausted
	}
	if err := tx.WithContext(ctx).Save(lot).Error; err != nil {
		return err
	}

	return appendLotMovementTx(tx, ctx, &LotMovement{
		LotId:          lot.ID,
		MovementType:   MovementIssued,
		DocumentNumber: documentNumber,
		Quantity:       amount.Neg(),
		BalanceAfter:   lot.CurrentQuantity,
	})
}

// consumeLotForCleaningTx zeroes the lot as cleaning input. The amount was
// reserved when the event started and must equal the remaining balance, so
// the lot leaves with current_quantity 0 and status cleaned.
func consumeLotForCleaningTx(tx *gorm.DB, ctx context.Context, lot *Lot, amount decimal.Decimal, documentNumber string) error {
	if lot.Status != LotStored {
		return utils.NewStateError("cannot clean lot %s with status %s", lot.LotNumber, lot.Status)
	}
	if lot.ReservedQuantity.LessThan(amount) {
		return utils.NewStateError("lot %s has only %s kg reserved for cleaning, need %s kg",
			lot.LotNumber, lot.ReservedQuantity.String(), amount.String())
	}
	if !amount.Equal(lot.CurrentQuantity) {
		return utils.NewStateError(
			"lot %s still holds %s kg beyond the %s kg cleaning input; issue the remainder or cancel the event first",
			lot.LotNumber, lot.CurrentQuantity.Sub(amount).String(), amount.String())
	}

	lot.CurrentQuantity = decimal.Zero
	lot.ReservedQuantity = lot.ReservedQuantity.Sub(amount)
	lot.Status = LotCleaned
	if err := tx.WithContext(ctx).Save(lot).Error; err != nil {
		return err
	}

	return appendLotMovementTx(tx, ctx, &LotMovement{
		LotId:          lot.ID,
		MovementType:   MovementCleaning,
		DocumentNumber: documentNumber,
		Quantity:       amount.Neg(),
		BalanceAfter:   lot.CurrentQuantity,
	})
}

// reserveLotTx places a soft hold for a starting cleaning event.
func reserveLotTx(tx *gorm.DB, ctx context.Context, lot *Lot, amount decimal.Decimal) error {
	if lot.Status != LotStored {
		return utils.NewStateError("cannot reserve lot %s with status %s", lot.LotNumber, lot.Status)
	}
	if amount.GreaterThan(lot.AvailableQuantity()) {
		return &utils.InsufficientQuantityError{
			LotId:     lot.ID,
			LotNumber: lot.LotNumber,
			Requested: amount,
			Available: lot.AvailableQuantity(),
		}
	}
	lot.ReservedQuantity = lot.ReservedQuantity.Add(amount)
	return tx.WithContext(ctx).Save(lot).Error
}

// releaseLotReservationTx drops a hold when a cleaning event is cancelled.
func releaseLotReservationTx(tx *gorm.DB, ctx context.Context, lot *Lot, amount decimal.Decimal) error {
	lot.ReservedQuantity = lot.ReservedQuantity.Sub(amount)
	if lot.ReservedQuantity.IsNegative() {
		lot.ReservedQuantity = decimal.Zero
	}
	return tx.WithContext(ctx).Save(lot).Error
}

func GetLot(ctx context.Context, id int) (*Lot, error) {
	lot, err := utils.FetchModel[Lot](ctx, id,
		"Warehouse", "SeedProduct", "SeedClass", "CreatedBy", "ParentLot")
	if err != nil {
		return nil, utils.NewNotFoundError("lot", id)
	}
	return lot, nil
}

// LotFilter narrows ListLots. Zero values mean "no filter". MinQuantity
// accepts the same lenient forms as ParseQuantity ("50", "1,250.50 kg").
type LotFilter struct {
	WarehouseId   int        `form:"warehouse"`
	SeedProductId int        `form:"seed_product"`
	SeedClassId   int        `form:"seed_class"`
	Status        LotStatus  `form:"status"`
	SourceType    SourceType `form:"source_type"`
	MinQuantity   string     `form:"min_quantity"`
	Search        string     `form:"search"`
	Ordering      string     `form:"ordering"`
}

var lotOrderings = map[string]string{
	"":                  "lots.id DESC",
	"created_at":        "lots.created_at ASC",
	"-created_at":       "lots.created_at DESC",
	"lot_number":        "lots.lot_number ASC",
	"-lot_number":       "lots.lot_number DESC",
	"current_quantity":  "lots.current_quantity ASC",
	"-current_quantity": "lots.current_quantity DESC",
}

func ListLots(ctx context.Context, page *PageInput, filter LotFilter) (*Paginated[Lot], error) {
	order, ok := lotOrderings[filter.Ordering]
	if !ok {
		return nil, utils.NewValidationError("invalid ordering %q", filter.Ordering)
	}

	limit, offset := page.Normalize()
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Lot{})

	if filter.WarehouseId != 0 {
		dbCtx = dbCtx.Where("lots.warehouse_id = ?", filter.WarehouseId)
	}
	if filter.SeedProductId != 0 {
		dbCtx = dbCtx.Where("lots.seed_product_id = ?", filter.SeedProductId)
	}
	if filter.SeedClassId != 0 {
		dbCtx = dbCtx.Where("lots.seed_class_id = ?", filter.SeedClassId)
	}
	if filter.Status != "" {
		dbCtx = dbCtx.Where("lots.status = ?", filter.Status)
	}
	if filter.SourceType != "" {
		dbCtx = dbCtx.Where("lots.source_type = ?", filter.SourceType)
	}
	if filter.MinQuantity != "" {
		minQty, err := utils.ParseQuantity(filter.MinQuantity)
		if err != nil {
			return nil, err
		}
		dbCtx = dbCtx.Where("lots.current_quantity >= ?", minQty)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		dbCtx = dbCtx.Where("lots.lot_number LIKE ? OR lots.source_reference LIKE ?", pattern, pattern)
	}

	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return nil, err
	}

	var lots []*Lot
	err := dbCtx.
		Preload("Warehouse").Preload("SeedProduct").Preload("SeedClass").
		Order(order).
		Limit(limit).Offset(offset).
		Find(&lots).Error
	if err != nil {
		return nil, err
	}
	return newPaginated(count, page, lots), nil
}
