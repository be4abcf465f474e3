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

// CleaningEvent grades one input lot into output lots of (possibly
// different) seed classes plus waste. The input quantity is soft-reserved
// on the lot while the event is in progress.
type CleaningEvent struct {
	ID                int               `gorm:"primary_key" json:"id"`
	EventNumber       string            `gorm:"size:50;uniqueIndex;not null" json:"event_number"`
	SequenceNo        int64             `gorm:"not null" json:"-"`
	InputLotId        int               `gorm:"index;not null" json:"input_lot_id"`
	InputLot          *Lot              `json:"input_lot,omitempty"`
	InputQuantity     decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"input_quantity"`
	WasteQuantity     decimal.Decimal   `gorm:"type:decimal(20,4);not null;default:0" json:"waste_quantity"`
	CleaningOfficerId int               `gorm:"index;not null" json:"cleaning_officer_id"`
	CleaningOfficer   *User             `gorm:"foreignKey:CleaningOfficerId" json:"cleaning_officer,omitempty"`
	Status            CleaningStatus    `gorm:"type:enum('draft','in_progress','completed','cancelled');not null;default:'draft'" json:"status"`
	CancelReason      string            `gorm:"size:255" json:"cancel_reason"`
	CompletedAt       *time.Time        `json:"completed_at"`
	Notes             string            `gorm:"size:255" json:"notes"`
	Outputs           []*CleaningOutput `gorm:"foreignKey:CleaningEventId" json:"outputs,omitempty"`
	CreatedAt         int               `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         int               `gorm:"autoUpdateTime" json:"updated_at"`
}

type CleaningOutput struct {
	ID              int             `gorm:"primary_key" json:"id"`
	CleaningEventId int             `gorm:"index;not null" json:"cleaning_event_id"`
	SeedClassId     int             `gorm:"not null" json:"seed_class_id"`
	SeedClass       *SeedClass      `json:"seed_class,omitempty"`
	OutputQuantity  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"output_quantity"`
	OutputLotId     *int            `gorm:"index" json:"output_lot_id"`
	OutputLot       *Lot            `json:"output_lot,omitempty"`
}

type NewCleaningEvent struct {
	InputLotId    int             `json:"input_lot_id" binding:"required"`
	InputQuantity decimal.Decimal `json:"input_quantity" binding:"required"`
	Notes         string          `json:"notes"`
}

type NewCleaningOutput struct {
	SeedClassId    int             `json:"seed_class_id" binding:"required"`
	OutputQuantity decimal.Decimal `json:"output_quantity" binding:"required"`
}

// checkConservation enforces exact mass balance at completion:
// sum(outputs) + waste must equal the input quantity to the last gram.
func checkConservation(input decimal.Decimal, outputs []*CleaningOutput, waste decimal.Decimal) error {
	accounted := waste
	for _, output := range outputs {
		accounted = accounted.Add(output.OutputQuantity)
	}
	if !accounted.Equal(input) {
		return &utils.ConservationError{InputQuantity: input, Accounted: accounted}
	}
	return nil
}

func (input *NewCleaningEvent) validate(ctx context.Context) (*Lot, error) {
	if err := utils.RequirePositiveQuantity("input_quantity", input.InputQuantity); err != nil {
		return nil, err
	}
	lot, err := utils.FetchModel[Lot](ctx, input.InputLotId)
	if err != nil {
		return nil, utils.NewNotFoundError("lot", input.InputLotId)
	}
	if lot.Status != LotStored {
		return nil, utils.NewStateError("cannot clean lot %s with status %s", lot.LotNumber, lot.Status)
	}
	if input.InputQuantity.GreaterThan(lot.AvailableQuantity()) {
		return nil, &utils.InsufficientQuantityError{
			LotId:     lot.ID,
			LotNumber: lot.LotNumber,
			Requested: input.InputQuantity,
			Available: lot.AvailableQuantity(),
		}
	}
	return lot, nil
}

// CreateCleaningEvent opens a draft for the calling officer. Nothing is
// reserved until the event starts.
func CreateCleaningEvent(ctx context.Context, input NewCleaningEvent) (*CleaningEvent, error) {
	officerId, _, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := input.validate(ctx); err != nil {
		return nil, err
	}

	seqNo, err := utils.GetSequence[CleaningEvent](ctx, config.GetDB(), "", "")
	if err != nil {
		return nil, err
	}

	event := CleaningEvent{
		EventNumber:       fmt.Sprintf("CLN-%05d", seqNo),
		SequenceNo:        seqNo,
		InputLotId:        input.InputLotId,
		InputQuantity:     input.InputQuantity,
		WasteQuantity:     decimal.Zero,
		CleaningOfficerId: officerId,
		Status:            CleaningDraft,
		Notes:             input.Notes,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&event).Error; err != nil {
		return nil, err
	}
	return GetCleaningEvent(ctx, event.ID)
}

// StartCleaningEvent moves draft to in_progress and reserves the input
// quantity against the lot, atomically with the status flip.
func StartCleaningEvent(ctx context.Context, id int) (*CleaningEvent, error) {
	officerId, _, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	err = withTxRetry(ctx, func(tx *gorm.DB) error {
		var event CleaningEvent
		if err := tx.WithContext(ctx).First(&event, id).Error; err != nil {
			return utils.NewNotFoundError("cleaning event", id)
		}
		if officerId != event.CleaningOfficerId {
			return utils.NewStateError("only the cleaning officer may start this event")
		}
		if !event.Status.CanTransitionTo(CleaningInProgress) {
			return utils.NewStateError("cannot start a %s cleaning event", event.Status)
		}

		lot, err := lockLotTx(tx, ctx, event.InputLotId)
		if err != nil {
			return err
		}
		if err := reserveLotTx(tx, ctx, lot, event.InputQuantity); err != nil {
			return err
		}

		event.Status = CleaningInProgress
		return tx.WithContext(ctx).Save(&event).Error
	})
	if err != nil {
		return nil, err
	}
	return GetCleaningEvent(ctx, id)
}

// AddCleaningOutput appends an output line, or replaces the quantity when
// a line for the same seed class already exists (one line per class).
func AddCleaningOutput(ctx context.Context, eventId int, input NewCleaningOutput) (*CleaningEvent, error) {
	officerId, _, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.RequirePositiveQuantity("output_quantity", input.OutputQuantity); err != nil {
		return nil, err
	}
	if err := utils.ValidateResourceId[SeedClass](ctx, input.SeedClassId); err != nil {
		return nil, utils.NewNotFoundError("seed class", input.SeedClassId)
	}

	event, err := utils.FetchModel[CleaningEvent](ctx, eventId, "Outputs")
	if err != nil {
		return nil, utils.NewNotFoundError("cleaning event", eventId)
	}
	if officerId != event.CleaningOfficerId {
		return nil, utils.NewStateError("only the cleaning officer may edit output lines")
	}
	if event.Status != CleaningInProgress {
		return nil, utils.NewStateError("cannot edit output lines on a %s cleaning event", event.Status)
	}

	db := config.GetDB()
	var existing *CleaningOutput
	for _, output := range event.Outputs {
		if output.SeedClassId == input.SeedClassId {
			existing = output
			break
		}
	}
	if existing != nil {
		existing.OutputQuantity = input.OutputQuantity
		if err := db.WithContext(ctx).Save(existing).Error; err != nil {
			return nil, err
		}
	} else {
		output := CleaningOutput{
			CleaningEventId: event.ID,
			SeedClassId:     input.SeedClassId,
			OutputQuantity:  input.OutputQuantity,
		}
		if err := db.WithContext(ctx).Create(&output).Error; err != nil {
			return nil, err
		}
	}
	return GetCleaningEvent(ctx, eventId)
}

// RemoveCleaningOutput drops an output line while the event is in progress.
func RemoveCleaningOutput(ctx context.Context, eventId int, outputId int) (*CleaningEvent, error) {
	officerId, _, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	event, err := utils.FetchModel[CleaningEvent](ctx, eventId, "Outputs")
	if err != nil {
		return nil, utils.NewNotFoundError("cleaning event", eventId)
	}
	if officerId != event.CleaningOfficerId {
		return nil, utils.NewStateError("only the cleaning officer may edit output lines")
	}
	if event.Status != CleaningInProgress {
		return nil, utils.NewStateError("cannot edit output lines on a %s cleaning event", event.Status)
	}

	var target *CleaningOutput
	for _, output := range event.Outputs {
		if output.ID == outputId {
			target = output
			break
		}
	}
	if target == nil {
		return nil, utils.NewNotFoundError("cleaning output", outputId)
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(target).Error; err != nil {
		return nil, err
	}
	return GetCleaningEvent(ctx, eventId)
}

type CompleteCleaningInput struct {
	WasteQuantity decimal.Decimal `json:"waste_quantity"`
	Notes         string          `json:"notes"`
}

// CompleteCleaningEvent settles the event: consumes the input lot, mints
// one output lot per line, and records the waste. The conservation check
// runs again inside the transaction so a failure leaves everything as it
// was, with the event still in progress.
func CompleteCleaningEvent(ctx context.Context, id int, input CompleteCleaningInput) (*CleaningEvent, error) {
	officerId, _, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := utils.RequireNonNegativeQuantity("waste_quantity", input.WasteQuantity); err != nil {
		return nil, err
	}

	err = withTxRetry(ctx, func(tx *gorm.DB) error {
		var event CleaningEvent
		if err := tx.WithContext(ctx).Preload("Outputs").First(&event, id).Error; err != nil {
			return utils.NewNotFoundError("cleaning event", id)
		}
		if officerId != event.CleaningOfficerId {
			return utils.NewStateError("only the cleaning officer may complete this event")
		}
		if !event.Status.CanTransitionTo(CleaningCompleted) {
			return utils.NewStateError("cannot complete a %s cleaning event", event.Status)
		}
		if len(event.Outputs) == 0 {
			return utils.NewValidationError("cleaning event has no output lines")
		}
		if err := checkConservation(event.InputQuantity, event.Outputs, input.WasteQuantity); err != nil {
			return err
		}

		lot, err := lockLotTx(tx, ctx, event.InputLotId)
		if err != nil {
			return err
		}
		if err := consumeLotForCleaningTx(tx, ctx, lot, event.InputQuantity, event.EventNumber); err != nil {
			return err
		}

		for _, output := range event.Outputs {
			outputLot, err := createLotTx(tx, ctx, newLotSpec{
				WarehouseId:    lot.WarehouseId,
				SeedProductId:  lot.SeedProductId,
				SeedClassId:    output.SeedClassId,
				SourceType:     SourceInternal,
				ParentLotId:    &lot.ID,
				Quantity:       output.OutputQuantity,
				CreatedById:    event.CleaningOfficerId,
				DocumentNumber: event.EventNumber,
				MovementType:   MovementCleaning,
			})
			if err != nil {
				return err
			}
			output.OutputLotId = &outputLot.ID
			if err := tx.WithContext(ctx).Save(output).Error; err != nil {
				return err
			}
		}

		now := time.Now()
		event.Status = CleaningCompleted
		event.WasteQuantity = input.WasteQuantity
		event.CompletedAt = &now
		if input.Notes != "" {
			event.Notes = input.Notes
		}
		return tx.WithContext(ctx).Save(&event).Error
	})
	if err != nil {
		return nil, err
	}
	return GetCleaningEvent(ctx, id)
}

// CancelCleaningEvent aborts a draft or in-progress event. Releasing the
// reservation is atomic with the status flip.
func CancelCleaningEvent(ctx context.Context, id int, reason string) (*CleaningEvent, error) {
	officerId, _, err := officerFromContext(ctx)
	if err != nil {
		return nil, err
	}

	err = withTxRetry(ctx, func(tx *gorm.DB) error {
		var event CleaningEvent
		if err := tx.WithContext(ctx).First(&event, id).Error; err != nil {
			return utils.NewNotFoundError("cleaning event", id)
		}
		if officerId != event.CleaningOfficerId {
			return utils.NewStateError("only the cleaning officer may cancel this event")
		}
		if !event.Status.CanTransitionTo(CleaningCancelled) {
			return utils.NewStateError("cannot cancel a %s cleaning event", event.Status)
		}

		if event.Status == CleaningInProgress {
			lot, err := lockLotTx(tx, ctx, event.InputLotId)
			if err != nil {
				return err
			}
			if err := releaseLotReservationTx(tx, ctx, lot, event.InputQuantity); err != nil {
				return err
			}
		}

		event.Status = CleaningCancelled
		event.CancelReason = reason
		return tx.WithContext(ctx).Save(&event).Error
	})
	if err != nil {
		return nil, err
	}
	return GetCleaningEvent(ctx, id)
}

func GetCleaningEvent(ctx context.Context, id int) (*CleaningEvent, error) {
	event, err := utils.FetchModel[CleaningEvent](ctx, id,
		"InputLot", "InputLot.SeedProduct", "InputLot.SeedClass", "InputLot.Warehouse",
		"CleaningOfficer", "Outputs", "Outputs.SeedClass", "Outputs.OutputLot")
	if err != nil {
		return nil, utils.NewNotFoundError("cleaning event", id)
	}
	return event, nil
}

// CleaningFilter narrows ListCleaningEvents. Zero values mean "no filter".
type CleaningFilter struct {
	Status    CleaningStatus `form:"status"`
	OfficerId int            `form:"officer"`
	Search    string         `form:"search"`
	Ordering  string         `form:"ordering"`
}

var cleaningOrderings = map[string]string{
	"":              "cleaning_events.id DESC",
	"created_at":    "cleaning_events.created_at ASC",
	"-created_at":   "cleaning_events.created_at DESC",
	"event_number":  "cleaning_events.event_number ASC",
	"-event_number": "cleaning_events.event_number DESC",
}

func ListCleaningEvents(ctx context.Context, page *PageInput, filter CleaningFilter) (*Paginated[CleaningEvent], error) {
	order, ok := cleaningOrderings[filter.Ordering]
	if !ok {
		return nil, utils.NewValidationError("invalid ordering %q", filter.Ordering)
	}

	limit, offset := page.Normalize()
	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&CleaningEvent{})

	if filter.Status != "" {
		dbCtx = dbCtx.Where("cleaning_events.status = ?", filter.Status)
	}
	if filter.OfficerId != 0 {
		dbCtx = dbCtx.Where("cleaning_events.cleaning_officer_id = ?", filter.OfficerId)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		dbCtx = dbCtx.
			Joins("LEFT JOIN lots ON lots.id = cleaning_events.input_lot_id").
			Where("cleaning_events.event_number LIKE ? OR lots.lot_number LIKE ?", pattern, pattern)
	}

	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return nil, err
	}

	var events []*CleaningEvent
	err := dbCtx.
		Preload("InputLot").Preload("CleaningOfficer").Preload("Outputs").Preload("Outputs.SeedClass").
		Order(order).
		Limit(limit).Offset(offset).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return newPaginated(count, page, events), nil
}
