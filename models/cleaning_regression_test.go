package models_test

import (
	"errors"
	"testing"

	"github.com/mmdatafocus/seedstore_backend/models"
	"github.com/mmdatafocus/seedstore_backend/utils"
	"github.com/shopspring/decimal"
)

func TestCleaningFlowConservesMass(t *testing.T) {
	setupIntegrationDB(t)
	fx := seedFixture(t)

	keeperCtx := ctxAs(fx.Storekeeper)
	lotId := receiveLot(t, fx, "60")

	event, err := models.CreateCleaningEvent(keeperCtx, models.NewCleaningEvent{
		InputLotId:    lotId,
		InputQuantity: decimal.NewFromInt(60),
	})
	if err != nil {
		t.Fatalf("CreateCleaningEvent: %v", err)
	}
	if event.Status != models.CleaningDraft {
		t.Fatalf("expected draft, got %s", event.Status)
	}

	event, err = models.StartCleaningEvent(keeperCtx, event.ID)
	if err != nil {
		t.Fatalf("StartCleaningEvent: %v", err)
	}
	if event.Status != models.CleaningInProgress {
		t.Fatalf("expected in_progress, got %s", event.Status)
	}

	// The reservation blocks issuing the held quantity.
	lot, err := models.GetLot(keeperCtx, lotId)
	if err != nil {
		t.Fatalf("GetLot: %v", err)
	}
	if !lot.ReservedQuantity.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected reserved=60, got %s", lot.ReservedQuantity)
	}
	_, err = models.CreateSIV(keeperCtx, models.NewSIV{
		WarehouseId:   fx.Warehouse.ID,
		RecipientType: models.RecipientCustomer,
		RecipientName: "Anyone",
		Purpose:       models.PurposeSales,
		Items: []models.NewSIVItem{
			{LotId: lotId, Quantity: decimal.NewFromInt(10)},
		},
	})
	var insufficientErr *utils.InsufficientQuantityError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("issuing reserved quantity should fail with InsufficientQuantityError, got %v", err)
	}

	if _, err := models.AddCleaningOutput(keeperCtx, event.ID, models.NewCleaningOutput{
		SeedClassId:    fx.Foundation.ID,
		OutputQuantity: decimal.NewFromInt(40),
	}); err != nil {
		t.Fatalf("AddCleaningOutput: %v", err)
	}
	// Re-adding the same seed class replaces the line instead of stacking a
	// second one.
	event, err = models.AddCleaningOutput(keeperCtx, event.ID, models.NewCleaningOutput{
		SeedClassId:    fx.Foundation.ID,
		OutputQuantity: decimal.NewFromInt(50),
	})
	if err != nil {
		t.Fatalf("AddCleaningOutput(replace): %v", err)
	}
	if len(event.Outputs) != 1 || !event.Outputs[0].OutputQuantity.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("expected one 50 kg output line, got %+v", event.Outputs)
	}

	// 50 + 10 == 60: completion settles the event.
	event, err = models.CompleteCleaningEvent(keeperCtx, event.ID, models.CompleteCleaningInput{
		WasteQuantity: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("CompleteCleaningEvent: %v", err)
	}
	if event.Status != models.CleaningCompleted {
		t.Fatalf("expected completed, got %s", event.Status)
	}
	if event.CompletedAt == nil {
		t.Fatal("completed_at must be set")
	}

	// Input lot: zeroed and cleaned.
	lot, err = models.GetLot(keeperCtx, lotId)
	if err != nil {
		t.Fatalf("GetLot after cleaning: %v", err)
	}
	if !lot.CurrentQuantity.IsZero() {
		t.Fatalf("expected 0 remaining, got %s", lot.CurrentQuantity)
	}
	if lot.Status != models.LotCleaned {
		t.Fatalf("expected cleaned, got %s", lot.Status)
	}
	if !lot.ReservedQuantity.IsZero() {
		t.Fatalf("reservation must be consumed, got %s", lot.ReservedQuantity)
	}

	// Output lot: 50 kg foundation child of the input lot.
	if len(event.Outputs) != 1 || event.Outputs[0].OutputLotId == nil {
		t.Fatalf("expected one settled output line, got %+v", event.Outputs)
	}
	child, err := models.GetLot(keeperCtx, *event.Outputs[0].OutputLotId)
	if err != nil {
		t.Fatalf("GetLot(child): %v", err)
	}
	if !child.InitialQuantity.Equal(decimal.NewFromInt(50)) || child.Status != models.LotStored {
		t.Fatalf("expected 50 kg stored child lot, got %s %s", child.InitialQuantity, child.Status)
	}
	if child.ParentLotId == nil || *child.ParentLotId != lotId {
		t.Fatalf("child must reference parent lot %d, got %v", lotId, child.ParentLotId)
	}
	if child.SeedClassId != fx.Foundation.ID {
		t.Fatalf("child must carry the output seed class, got %d", child.SeedClassId)
	}
	// The input lot came from a grower, but cleaning outputs are always
	// internal lots.
	if child.SourceType != models.SourceInternal {
		t.Fatalf("expected internal source for cleaning output, got %s", child.SourceType)
	}

	// Trace from the child leads back to the event and the parent.
	trace, err := models.TraceLot(keeperCtx, child.ID)
	if err != nil {
		t.Fatalf("TraceLot(child): %v", err)
	}
	if trace.CleaningOrigin == nil || trace.CleaningOrigin.EventNumber != event.EventNumber {
		t.Fatalf("child trace must name the cleaning event, got %+v", trace.CleaningOrigin)
	}
	if trace.ParentLotInfo == nil || trace.ParentLotInfo.Id != lotId {
		t.Fatalf("child trace must name the parent lot, got %+v", trace.ParentLotInfo)
	}

	// And the parent lists the child.
	parentTrace, err := models.TraceLot(keeperCtx, lotId)
	if err != nil {
		t.Fatalf("TraceLot(parent): %v", err)
	}
	if len(parentTrace.ChildLots) != 1 || parentTrace.ChildLots[0].Id != child.ID {
		t.Fatalf("parent trace must list the child lot, got %+v", parentTrace.ChildLots)
	}
}

func TestCleaningCompletionFailsClosedOnConservationMismatch(t *testing.T) {
	setupIntegrationDB(t)
	fx := seedFixture(t)

	keeperCtx := ctxAs(fx.Storekeeper)
	lotId := receiveLot(t, fx, "60")

	event, err := models.CreateCleaningEvent(keeperCtx, models.NewCleaningEvent{
		InputLotId:    lotId,
		InputQuantity: decimal.NewFromInt(60),
	})
	if err != nil {
		t.Fatalf("CreateCleaningEvent: %v", err)
	}
	if _, err := models.StartCleaningEvent(keeperCtx, event.ID); err != nil {
		t.Fatalf("StartCleaningEvent: %v", err)
	}
	if _, err := models.AddCleaningOutput(keeperCtx, event.ID, models.NewCleaningOutput{
		SeedClassId:    fx.Foundation.ID,
		OutputQuantity: decimal.NewFromInt(50),
	}); err != nil {
		t.Fatalf("AddCleaningOutput: %v", err)
	}

	// 50 + 5 != 60: completion must fail and mutate nothing.
	_, err = models.CompleteCleaningEvent(keeperCtx, event.ID, models.CompleteCleaningInput{
		WasteQuantity: decimal.NewFromInt(5),
	})
	if err == nil {
		t.Fatal("expected conservation error")
	}
	var conservationErr *utils.ConservationError
	if !errors.As(err, &conservationErr) {
		t.Fatalf("want ConservationError, got %T: %v", err, err)
	}
	if !conservationErr.Accounted.Equal(decimal.NewFromInt(55)) {
		t.Fatalf("error should carry accounted=55, got %s", conservationErr.Accounted)
	}

	event, err = models.GetCleaningEvent(keeperCtx, event.ID)
	if err != nil {
		t.Fatalf("GetCleaningEvent: %v", err)
	}
	if event.Status != models.CleaningInProgress {
		t.Fatalf("event must remain in_progress, got %s", event.Status)
	}
	lot, err := models.GetLot(keeperCtx, lotId)
	if err != nil {
		t.Fatalf("GetLot: %v", err)
	}
	if !lot.CurrentQuantity.Equal(decimal.NewFromInt(60)) || lot.Status != models.LotStored {
		t.Fatalf("lot must be untouched, got %s %s", lot.CurrentQuantity, lot.Status)
	}

	// Correct the waste and complete.
	if _, err := models.CompleteCleaningEvent(keeperCtx, event.ID, models.CompleteCleaningInput{
		WasteQuantity: decimal.NewFromInt(10),
	}); err != nil {
		t.Fatalf("CompleteCleaningEvent(corrected): %v", err)
	}
}

func TestCancelCleaningReleasesReservation(t *testing.T) {
	setupIntegrationDB(t)
	fx := seedFixture(t)

	keeperCtx := ctxAs(fx.Storekeeper)
	lotId := receiveLot(t, fx, "80")

	event, err := models.CreateCleaningEvent(keeperCtx, models.NewCleaningEvent{
		InputLotId:    lotId,
		InputQuantity: decimal.NewFromInt(80),
	})
	if err != nil {
		t.Fatalf("CreateCleaningEvent: %v", err)
	}
	if _, err := models.StartCleaningEvent(keeperCtx, event.ID); err != nil {
		t.Fatalf("StartCleaningEvent: %v", err)
	}

	event, err = models.CancelCleaningEvent(keeperCtx, event.ID, "machine breakdown")
	if err != nil {
		t.Fatalf("CancelCleaningEvent: %v", err)
	}
	if event.Status != models.CleaningCancelled {
		t.Fatalf("expected cancelled, got %s", event.Status)
	}

	lot, err := models.GetLot(keeperCtx, lotId)
	if err != nil {
		t.Fatalf("GetLot: %v", err)
	}
	if !lot.ReservedQuantity.IsZero() {
		t.Fatalf("reservation must be released, got %s", lot.ReservedQuantity)
	}
	if !lot.CurrentQuantity.Equal(decimal.NewFromInt(80)) || lot.Status != models.LotStored {
		t.Fatalf("lot must be untouched, got %s %s", lot.CurrentQuantity, lot.Status)
	}

	// A cancelled event cannot be restarted or completed.
	if _, err := models.StartCleaningEvent(keeperCtx, event.ID); err == nil {
		t.Fatal("starting a cancelled event should fail")
	}
}
