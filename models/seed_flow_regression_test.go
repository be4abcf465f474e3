package models_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/mmdatafocus/seedstore_backend/config"
	"github.com/mmdatafocus/seedstore_backend/models"
	"github.com/mmdatafocus/seedstore_backend/utils"
	"github.com/shopspring/decimal"
)

func TestReceiveAndIssueFlow(t *testing.T) {
	setupIntegrationDB(t)
	fx := seedFixture(t)

	keeperCtx := ctxAs(fx.Storekeeper)
	managerCtx := ctxAs(fx.Manager)

	// Receive 100 kg of wheat/breeder through an SRV.
	srv, err := models.CreateSRV(keeperCtx, models.NewSRV{
		WarehouseId:  fx.Warehouse.ID,
		SourceType:   models.SourceInGrower,
		SupplierName: "U Ba Grower Group",
		Items: []models.NewSRVItem{
			{SeedProductId: fx.Wheat.ID, SeedClassId: fx.Breeder.ID, Quantity: decimal.NewFromInt(100), SourceReference: "field-12"},
		},
	})
	if err != nil {
		t.Fatalf("CreateSRV: %v", err)
	}
	if srv.Status != models.DocumentDraft {
		t.Fatalf("expected draft, got %s", srv.Status)
	}

	if _, err := models.SubmitSRV(keeperCtx, srv.ID); err != nil {
		t.Fatalf("SubmitSRV: %v", err)
	}

	// Self-approval must fail even after submit.
	if _, err := models.ApproveSRV(keeperCtx, srv.ID); err == nil {
		t.Fatal("self-approval should fail")
	}

	srv, err = models.ApproveSRV(managerCtx, srv.ID)
	if err != nil {
		t.Fatalf("ApproveSRV: %v", err)
	}
	if srv.Status != models.DocumentApproved {
		t.Fatalf("expected approved, got %s", srv.Status)
	}
	if len(srv.Items) != 1 || srv.Items[0].LotId == nil {
		t.Fatalf("expected one item with a lot id, got %+v", srv.Items)
	}

	lotId := *srv.Items[0].LotId
	lot, err := models.GetLot(keeperCtx, lotId)
	if err != nil {
		t.Fatalf("GetLot: %v", err)
	}
	if !lot.InitialQuantity.Equal(decimal.NewFromInt(100)) || !lot.CurrentQuantity.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected 100/100, got %s/%s", lot.InitialQuantity, lot.CurrentQuantity)
	}
	if lot.Status != models.LotStored {
		t.Fatalf("expected stored, got %s", lot.Status)
	}
	if lot.LotNumber == "" {
		t.Fatal("lot number must be assigned")
	}

	// Issue 40 kg through an SIV.
	siv, err := models.CreateSIV(keeperCtx, models.NewSIV{
		WarehouseId:   fx.Warehouse.ID,
		RecipientType: models.RecipientCustomer,
		RecipientName: "Golden Harvest Co",
		Purpose:       models.PurposeSales,
		Items: []models.NewSIVItem{
			{LotId: lotId, Quantity: decimal.NewFromInt(40)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSIV: %v", err)
	}
	if _, err := models.SubmitSIV(keeperCtx, siv.ID); err != nil {
		t.Fatalf("SubmitSIV: %v", err)
	}
	siv, err = models.ApproveSIV(managerCtx, siv.ID)
	if err != nil {
		t.Fatalf("ApproveSIV: %v", err)
	}
	if siv.Status != models.DocumentApproved {
		t.Fatalf("expected approved, got %s", siv.Status)
	}

	lot, err = models.GetLot(keeperCtx, lotId)
	if err != nil {
		t.Fatalf("GetLot after issue: %v", err)
	}
	if !lot.CurrentQuantity.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("expected 60 remaining, got %s", lot.CurrentQuantity)
	}
	// Partial issue: the lot stays stored, not exhausted.
	if lot.Status != models.LotStored {
		t.Fatalf("expected stored after partial issue, got %s", lot.Status)
	}

	// Ledger: +100 receipt then -40 issue, with running balances.
	movements, err := models.ListLotMovements(keeperCtx, lotId)
	if err != nil {
		t.Fatalf("ListLotMovements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected 2 movements, got %d", len(movements))
	}
	if movements[0].MovementType != models.MovementReceived ||
		!movements[0].Quantity.Equal(decimal.NewFromInt(100)) ||
		!movements[0].BalanceAfter.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected first movement: %+v", movements[0])
	}
	if movements[1].MovementType != models.MovementIssued ||
		!movements[1].Quantity.Equal(decimal.NewFromInt(-40)) ||
		!movements[1].BalanceAfter.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("unexpected second movement: %+v", movements[1])
	}
}

func TestOverIssueRejectedAndBalanceUnchanged(t *testing.T) {
	setupIntegrationDB(t)
	fx := seedFixture(t)

	keeperCtx := ctxAs(fx.Storekeeper)
	managerCtx := ctxAs(fx.Manager)

	lotId := receiveLot(t, fx, "50")

	siv, err := models.CreateSIV(keeperCtx, models.NewSIV{
		WarehouseId:   fx.Warehouse.ID,
		RecipientType: models.RecipientInternal,
		RecipientName: "Research Station",
		Purpose:       models.PurposeResearch,
		Items: []models.NewSIVItem{
			{LotId: lotId, Quantity: decimal.NewFromInt(30)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSIV: %v", err)
	}
	if _, err := models.SubmitSIV(keeperCtx, siv.ID); err != nil {
		t.Fatalf("SubmitSIV: %v", err)
	}

	// Drain the lot to 20 with a second voucher approved first.
	other, err := models.CreateSIV(keeperCtx, models.NewSIV{
		WarehouseId:   fx.Warehouse.ID,
		RecipientType: models.RecipientCustomer,
		RecipientName: "Early Bird",
		Purpose:       models.PurposeSales,
		Items: []models.NewSIVItem{
			{LotId: lotId, Quantity: decimal.NewFromInt(30)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSIV(other): %v", err)
	}
	if _, err := models.SubmitSIV(keeperCtx, other.ID); err != nil {
		t.Fatalf("SubmitSIV(other): %v", err)
	}
	if _, err := models.ApproveSIV(managerCtx, other.ID); err != nil {
		t.Fatalf("ApproveSIV(other): %v", err)
	}

	// The first voucher passed validation at draft time, but the balance
	// moved since; commit-time re-validation must reject it.
	_, err = models.ApproveSIV(managerCtx, siv.ID)
	if err == nil {
		t.Fatal("expected insufficient quantity")
	}
	var insufficientErr *utils.InsufficientQuantityError
	if !errors.As(err, &insufficientErr) {
		t.Fatalf("want InsufficientQuantityError, got %T: %v", err, err)
	}
	if !insufficientErr.Available.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("error should report available=20, got %s", insufficientErr.Available)
	}

	// Failed approval leaves the document pending and the lot untouched.
	siv, err = models.GetSIV(keeperCtx, siv.ID)
	if err != nil {
		t.Fatalf("GetSIV: %v", err)
	}
	if siv.Status != models.DocumentPending {
		t.Fatalf("expected pending after failed approval, got %s", siv.Status)
	}
	lot, err := models.GetLot(keeperCtx, lotId)
	if err != nil {
		t.Fatalf("GetLot: %v", err)
	}
	if !lot.CurrentQuantity.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected 20 remaining, got %s", lot.CurrentQuantity)
	}
}

func TestRejectKeepsApprovalFieldsEmpty(t *testing.T) {
	setupIntegrationDB(t)
	fx := seedFixture(t)

	keeperCtx := ctxAs(fx.Storekeeper)
	managerCtx := ctxAs(fx.Manager)

	srv, err := models.CreateSRV(keeperCtx, models.NewSRV{
		WarehouseId:  fx.Warehouse.ID,
		SourceType:   models.SourceInGrower,
		SupplierName: "U Ba Grower Group",
		Items: []models.NewSRVItem{
			{SeedProductId: fx.Wheat.ID, SeedClassId: fx.Breeder.ID, Quantity: decimal.NewFromInt(40)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSRV: %v", err)
	}
	if _, err := models.SubmitSRV(keeperCtx, srv.ID); err != nil {
		t.Fatalf("SubmitSRV: %v", err)
	}

	srv, err = models.RejectSRV(managerCtx, srv.ID, "moisture over limit")
	if err != nil {
		t.Fatalf("RejectSRV: %v", err)
	}
	if srv.Status != models.DocumentRejected {
		t.Fatalf("expected rejected, got %s", srv.Status)
	}
	if srv.RejectionReason != "moisture over limit" {
		t.Fatalf("rejection reason must be recorded, got %q", srv.RejectionReason)
	}
	// approved_by/approved_at mean approval; a rejection must not fill them.
	if srv.ApprovedById != nil || srv.ApprovedAt != nil {
		t.Fatalf("approval fields must stay empty on rejection, got by=%v at=%v",
			srv.ApprovedById, srv.ApprovedAt)
	}
}

func TestLotNumbersSurviveColdSequenceCounter(t *testing.T) {
	setupIntegrationDB(t)
	fx := seedFixture(t)

	// Database-only mode: every lot number comes from max(sequence_no)
	// instead of the redis counter.
	if err := config.CloseRedis(); err != nil {
		t.Fatalf("CloseRedis: %v", err)
	}

	keeperCtx := ctxAs(fx.Storekeeper)
	managerCtx := ctxAs(fx.Manager)

	// Two items in the same warehouse mint two lots inside one approval
	// transaction; the second number must account for the first, still
	// uncommitted, lot row.
	srv, err := models.CreateSRV(keeperCtx, models.NewSRV{
		WarehouseId:  fx.Warehouse.ID,
		SourceType:   models.SourceInGrower,
		SupplierName: "U Ba Grower Group",
		Items: []models.NewSRVItem{
			{SeedProductId: fx.Wheat.ID, SeedClassId: fx.Breeder.ID, Quantity: decimal.NewFromInt(30)},
			{SeedProductId: fx.Wheat.ID, SeedClassId: fx.Foundation.ID, Quantity: decimal.NewFromInt(20)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSRV: %v", err)
	}
	if _, err := models.SubmitSRV(keeperCtx, srv.ID); err != nil {
		t.Fatalf("SubmitSRV: %v", err)
	}
	srv, err = models.ApproveSRV(managerCtx, srv.ID)
	if err != nil {
		t.Fatalf("ApproveSRV: %v", err)
	}
	if len(srv.Items) != 2 || srv.Items[0].LotId == nil || srv.Items[1].LotId == nil {
		t.Fatalf("expected two items with lot ids, got %+v", srv.Items)
	}

	first, err := models.GetLot(keeperCtx, *srv.Items[0].LotId)
	if err != nil {
		t.Fatalf("GetLot(first): %v", err)
	}
	second, err := models.GetLot(keeperCtx, *srv.Items[1].LotId)
	if err != nil {
		t.Fatalf("GetLot(second): %v", err)
	}
	if first.LotNumber == second.LotNumber {
		t.Fatalf("both lots got number %s", first.LotNumber)
	}
	if first.SequenceNo == second.SequenceNo {
		t.Fatalf("both lots got sequence %d", first.SequenceNo)
	}
}

func TestTraceIsIdempotent(t *testing.T) {
	setupIntegrationDB(t)
	fx := seedFixture(t)

	keeperCtx := ctxAs(fx.Storekeeper)
	lotId := receiveLot(t, fx, "100")

	first, err := models.TraceLot(keeperCtx, lotId)
	if err != nil {
		t.Fatalf("TraceLot(first): %v", err)
	}
	second, err := models.TraceLot(keeperCtx, lotId)
	if err != nil {
		t.Fatalf("TraceLot(second): %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("trace must be identical across calls with no intervening mutation")
	}

	// Fresh receiving lot: backward points at the SRV, forward is empty.
	if first.SrvInfo == nil {
		t.Fatal("expected srv_info for a received lot")
	}
	if first.CleaningOrigin != nil || first.ParentLotInfo != nil {
		t.Fatal("received lot must have no cleaning origin")
	}
	if len(first.SivItems) != 0 || len(first.CleaningInput) != 0 || len(first.ChildLots) != 0 {
		t.Fatal("unconsumed lot must have empty forward lists")
	}
}

// receiveLot pushes one SRV through the full approval pipeline and returns
// the minted lot id.
func receiveLot(t *testing.T, fx *testFixture, quantity string) int {
	t.Helper()
	keeperCtx := ctxAs(fx.Storekeeper)
	managerCtx := ctxAs(fx.Manager)

	qty, err := decimal.NewFromString(quantity)
	if err != nil {
		t.Fatalf("bad quantity %q: %v", quantity, err)
	}
	srv, err := models.CreateSRV(keeperCtx, models.NewSRV{
		WarehouseId:  fx.Warehouse.ID,
		SourceType:   models.SourceInGrower,
		SupplierName: "Contract Grower",
		Items: []models.NewSRVItem{
			{SeedProductId: fx.Wheat.ID, SeedClassId: fx.Breeder.ID, Quantity: qty},
		},
	})
	if err != nil {
		t.Fatalf("CreateSRV: %v", err)
	}
	if _, err := models.SubmitSRV(keeperCtx, srv.ID); err != nil {
		t.Fatalf("SubmitSRV: %v", err)
	}
	srv, err = models.ApproveSRV(managerCtx, srv.ID)
	if err != nil {
		t.Fatalf("ApproveSRV: %v", err)
	}
	return *srv.Items[0].LotId
}
