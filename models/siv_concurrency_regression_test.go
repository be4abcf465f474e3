package models_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/mmdatafocus/seedstore_backend/models"
	"github.com/mmdatafocus/seedstore_backend/utils"
	"github.com/shopspring/decimal"
)

// Two pending vouchers race for a balance that only supports one of them.
// Row locks serialize the approvals; exactly one wins and the loser gets
// InsufficientQuantity, never a double debit.
func TestConcurrentApprovalsCannotOverIssue(t *testing.T) {
	setupIntegrationDB(t)
	fx := seedFixture(t)

	keeperCtx := ctxAs(fx.Storekeeper)
	lotId := receiveLot(t, fx, "60")

	newPendingSIV := func(recipient string) int {
		siv, err := models.CreateSIV(keeperCtx, models.NewSIV{
			WarehouseId:   fx.Warehouse.ID,
			RecipientType: models.RecipientCustomer,
			RecipientName: recipient,
			Purpose:       models.PurposeSales,
			Items: []models.NewSIVItem{
				{LotId: lotId, Quantity: decimal.NewFromInt(40)},
			},
		})
		if err != nil {
			t.Fatalf("CreateSIV(%s): %v", recipient, err)
		}
		if _, err := models.SubmitSIV(keeperCtx, siv.ID); err != nil {
			t.Fatalf("SubmitSIV(%s): %v", recipient, err)
		}
		return siv.ID
	}

	firstId := newPendingSIV("First Come")
	secondId := newPendingSIV("Second Served")

	approvers := map[int]*models.User{
		firstId:  fx.Manager,
		secondId: fx.Admin,
	}

	results := make(map[int]error, 2)
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, sivId := range []int{firstId, secondId} {
		wg.Add(1)
		go func(sivId int) {
			defer wg.Done()
			_, err := models.ApproveSIV(ctxAs(approvers[sivId]), sivId)
			mu.Lock()
			results[sivId] = err
			mu.Unlock()
		}(sivId)
	}
	wg.Wait()

	var wins, losses int
	for sivId, err := range results {
		if err == nil {
			wins++
			continue
		}
		losses++
		var insufficientErr *utils.InsufficientQuantityError
		if !errors.As(err, &insufficientErr) {
			t.Fatalf("siv %d: want InsufficientQuantityError, got %T: %v", sivId, err, err)
		}
	}
	if wins != 1 || losses != 1 {
		t.Fatalf("expected exactly one winner and one loser, got wins=%d losses=%d", wins, losses)
	}

	// Winner debited 40 from 60.
	lot, err := models.GetLot(keeperCtx, lotId)
	if err != nil {
		t.Fatalf("GetLot: %v", err)
	}
	if !lot.CurrentQuantity.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected 20 remaining, got %s", lot.CurrentQuantity)
	}

	var approvedCount int
	for _, sivId := range []int{firstId, secondId} {
		siv, err := models.GetSIV(keeperCtx, sivId)
		if err != nil {
			t.Fatalf("GetSIV(%d): %v", sivId, err)
		}
		switch siv.Status {
		case models.DocumentApproved:
			approvedCount++
		case models.DocumentPending:
			// loser stays pending for correction
		default:
			t.Fatalf("siv %d: unexpected status %s", sivId, siv.Status)
		}
	}
	if approvedCount != 1 {
		t.Fatalf("expected exactly one approved voucher, got %d", approvedCount)
	}

	// One receipt plus exactly one debit in the ledger.
	movements, err := models.ListLotMovements(keeperCtx, lotId)
	if err != nil {
		t.Fatalf("ListLotMovements: %v", err)
	}
	if len(movements) != 2 {
		t.Fatalf("expected 2 movements (receipt + single debit), got %d", len(movements))
	}
}

func TestFullIssueExhaustsLot(t *testing.T) {
	setupIntegrationDB(t)
	fx := seedFixture(t)

	keeperCtx := ctxAs(fx.Storekeeper)
	managerCtx := ctxAs(fx.Manager)
	lotId := receiveLot(t, fx, "25")

	siv, err := models.CreateSIV(keeperCtx, models.NewSIV{
		WarehouseId:   fx.Warehouse.ID,
		RecipientType: models.RecipientGrower,
		RecipientName: "Out Grower Network",
		Purpose:       models.PurposeDistribution,
		Items: []models.NewSIVItem{
			{LotId: lotId, Quantity: decimal.NewFromInt(25)},
		},
	})
	if err != nil {
		t.Fatalf("CreateSIV: %v", err)
	}
	if _, err := models.SubmitSIV(keeperCtx, siv.ID); err != nil {
		t.Fatalf("SubmitSIV: %v", err)
	}
	if _, err := models.ApproveSIV(managerCtx, siv.ID); err != nil {
		t.Fatalf("ApproveSIV: %v", err)
	}

	lot, err := models.GetLot(keeperCtx, lotId)
	if err != nil {
		t.Fatalf("GetLot: %v", err)
	}
	if !lot.CurrentQuantity.IsZero() {
		t.Fatalf("expected 0 remaining, got %s", lot.CurrentQuantity)
	}
	if lot.Status != models.LotExhausted {
		t.Fatalf("expected exhausted, got %s", lot.Status)
	}

	// Nothing further can be issued or cleaned from an exhausted lot.
	_, err = models.CreateSIV(keeperCtx, models.NewSIV{
		WarehouseId:   fx.Warehouse.ID,
		RecipientType: models.RecipientCustomer,
		RecipientName: "Late Buyer",
		Purpose:       models.PurposeSales,
		Items: []models.NewSIVItem{
			{LotId: lotId, Quantity: decimal.NewFromInt(1)},
		},
	})
	if err == nil {
		t.Fatal("issuing from an exhausted lot should fail")
	}
	_, err = models.CreateCleaningEvent(keeperCtx, models.NewCleaningEvent{
		InputLotId:    lotId,
		InputQuantity: decimal.NewFromInt(1),
	})
	if err == nil {
		t.Fatal("cleaning an exhausted lot should fail")
	}
}
