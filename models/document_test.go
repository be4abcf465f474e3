package models

import (
	"errors"
	"testing"

	"github.com/mmdatafocus/seedstore_backend/utils"
)

func TestSubmitPreconditions(t *testing.T) {
	if err := canSubmitDocument(DocumentDraft, 2, 1, 1); err != nil {
		t.Errorf("creator submitting a draft with items should pass, got %v", err)
	}
	if err := canSubmitDocument(DocumentDraft, 0, 1, 1); err == nil {
		t.Error("submitting with no items must fail")
	} else {
		var verr *utils.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("want ValidationError, got %T", err)
		}
	}
	if err := canSubmitDocument(DocumentDraft, 2, 1, 2); err == nil {
		t.Error("submitting someone else's draft must fail")
	}
	if err := canSubmitDocument(DocumentPending, 2, 1, 1); err == nil {
		t.Error("submitting a pending document must fail")
	}
}

func TestApproveSegregationOfDuties(t *testing.T) {
	if err := canApproveDocument(DocumentPending, 1, 2, RoleManager); err != nil {
		t.Errorf("manager approving another officer's document should pass, got %v", err)
	}

	err := canApproveDocument(DocumentPending, 1, 1, RoleAdmin)
	if err == nil {
		t.Fatal("self-approval must fail even for admin")
	}
	var serr *utils.StateError
	if !errors.As(err, &serr) {
		t.Errorf("want StateError, got %T", err)
	}

	if err := canApproveDocument(DocumentPending, 1, 2, RoleStorekeeper); err == nil {
		t.Error("storekeeper approval must fail")
	}
	if err := canApproveDocument(DocumentDraft, 1, 2, RoleManager); err == nil {
		t.Error("approving a draft must fail")
	}
	if err := canApproveDocument(DocumentApproved, 1, 2, RoleManager); err == nil {
		t.Error("approving twice must fail")
	}
}

func TestRejectRequiresReason(t *testing.T) {
	if err := canRejectDocument(DocumentPending, 1, 2, RoleManager, "moisture too high"); err != nil {
		t.Errorf("valid rejection should pass, got %v", err)
	}

	err := canRejectDocument(DocumentPending, 1, 2, RoleManager, "")
	if err == nil {
		t.Fatal("rejection without reason must fail")
	}
	var verr *utils.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("want ValidationError, got %T", err)
	}

	if err := canRejectDocument(DocumentPending, 1, 1, RoleManager, "reason"); err == nil {
		t.Error("self-rejection must fail")
	}
}

func TestCancelOnlyFromDraft(t *testing.T) {
	if err := canCancelDocument(DocumentDraft, 1, 1); err != nil {
		t.Errorf("creator cancelling a draft should pass, got %v", err)
	}
	if err := canCancelDocument(DocumentPending, 1, 1); err == nil {
		t.Error("cancelling a pending document must fail; it needs a rejection")
	}
	if err := canCancelDocument(DocumentDraft, 1, 2); err == nil {
		t.Error("cancelling someone else's draft must fail")
	}
	if err := canCancelDocument(DocumentApproved, 1, 1); err == nil {
		t.Error("cancelling an approved document must fail")
	}
}

func TestEditOnlyOwnDraft(t *testing.T) {
	if err := canEditDocument(DocumentDraft, 1, 1); err != nil {
		t.Errorf("creator editing a draft should pass, got %v", err)
	}
	if err := canEditDocument(DocumentDraft, 1, 2); err == nil {
		t.Error("editing someone else's draft must fail")
	}
	if err := canEditDocument(DocumentPending, 1, 1); err == nil {
		t.Error("editing a pending document must fail")
	}
}
