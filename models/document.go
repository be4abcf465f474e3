package models

import (
	"context"

	"github.com/mmdatafocus/seedstore_backend/utils"
)

// officerFromContext resolves the acting officer placed in the request
// context by the session middleware.
func officerFromContext(ctx context.Context) (int, UserRole, error) {
	officerId, ok := utils.GetOfficerIdFromContext(ctx)
	if !ok || officerId == 0 {
		return 0, "", utils.NewStateError("authentication required")
	}
	role, _ := utils.GetOfficerRoleFromContext(ctx)
	return officerId, UserRole(role), nil
}

/* shared voucher state machine rules

SRV and SIV share one life cycle:

    draft -> pending -> approved | rejected
    draft -> cancelled

The checks below are the full precondition set for each transition; the
voucher-specific side effects (creating or debiting lots) run inside the
approval transaction of the respective model. */

// canEditDocument gates header/line edits. Only the creating officer may
// touch a voucher, and only while it is a draft.
func canEditDocument(status DocumentStatus, creatorId, callerId int) error {
	if callerId != creatorId {
		return utils.NewStateError("only the creating officer may edit this document")
	}
	if !status.IsEditable() {
		return utils.NewStateError("cannot edit a %s document", status)
	}
	return nil
}

// canSubmitDocument gates draft -> pending.
func canSubmitDocument(status DocumentStatus, itemCount int, creatorId, callerId int) error {
	if !status.CanTransitionTo(DocumentPending) {
		return utils.NewStateError("cannot submit a %s document", status)
	}
	if callerId != creatorId {
		return utils.NewStateError("only the creating officer may submit this document")
	}
	if itemCount == 0 {
		return utils.NewValidationError("document has no line items")
	}
	return nil
}

// canApproveDocument gates pending -> approved. The approver must hold an
// elevated role and must not be the creator (segregation of duties).
func canApproveDocument(status DocumentStatus, creatorId, approverId int, approverRole UserRole) error {
	if !status.CanTransitionTo(DocumentApproved) {
		return utils.NewStateError("cannot approve a %s document", status)
	}
	if !approverRole.CanApproveDocuments() {
		return utils.NewStateError("role %s may not approve documents", approverRole)
	}
	if approverId == creatorId {
		return utils.NewStateError("a document cannot be approved by its creating officer")
	}
	return nil
}

// canRejectDocument gates pending -> rejected. A reason is mandatory.
func canRejectDocument(status DocumentStatus, creatorId, approverId int, approverRole UserRole, reason string) error {
	if !status.CanTransitionTo(DocumentRejected) {
		return utils.NewStateError("cannot reject a %s document", status)
	}
	if !approverRole.CanApproveDocuments() {
		return utils.NewStateError("role %s may not reject documents", approverRole)
	}
	if approverId == creatorId {
		return utils.NewStateError("a document cannot be rejected by its creating officer")
	}
	if reason == "" {
		return utils.NewValidationError("rejection reason is required")
	}
	return nil
}

// canCancelDocument gates draft -> cancelled. Pending documents must be
// rejected by an approver, not cancelled.
func canCancelDocument(status DocumentStatus, creatorId, callerId int) error {
	if status == DocumentPending {
		return utils.NewStateError("a pending document cannot be cancelled; it must be rejected")
	}
	if !status.CanTransitionTo(DocumentCancelled) {
		return utils.NewStateError("cannot cancel a %s document", status)
	}
	if callerId != creatorId {
		return utils.NewStateError("only the creating officer may cancel this document")
	}
	return nil
}
