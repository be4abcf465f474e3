package models

/* status and classification enums */

// LotStatus describes where a lot sits in its life cycle. Transitions are
// one-way: a lot that left "stored" never returns to it.
type LotStatus string

const (
	LotStored    LotStatus = "stored"
	LotCleaned   LotStatus = "cleaned"
	LotIssued    LotStatus = "issued"
	LotExhausted LotStatus = "exhausted"
)

// DocumentStatus is shared by receiving (SRV) and issuing (SIV) vouchers.
type DocumentStatus string

const (
	DocumentDraft     DocumentStatus = "draft"
	DocumentPending   DocumentStatus = "pending"
	DocumentApproved  DocumentStatus = "approved"
	DocumentRejected  DocumentStatus = "rejected"
	DocumentCancelled DocumentStatus = "cancelled"
)

// CleaningStatus tracks a cleaning event from planning to settlement.
type CleaningStatus string

const (
	CleaningDraft      CleaningStatus = "draft"
	CleaningInProgress CleaningStatus = "in_progress"
	CleaningCompleted  CleaningStatus = "completed"
	CleaningCancelled  CleaningStatus = "cancelled"
)

type SourceType string

const (
	SourceInternal  SourceType = "internal"
	SourceInGrower  SourceType = "in_grower"
	SourceOutGrower SourceType = "out_grower"
)

type RecipientType string

const (
	RecipientCustomer RecipientType = "customer"
	RecipientGrower   RecipientType = "grower"
	RecipientInternal RecipientType = "internal"
)

type IssuePurpose string

const (
	PurposeSales        IssuePurpose = "sales"
	PurposeDistribution IssuePurpose = "distribution"
	PurposeResearch     IssuePurpose = "research"
	PurposeTransfer     IssuePurpose = "transfer"
	PurposeDisposal     IssuePurpose = "disposal"
)

type SeedClassType string

const (
	SeedClassBreeder    SeedClassType = "breeder"
	SeedClassFoundation SeedClassType = "foundation"
	SeedClassCertified  SeedClassType = "certified"
)

type MovementType string

const (
	MovementReceived MovementType = "received"
	MovementIssued   MovementType = "issued"
	MovementCleaning MovementType = "cleaning"
)

type UserRole string

const (
	RoleAdmin       UserRole = "admin"
	RoleManager     UserRole = "manager"
	RoleStorekeeper UserRole = "storekeeper"
	RoleQA          UserRole = "qa"
	RoleSales       UserRole = "sales"
)

// CanApproveDocuments reports whether the role may approve or reject
// pending vouchers.
func (r UserRole) CanApproveDocuments() bool {
	return r == RoleAdmin || r == RoleManager
}

var documentTransitions = map[DocumentStatus][]DocumentStatus{
	DocumentDraft:   {DocumentPending, DocumentCancelled},
	DocumentPending: {DocumentApproved, DocumentRejected},
}

// CanTransitionTo reports whether the document transition is allowed.
// Approved, rejected and cancelled are terminal. A pending document cannot
// be cancelled; it must be rejected by an approver instead.
func (s DocumentStatus) CanTransitionTo(next DocumentStatus) bool {
	for _, allowed := range documentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsEditable reports whether header fields and line items may still change.
func (s DocumentStatus) IsEditable() bool {
	return s == DocumentDraft
}

var cleaningTransitions = map[CleaningStatus][]CleaningStatus{
	CleaningDraft:      {CleaningInProgress, CleaningCancelled},
	CleaningInProgress: {CleaningCompleted, CleaningCancelled},
}

func (s CleaningStatus) CanTransitionTo(next CleaningStatus) bool {
	for _, allowed := range cleaningTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var validSourceTypes = map[SourceType]bool{
	SourceInternal:  true,
	SourceInGrower:  true,
	SourceOutGrower: true,
}

func (s SourceType) Valid() bool { return validSourceTypes[s] }

var validRecipientTypes = map[RecipientType]bool{
	RecipientCustomer: true,
	RecipientGrower:   true,
	RecipientInternal: true,
}

func (r RecipientType) Valid() bool { return validRecipientTypes[r] }

var validIssuePurposes = map[IssuePurpose]bool{
	PurposeSales:        true,
	PurposeDistribution: true,
	PurposeResearch:     true,
	PurposeTransfer:     true,
	PurposeDisposal:     true,
}

func (p IssuePurpose) Valid() bool { return validIssuePurposes[p] }

var validSeedClassTypes = map[SeedClassType]bool{
	SeedClassBreeder:    true,
	SeedClassFoundation: true,
	SeedClassCertified:  true,
}

func (t SeedClassType) Valid() bool { return validSeedClassTypes[t] }

var validUserRoles = map[UserRole]bool{
	RoleAdmin:       true,
	RoleManager:     true,
	RoleStorekeeper: true,
	RoleQA:          true,
	RoleSales:       true,
}

func (r UserRole) Valid() bool { return validUserRoles[r] }
