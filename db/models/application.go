package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ApplicationType discriminates the two permit variants held in one table.
type ApplicationType string

const (
	BuildingApplication  ApplicationType = "BUILDING"
	OccupancyApplication ApplicationType = "OCCUPANCY"
)

// ApplicationStatus values are the wire-level strings shown to clients.
type ApplicationStatus string

const (
	StatusSubmitted        ApplicationStatus = "Submitted"
	StatusPendingMEO       ApplicationStatus = "Pending MEO"
	StatusPendingBFP       ApplicationStatus = "Pending BFP"
	StatusPendingMayor     ApplicationStatus = "Pending Mayor"
	StatusPaymentPending   ApplicationStatus = "Payment Pending"
	StatusPaymentSubmitted ApplicationStatus = "Payment Submitted"
	StatusApproved         ApplicationStatus = "Approved"
	StatusRejected         ApplicationStatus = "Rejected"
	StatusForCorrection    ApplicationStatus = "For Correction"
	StatusPermitIssued     ApplicationStatus = "Permit Issued"
)

// AllStatuses is the canonical status vocabulary.
var AllStatuses = []ApplicationStatus{
	StatusSubmitted,
	StatusPendingMEO,
	StatusPendingBFP,
	StatusPendingMayor,
	StatusPaymentPending,
	StatusPaymentSubmitted,
	StatusApproved,
	StatusRejected,
	StatusForCorrection,
	StatusPermitIssued,
}

// IsValidStatus reports whether s belongs to the canonical vocabulary.
func IsValidStatus(s ApplicationStatus) bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentNotPaid   PaymentStatus = "NOT_PAID"
	PaymentSubmitted PaymentStatus = "SUBMITTED"
	PaymentVerified  PaymentStatus = "VERIFIED"
	PaymentRefunded  PaymentStatus = "REFUNDED"
)

// Application is the permit request aggregate. Building and Occupancy
// variants share the table; ApplicationType drives which form sections the
// surrounding code renders. The workflow engine treats FormData as opaque and
// only reads/writes AssessmentData.
type Application struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key;" json:"id"`
	ReferenceNo     string          `gorm:"unique;not null;index" json:"reference_no"`
	ApplicationType ApplicationType `gorm:"type:varchar(20);not null;index" json:"application_type"`

	Status ApplicationStatus `gorm:"type:varchar(30);default:'Submitted';index" json:"status"`

	// Owning applicant, immutable after creation.
	ApplicantID uuid.UUID `gorm:"type:uuid;not null;index" json:"applicant_id"`
	Applicant   User      `gorm:"foreignKey:ApplicantID" json:"applicant"`

	// Form sections. FormData holds the citizen-filled boxes; AssessmentData
	// holds the admin-editable sections (box5/box6) merged in by the engine.
	FormData       datatypes.JSON `gorm:"type:jsonb" json:"form_data"`
	AssessmentData datatypes.JSON `gorm:"type:jsonb" json:"assessment_data"`

	// Rejection bookkeeping. RejectedByRole records which office sent the
	// application back so resolution can route to the right reviewer.
	RejectionComments  string                         `gorm:"type:text" json:"rejection_comments"`
	MissingDocuments   datatypes.JSONSlice[string]    `gorm:"type:jsonb" json:"missing_documents"`
	RejectionResolved  bool                           `gorm:"default:true" json:"rejection_resolved"`
	RejectedByRole     UserRole                       `gorm:"type:varchar(20)" json:"rejected_by_role"`

	// Fee assessment. TotalAmountDue is derived from FeeItems and only ever
	// written by the fee ledger service.
	TotalAmountDue decimal.Decimal `gorm:"type:decimal(15,2);default:0" json:"total_amount_due"`
	FeeItems       []FeeLineItem   `gorm:"foreignKey:ApplicationID" json:"fee_items,omitempty"`

	// Payment tracking
	PaymentMethod    *string          `json:"payment_method"`
	PaymentStatus    PaymentStatus    `gorm:"type:varchar(20);default:'NOT_PAID'" json:"payment_status"`
	PaymentReference *string          `gorm:"index" json:"payment_reference"`
	PaymentProofPath *string          `json:"payment_proof_path"`
	PaymentProofName *string          `json:"payment_proof_name"`
	PaymentProofMime *string          `json:"payment_proof_mime"`
	PaymentDate      *time.Time       `json:"payment_date"`
	AmountPaid       *decimal.Decimal `gorm:"type:decimal(15,2)" json:"amount_paid"`

	// Permit issuance. PermitNumber is write-once; once set it is never
	// regenerated or overwritten.
	PermitNumber   *string    `gorm:"uniqueIndex" json:"permit_number"`
	PermitIssuedAt *time.Time `json:"permit_issued_at"`
	PermitIssuedBy *string    `json:"permit_issued_by"`

	// Occupancy only: the parent Building Application, resolved at creation
	// time and immutable thereafter.
	BuildingPermitID *uuid.UUID   `gorm:"type:uuid;index" json:"building_permit_id"`
	BuildingPermit   *Application `gorm:"foreignKey:BuildingPermitID" json:"building_permit,omitempty"`

	Documents []ApplicationDocument  `gorm:"foreignKey:ApplicationID" json:"documents,omitempty"`
	History   []WorkflowHistoryEntry `gorm:"foreignKey:ApplicationID" json:"workflow_history,omitempty"`

	SubmissionDate time.Time `gorm:"not null" json:"submission_date"`

	// Audit fields
	CreatedBy string         `gorm:"not null" json:"created_by"`
	UpdatedBy *string        `json:"updated_by"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// WorkflowHistoryEntry is the append-only audit log of status changes. Rows
// are only ever inserted, never updated or deleted.
type WorkflowHistoryEntry struct {
	ID            uuid.UUID         `gorm:"type:uuid;primary_key;" json:"id"`
	ApplicationID uuid.UUID         `gorm:"type:uuid;not null;index" json:"application_id"`
	Status        ApplicationStatus `gorm:"type:varchar(30);not null" json:"status"`
	Comments      string            `gorm:"type:text" json:"comments"`
	UpdatedBy     string            `gorm:"not null" json:"updated_by"`
	CreatedAt     time.Time         `gorm:"autoCreateTime" json:"timestamp"`
}

// FeeLineItem is one row of the fee assessment sub-ledger. Position keeps the
// ledger ordered the way the assessing officer entered it.
type FeeLineItem struct {
	ID            uuid.UUID       `gorm:"type:uuid;primary_key;" json:"id"`
	ApplicationID uuid.UUID       `gorm:"type:uuid;not null;index" json:"application_id"`
	Position      int             `gorm:"not null" json:"position"`
	Particular    string          `gorm:"not null" json:"particular"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// ApplicationDocument is an uploaded supporting file. Re-uploading a document
// with the same name replaces the stored file in place (same position);
// otherwise the entry is appended.
type ApplicationDocument struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;" json:"id"`
	ApplicationID uuid.UUID `gorm:"type:uuid;not null;index" json:"application_id"`
	Name          string    `gorm:"not null;index" json:"name"`
	FilePath      string    `gorm:"not null" json:"file_path"`
	MimeType      string    `json:"mime_type"`
	FileSize      int64     `gorm:"not null" json:"file_size"`
	Position      int       `gorm:"not null" json:"position"`
	UploadedBy    string    `gorm:"not null" json:"uploaded_by"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"uploaded_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// SequenceCounter backs reference and permit number allocation. Scope is a
// per-month key such as "REF:B:2503" or "PERMIT:2503"; Value is incremented
// atomically so two concurrent creations can never observe the same number.
type SequenceCounter struct {
	Scope     string    `gorm:"primary_key" json:"scope"`
	Value     int64     `gorm:"not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *Application) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return
}

func (h *WorkflowHistoryEntry) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return
}

func (f *FeeLineItem) BeforeCreate(tx *gorm.DB) (err error) {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return
}

func (d *ApplicationDocument) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return
}
