package services

import (
	"encoding/json"
	"fmt"
	"time"

	"permit-processing-backend/db/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RoleSystem marks transitions the system performs on behalf of an applicant
// action (payment submission, revision routing). It never arrives from a
// client token.
const RoleSystem models.UserRole = "system"

// RejectionOverride lets a transition payload set the rejection record
// explicitly. When present it wins over the engine's defaults.
type RejectionOverride struct {
	Comments         string   `json:"comments"`
	MissingDocuments []string `json:"missing_documents"`
	IsResolved       bool     `json:"is_resolved"`
}

// TransitionRequest is the full payload of a status change.
type TransitionRequest struct {
	Status            models.ApplicationStatus
	ActorID           string
	ActorRole         models.UserRole
	Comments          string
	MissingDocuments  []string
	RejectionOverride *RejectionOverride
	Assessment        map[string]json.RawMessage
	FeeItems          []FeeInput
}

// TransitionResult reports what the engine changed so the repository can
// persist everything in one transaction.
type TransitionResult struct {
	Entry           *models.WorkflowHistoryEntry
	FeesReplaced    bool
	PermitGenerated bool
}

type transitionRule struct {
	roles map[models.UserRole]bool
	from  map[models.ApplicationStatus]bool
}

func roleSet(roles ...models.UserRole) map[models.UserRole]bool {
	m := make(map[models.UserRole]bool, len(roles))
	for _, r := range roles {
		m[r] = true
	}
	return m
}

func statusSet(statuses ...models.ApplicationStatus) map[models.ApplicationStatus]bool {
	m := make(map[models.ApplicationStatus]bool, len(statuses))
	for _, s := range statuses {
		m[s] = true
	}
	return m
}

// pendingStates are the review positions from which an application can be
// sent back to the applicant.
var pendingStates = []models.ApplicationStatus{
	models.StatusSubmitted,
	models.StatusPendingMEO,
	models.StatusPendingBFP,
	models.StatusPendingMayor,
	models.StatusPaymentPending,
	models.StatusPaymentSubmitted,
}

// transitionTable is the explicit (requested status -> allowed roles, allowed
// current statuses) matrix. The conventional flow is
// Submitted -> Pending MEO -> Payment Pending -> Payment Submitted ->
// Pending BFP -> Pending Mayor -> Pending MEO (final) -> Approved ->
// Permit Issued, with Rejected / For Correction reachable from any pending
// state and routing back to the rejecting office once resolved.
var transitionTable = map[models.ApplicationStatus]transitionRule{
	models.StatusSubmitted: {
		roles: roleSet(models.RoleMEOAdmin),
		from:  statusSet(models.StatusRejected, models.StatusForCorrection),
	},
	models.StatusPendingMEO: {
		roles: roleSet(models.RoleMEOAdmin, models.RoleMayorAdmin, RoleSystem),
		from: statusSet(
			models.StatusSubmitted,
			models.StatusPendingMayor,
			models.StatusRejected,
			models.StatusForCorrection,
		),
	},
	models.StatusPaymentPending: {
		roles: roleSet(models.RoleMEOAdmin),
		from: statusSet(
			models.StatusPendingMEO,
			models.StatusRejected,
			models.StatusForCorrection,
		),
	},
	models.StatusPaymentSubmitted: {
		roles: roleSet(models.RoleMEOAdmin, RoleSystem),
		from:  statusSet(models.StatusPaymentPending),
	},
	models.StatusPendingBFP: {
		roles: roleSet(models.RoleMEOAdmin, RoleSystem),
		from: statusSet(
			models.StatusPaymentSubmitted,
			models.StatusRejected,
			models.StatusForCorrection,
		),
	},
	models.StatusPendingMayor: {
		roles: roleSet(models.RoleBFPAdmin, RoleSystem),
		from: statusSet(
			models.StatusPendingBFP,
			models.StatusRejected,
			models.StatusForCorrection,
		),
	},
	models.StatusApproved: {
		roles: roleSet(models.RoleMEOAdmin),
		from:  statusSet(models.StatusPendingMEO),
	},
	// Permit Issued accepts re-entry from itself so a duplicate click is a
	// harmless idempotent call.
	models.StatusPermitIssued: {
		roles: roleSet(models.RoleMEOAdmin, models.RoleMayorAdmin),
		from:  statusSet(models.StatusApproved, models.StatusPermitIssued),
	},
	models.StatusRejected: {
		roles: roleSet(models.RoleMEOAdmin, models.RoleBFPAdmin, models.RoleMayorAdmin),
		from:  statusSet(pendingStates...),
	},
	models.StatusForCorrection: {
		roles: roleSet(models.RoleMEOAdmin, models.RoleBFPAdmin, models.RoleMayorAdmin),
		from:  statusSet(pendingStates...),
	},
}

var defaultComments = map[models.ApplicationStatus]string{
	models.StatusSubmitted:        "Application submitted",
	models.StatusPendingMEO:       "Forwarded to the Municipal Engineering Office for review",
	models.StatusPendingBFP:       "Forwarded to the Bureau of Fire Protection for review",
	models.StatusPendingMayor:     "Forwarded to the Mayor's Office for review",
	models.StatusPaymentPending:   "Fee assessment published, awaiting payment",
	models.StatusPaymentSubmitted: "Payment submitted, awaiting verification",
	models.StatusApproved:         "Application approved",
	models.StatusRejected:         "Application rejected",
	models.StatusForCorrection:    "Application returned for correction",
	models.StatusPermitIssued:     "Permit issued",
}

// ReviewStateFor maps the office that rejected an application back to its
// pending status. Unknown or empty tags route to the MEO, which owns intake.
func ReviewStateFor(role models.UserRole) models.ApplicationStatus {
	switch role {
	case models.RoleBFPAdmin:
		return models.StatusPendingBFP
	case models.RoleMayorAdmin:
		return models.StatusPendingMayor
	default:
		return models.StatusPendingMEO
	}
}

// WorkflowEngine validates and applies status transitions. It mutates the
// aggregate in memory; persistence of the status write, side effects and the
// history append happens in one transaction via
// ApplicationRepository.SaveTransition.
type WorkflowEngine struct {
	sequences SequenceIssuer
	now       func() time.Time
}

func NewWorkflowEngine(sequences SequenceIssuer) *WorkflowEngine {
	return &WorkflowEngine{
		sequences: sequences,
		now:       time.Now,
	}
}

// Apply runs one transition against the aggregate. The tx is only handed to
// the sequence issuer (permit issuance locks its counter row inside the same
// transaction the repository later commits).
func (e *WorkflowEngine) Apply(tx *gorm.DB, app *models.Application, req TransitionRequest) (*TransitionResult, error) {
	if !models.IsValidStatus(req.Status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, req.Status)
	}

	rule := transitionTable[req.Status]
	if !rule.roles[req.ActorRole] {
		return nil, fmt.Errorf("%w: role %q cannot set status %q", ErrForbidden, req.ActorRole, req.Status)
	}
	if !rule.from[app.Status] {
		return nil, fmt.Errorf("%w: %q -> %q", ErrInvalidTransition, app.Status, req.Status)
	}

	result := &TransitionResult{}
	now := e.now()

	switch req.Status {
	case models.StatusRejected, models.StatusForCorrection:
		comments := req.Comments
		if comments == "" {
			comments = defaultComments[req.Status]
		}
		app.RejectionComments = comments
		app.MissingDocuments = datatypes.NewJSONSlice(append([]string{}, req.MissingDocuments...))
		app.RejectionResolved = false
		app.RejectedByRole = req.ActorRole

	case models.StatusSubmitted, models.StatusPendingMEO, models.StatusPaymentPending:
		// Re-entering an active review state resolves any outstanding
		// rejection, unconditionally.
		app.RejectionComments = ""
		app.MissingDocuments = datatypes.NewJSONSlice([]string{})
		app.RejectionResolved = true
		app.RejectedByRole = ""
	}

	// An explicit rejection record in the payload wins over the defaults
	// above.
	if req.RejectionOverride != nil {
		app.RejectionComments = req.RejectionOverride.Comments
		app.MissingDocuments = datatypes.NewJSONSlice(append([]string{}, req.RejectionOverride.MissingDocuments...))
		app.RejectionResolved = req.RejectionOverride.IsResolved
	}

	if len(req.Assessment) > 0 {
		merged, err := mergeAssessment(app.AssessmentData, req.Assessment)
		if err != nil {
			return nil, fmt.Errorf("failed to merge assessment payload: %w", err)
		}
		app.AssessmentData = merged
	}

	if req.Status == models.StatusPaymentPending {
		if len(req.FeeItems) > 0 {
			ledger, total, err := BuildFeeLedger(app.ID, req.FeeItems)
			if err != nil {
				return nil, err
			}
			app.FeeItems = ledger
			app.TotalAmountDue = total
			result.FeesReplaced = true
		} else if app.TotalAmountDue.IsZero() && len(app.FeeItems) == 0 {
			return nil, fmt.Errorf("%w: cannot request payment without a fee assessment", ErrValidation)
		}
	}

	if req.Status == models.StatusPermitIssued {
		if app.PermitNumber == nil || *app.PermitNumber == "" {
			permitNo, err := e.sequences.NextPermitNumber(tx, now)
			if err != nil {
				return nil, err
			}
			issuedBy := req.ActorID
			app.PermitNumber = &permitNo
			app.PermitIssuedAt = &now
			app.PermitIssuedBy = &issuedBy
			result.PermitGenerated = true
		}
		// Already issued: keep the existing number untouched. The history
		// entry below still records the repeated request.
	}

	app.Status = req.Status
	actor := req.ActorID
	app.UpdatedBy = &actor

	comments := req.Comments
	if comments == "" {
		comments = defaultComments[req.Status]
	}
	result.Entry = &models.WorkflowHistoryEntry{
		ApplicationID: app.ID,
		Status:        req.Status,
		Comments:      comments,
		UpdatedBy:     req.ActorID,
		CreatedAt:     now,
	}

	return result, nil
}

// ResolveMissingDocument removes one item from the outstanding list. When the
// list empties while the application sits in a rejection status, the
// application auto-advances to the rejecting office's pending state; the
// returned request carries that follow-up transition (nil when nothing
// advances).
func (e *WorkflowEngine) ResolveMissingDocument(app *models.Application, item string, actorID string) (*TransitionRequest, error) {
	remaining := make([]string, 0, len(app.MissingDocuments))
	found := false
	for _, doc := range app.MissingDocuments {
		if doc == item && !found {
			found = true
			continue
		}
		remaining = append(remaining, doc)
	}
	if !found {
		return nil, fmt.Errorf("%w: %q is not an outstanding document", ErrValidation, item)
	}
	app.MissingDocuments = datatypes.NewJSONSlice(remaining)

	if len(remaining) > 0 {
		return nil, nil
	}

	app.RejectionResolved = true
	if app.Status != models.StatusRejected && app.Status != models.StatusForCorrection {
		return nil, nil
	}
	return &TransitionRequest{
		Status:    ReviewStateFor(app.RejectedByRole),
		ActorID:   actorID,
		ActorRole: RoleSystem,
		Comments:  "All outstanding documents provided, returned for review",
	}, nil
}

// RevisionTransition builds the follow-up transition after a revision batch
// upload: back to whichever office sent the application out.
func (e *WorkflowEngine) RevisionTransition(app *models.Application, actorID string) TransitionRequest {
	return TransitionRequest{
		Status:    ReviewStateFor(app.RejectedByRole),
		ActorID:   actorID,
		ActorRole: RoleSystem,
		Comments:  "Revised documents submitted, returned for review",
	}
}

// mergeAssessment shallow-merges the payload's admin sections (box5/box6 and
// friends) over the stored assessment document.
func mergeAssessment(current datatypes.JSON, patch map[string]json.RawMessage) (datatypes.JSON, error) {
	existing := map[string]json.RawMessage{}
	if len(current) > 0 {
		if err := json.Unmarshal(current, &existing); err != nil {
			return nil, err
		}
	}
	for key, value := range patch {
		existing[key] = value
	}
	out, err := json.Marshal(existing)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(out), nil
}
