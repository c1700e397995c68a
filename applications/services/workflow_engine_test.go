package services

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"permit-processing-backend/db/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// fakeSequenceIssuer hands out deterministic numbers without a database.
type fakeSequenceIssuer struct {
	refSeq    int64
	permitSeq int64
}

func (f *fakeSequenceIssuer) NextReferenceNumber(tx *gorm.DB, appType models.ApplicationType, at time.Time) (string, error) {
	f.refSeq++
	return FormatReferenceNumber(appType, at, f.refSeq), nil
}

func (f *fakeSequenceIssuer) NextPermitNumber(tx *gorm.DB, at time.Time) (string, error) {
	f.permitSeq++
	return FormatPermitNumber(at, f.permitSeq), nil
}

func newTestEngine(at time.Time) (*WorkflowEngine, *fakeSequenceIssuer) {
	issuer := &fakeSequenceIssuer{}
	engine := NewWorkflowEngine(issuer)
	engine.now = func() time.Time { return at }
	return engine, issuer
}

func newTestApplication(status models.ApplicationStatus) *models.Application {
	return &models.Application{
		ID:          uuid.New(),
		ReferenceNo: "B-2503000001",
		Status:      status,
		ApplicantID: uuid.New(),
	}
}

func TestApplyRejectsUnknownStatus(t *testing.T) {
	engine, _ := newTestEngine(time.Now())
	app := newTestApplication(models.StatusSubmitted)

	_, err := engine.Apply(nil, app, TransitionRequest{
		Status:    "Cancelled",
		ActorID:   "meo@town.gov",
		ActorRole: models.RoleMEOAdmin,
	})

	require.ErrorIs(t, err, ErrInvalidStatus)
	assert.Equal(t, models.StatusSubmitted, app.Status)
}

func TestApplyEnforcesRoleGating(t *testing.T) {
	cases := []struct {
		name   string
		from   models.ApplicationStatus
		to     models.ApplicationStatus
		role   models.UserRole
	}{
		{"bfp cannot approve", models.StatusPendingMEO, models.StatusApproved, models.RoleBFPAdmin},
		{"mayor cannot publish fees", models.StatusPendingMEO, models.StatusPaymentPending, models.RoleMayorAdmin},
		{"bfp cannot issue permits", models.StatusApproved, models.StatusPermitIssued, models.RoleBFPAdmin},
		{"applicant cannot change status", models.StatusSubmitted, models.StatusPendingMEO, models.RoleApplicant},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, _ := newTestEngine(time.Now())
			app := newTestApplication(tc.from)

			_, err := engine.Apply(nil, app, TransitionRequest{
				Status:    tc.to,
				ActorID:   "actor@town.gov",
				ActorRole: tc.role,
			})

			require.ErrorIs(t, err, ErrForbidden)
			assert.Equal(t, tc.from, app.Status)
		})
	}
}

func TestApplyRejectsInvalidTransitions(t *testing.T) {
	cases := []struct {
		from models.ApplicationStatus
		to   models.ApplicationStatus
		role models.UserRole
	}{
		{models.StatusSubmitted, models.StatusApproved, models.RoleMEOAdmin},
		{models.StatusSubmitted, models.StatusPermitIssued, models.RoleMEOAdmin},
		{models.StatusPendingBFP, models.StatusPaymentPending, models.RoleMEOAdmin},
		{models.StatusApproved, models.StatusRejected, models.RoleMEOAdmin},
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("%s to %s", tc.from, tc.to), func(t *testing.T) {
			engine, _ := newTestEngine(time.Now())
			app := newTestApplication(tc.from)

			_, err := engine.Apply(nil, app, TransitionRequest{
				Status:    tc.to,
				ActorID:   "actor@town.gov",
				ActorRole: tc.role,
			})

			require.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tc.from, app.Status)
		})
	}
}

func TestApplyFullHappyPath(t *testing.T) {
	engine, _ := newTestEngine(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC))
	app := newTestApplication(models.StatusSubmitted)

	steps := []TransitionRequest{
		{Status: models.StatusPendingMEO, ActorID: "meo@town.gov", ActorRole: models.RoleMEOAdmin},
		{
			Status:    models.StatusPaymentPending,
			ActorID:   "meo@town.gov",
			ActorRole: models.RoleMEOAdmin,
			FeeItems: []FeeInput{
				{Particular: "Filing fee", Amount: decimal.NewFromInt(500)},
				{Particular: "Inspection fee", Amount: decimal.NewFromFloat(1250.50)},
			},
		},
		{Status: models.StatusPaymentSubmitted, ActorID: "applicant@mail.com", ActorRole: RoleSystem},
		{Status: models.StatusPendingBFP, ActorID: "meo@town.gov", ActorRole: models.RoleMEOAdmin},
		{Status: models.StatusPendingMayor, ActorID: "bfp@town.gov", ActorRole: models.RoleBFPAdmin},
		{Status: models.StatusPendingMEO, ActorID: "mayor@town.gov", ActorRole: models.RoleMayorAdmin},
		{Status: models.StatusApproved, ActorID: "meo@town.gov", ActorRole: models.RoleMEOAdmin},
		{Status: models.StatusPermitIssued, ActorID: "meo@town.gov", ActorRole: models.RoleMEOAdmin},
	}

	for _, step := range steps {
		result, err := engine.Apply(nil, app, step)
		require.NoError(t, err, "transition to %s", step.Status)
		require.NotNil(t, result.Entry)
		assert.Equal(t, step.Status, result.Entry.Status)
		assert.Equal(t, step.ActorID, result.Entry.UpdatedBy)
		assert.Equal(t, step.Status, app.Status)
	}

	require.NotNil(t, app.PermitNumber)
	assert.Equal(t, "2503000001", *app.PermitNumber)
	assert.Equal(t, "1750.5", app.TotalAmountDue.String())
	assert.Len(t, app.FeeItems, 2)
}

func TestApplyRejectionRecordsOffice(t *testing.T) {
	engine, _ := newTestEngine(time.Now())
	app := newTestApplication(models.StatusPendingBFP)

	result, err := engine.Apply(nil, app, TransitionRequest{
		Status:           models.StatusForCorrection,
		ActorID:          "bfp@town.gov",
		ActorRole:        models.RoleBFPAdmin,
		Comments:         "Fire safety plan is missing the evacuation annex",
		MissingDocuments: []string{"Evacuation annex", "Sprinkler layout"},
	})

	require.NoError(t, err)
	assert.Equal(t, models.StatusForCorrection, app.Status)
	assert.Equal(t, models.RoleBFPAdmin, app.RejectedByRole)
	assert.False(t, app.RejectionResolved)
	assert.Equal(t, "Fire safety plan is missing the evacuation annex", app.RejectionComments)
	assert.Equal(t, []string{"Evacuation annex", "Sprinkler layout"}, []string(app.MissingDocuments))
	assert.Equal(t, "Fire safety plan is missing the evacuation annex", result.Entry.Comments)
}

func TestApplyReentryClearsRejection(t *testing.T) {
	engine, _ := newTestEngine(time.Now())
	app := newTestApplication(models.StatusRejected)
	app.RejectedByRole = models.RoleMEOAdmin
	app.RejectionResolved = false
	app.RejectionComments = "Incomplete lot plan"
	app.MissingDocuments = datatypes.NewJSONSlice([]string{"Lot plan"})

	_, err := engine.Apply(nil, app, TransitionRequest{
		Status:    models.StatusSubmitted,
		ActorID:   "meo@town.gov",
		ActorRole: models.RoleMEOAdmin,
	})

	require.NoError(t, err)
	assert.True(t, app.RejectionResolved)
	assert.Empty(t, app.RejectionComments)
	assert.Empty(t, []string(app.MissingDocuments))
	assert.Equal(t, models.UserRole(""), app.RejectedByRole)
}

func TestApplyRejectionOverrideWins(t *testing.T) {
	engine, _ := newTestEngine(time.Now())
	app := newTestApplication(models.StatusPendingMayor)

	_, err := engine.Apply(nil, app, TransitionRequest{
		Status:    models.StatusRejected,
		ActorID:   "mayor@town.gov",
		ActorRole: models.RoleMayorAdmin,
		Comments:  "ignored by the override",
		RejectionOverride: &RejectionOverride{
			Comments:         "Zoning clearance expired",
			MissingDocuments: []string{"Updated zoning clearance"},
			IsResolved:       false,
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "Zoning clearance expired", app.RejectionComments)
	assert.Equal(t, []string{"Updated zoning clearance"}, []string(app.MissingDocuments))
	assert.Equal(t, models.RoleMayorAdmin, app.RejectedByRole)
}

func TestApplyPaymentPendingRequiresFees(t *testing.T) {
	engine, _ := newTestEngine(time.Now())
	app := newTestApplication(models.StatusPendingMEO)

	_, err := engine.Apply(nil, app, TransitionRequest{
		Status:    models.StatusPaymentPending,
		ActorID:   "meo@town.gov",
		ActorRole: models.RoleMEOAdmin,
	})

	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, models.StatusPendingMEO, app.Status)
}

func TestApplyPaymentPendingReplacesLedger(t *testing.T) {
	engine, _ := newTestEngine(time.Now())
	app := newTestApplication(models.StatusPendingMEO)
	app.FeeItems = []models.FeeLineItem{
		{ApplicationID: app.ID, Position: 1, Particular: "Old fee", Amount: decimal.NewFromInt(999)},
	}
	app.TotalAmountDue = decimal.NewFromInt(999)

	result, err := engine.Apply(nil, app, TransitionRequest{
		Status:    models.StatusPaymentPending,
		ActorID:   "meo@town.gov",
		ActorRole: models.RoleMEOAdmin,
		FeeItems: []FeeInput{
			{Particular: "Filing fee", Amount: decimal.NewFromInt(300)},
		},
	})

	require.NoError(t, err)
	assert.True(t, result.FeesReplaced)
	require.Len(t, app.FeeItems, 1)
	assert.Equal(t, "Filing fee", app.FeeItems[0].Particular)
	assert.Equal(t, "300", app.TotalAmountDue.String())
}

func TestApplyPaymentPendingKeepsExistingLedger(t *testing.T) {
	engine, _ := newTestEngine(time.Now())
	app := newTestApplication(models.StatusRejected)
	app.RejectedByRole = models.RoleMEOAdmin
	app.FeeItems = []models.FeeLineItem{
		{ApplicationID: app.ID, Position: 1, Particular: "Filing fee", Amount: decimal.NewFromInt(300)},
	}
	app.TotalAmountDue = decimal.NewFromInt(300)

	result, err := engine.Apply(nil, app, TransitionRequest{
		Status:    models.StatusPaymentPending,
		ActorID:   "meo@town.gov",
		ActorRole: models.RoleMEOAdmin,
	})

	require.NoError(t, err)
	assert.False(t, result.FeesReplaced)
	assert.Equal(t, "300", app.TotalAmountDue.String())
}

func TestApplyPermitNumberIsWriteOnce(t *testing.T) {
	at := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	engine, issuer := newTestEngine(at)
	app := newTestApplication(models.StatusApproved)

	first, err := engine.Apply(nil, app, TransitionRequest{
		Status:    models.StatusPermitIssued,
		ActorID:   "mayor@town.gov",
		ActorRole: models.RoleMayorAdmin,
	})
	require.NoError(t, err)
	assert.True(t, first.PermitGenerated)
	require.NotNil(t, app.PermitNumber)
	assert.Equal(t, "2507000001", *app.PermitNumber)
	require.NotNil(t, app.PermitIssuedBy)
	assert.Equal(t, "mayor@town.gov", *app.PermitIssuedBy)

	// A duplicate issue request is idempotent: no new number, but the
	// history entry is still produced.
	second, err := engine.Apply(nil, app, TransitionRequest{
		Status:    models.StatusPermitIssued,
		ActorID:   "meo@town.gov",
		ActorRole: models.RoleMEOAdmin,
	})
	require.NoError(t, err)
	assert.False(t, second.PermitGenerated)
	assert.Equal(t, "2507000001", *app.PermitNumber)
	assert.NotNil(t, second.Entry)
	assert.Equal(t, int64(1), issuer.permitSeq)
}

func TestApplyUsesDefaultComments(t *testing.T) {
	engine, _ := newTestEngine(time.Now())
	app := newTestApplication(models.StatusSubmitted)

	result, err := engine.Apply(nil, app, TransitionRequest{
		Status:    models.StatusPendingMEO,
		ActorID:   "meo@town.gov",
		ActorRole: models.RoleMEOAdmin,
	})

	require.NoError(t, err)
	assert.Equal(t, "Forwarded to the Municipal Engineering Office for review", result.Entry.Comments)
}

func TestApplyMergesAssessmentSections(t *testing.T) {
	engine, _ := newTestEngine(time.Now())
	app := newTestApplication(models.StatusPendingBFP)
	app.AssessmentData = datatypes.JSON(`{"box5":{"zoning":"R-2"}}`)

	_, err := engine.Apply(nil, app, TransitionRequest{
		Status:    models.StatusPendingMayor,
		ActorID:   "bfp@town.gov",
		ActorRole: models.RoleBFPAdmin,
		Assessment: map[string]json.RawMessage{
			"box6": json.RawMessage(`{"fire_clearance":"passed"}`),
		},
	})

	require.NoError(t, err)
	var merged map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(app.AssessmentData, &merged))
	assert.Contains(t, merged, "box5")
	assert.Contains(t, merged, "box6")
}

func TestResolveMissingDocumentAutoAdvances(t *testing.T) {
	engine, _ := newTestEngine(time.Now())
	app := newTestApplication(models.StatusForCorrection)
	app.RejectedByRole = models.RoleBFPAdmin
	app.RejectionResolved = false
	app.MissingDocuments = datatypes.NewJSONSlice([]string{"Evacuation annex", "Sprinkler layout"})

	followUp, err := engine.ResolveMissingDocument(app, "Evacuation annex", "bfp@town.gov")
	require.NoError(t, err)
	assert.Nil(t, followUp)
	assert.Equal(t, []string{"Sprinkler layout"}, []string(app.MissingDocuments))
	assert.False(t, app.RejectionResolved)

	followUp, err = engine.ResolveMissingDocument(app, "Sprinkler layout", "bfp@town.gov")
	require.NoError(t, err)
	require.NotNil(t, followUp)
	assert.Equal(t, models.StatusPendingBFP, followUp.Status)
	assert.Equal(t, RoleSystem, followUp.ActorRole)
	assert.True(t, app.RejectionResolved)

	// The follow-up transition must itself be legal.
	_, err = engine.Apply(nil, app, *followUp)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingBFP, app.Status)
}

func TestResolveMissingDocumentUnknownItem(t *testing.T) {
	engine, _ := newTestEngine(time.Now())
	app := newTestApplication(models.StatusRejected)
	app.MissingDocuments = datatypes.NewJSONSlice([]string{"Lot plan"})

	_, err := engine.ResolveMissingDocument(app, "Site photos", "meo@town.gov")
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, []string{"Lot plan"}, []string(app.MissingDocuments))
}

func TestRevisionTransitionRoutesToRejectingOffice(t *testing.T) {
	engine, _ := newTestEngine(time.Now())

	cases := []struct {
		rejectedBy models.UserRole
		want       models.ApplicationStatus
	}{
		{models.RoleBFPAdmin, models.StatusPendingBFP},
		{models.RoleMayorAdmin, models.StatusPendingMayor},
		{models.RoleMEOAdmin, models.StatusPendingMEO},
		{"", models.StatusPendingMEO},
	}

	for _, tc := range cases {
		app := newTestApplication(models.StatusForCorrection)
		app.RejectedByRole = tc.rejectedBy

		req := engine.RevisionTransition(app, "applicant@mail.com")
		assert.Equal(t, tc.want, req.Status)
		assert.Equal(t, RoleSystem, req.ActorRole)
	}
}
