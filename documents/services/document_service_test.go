package services

import (
	"testing"

	"permit-processing-backend/db/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApplicationWithDocuments() *models.Application {
	appID := uuid.New()
	return &models.Application{
		ID: appID,
		Documents: []models.ApplicationDocument{
			{
				ID:            uuid.New(),
				ApplicationID: appID,
				Name:          "Lot plan",
				FilePath:      "uploads/lot-plan-v1.pdf",
				MimeType:      "application/pdf",
				FileSize:      1024,
				Position:      1,
				UploadedBy:    "applicant@mail.com",
			},
			{
				ID:            uuid.New(),
				ApplicationID: appID,
				Name:          "Barangay clearance",
				FilePath:      "uploads/clearance.pdf",
				MimeType:      "application/pdf",
				FileSize:      2048,
				Position:      2,
				UploadedBy:    "applicant@mail.com",
			},
		},
	}
}

func TestPlaceDocumentReplacesByName(t *testing.T) {
	app := testApplicationWithDocuments()
	originalID := app.Documents[0].ID

	replaced := PlaceDocument(app, models.ApplicationDocument{
		Name:       "Lot plan",
		FilePath:   "uploads/lot-plan-v2.pdf",
		MimeType:   "application/pdf",
		FileSize:   4096,
		UploadedBy: "applicant@mail.com",
	})

	assert.True(t, replaced)
	require.Len(t, app.Documents, 2)
	assert.Equal(t, originalID, app.Documents[0].ID)
	assert.Equal(t, 1, app.Documents[0].Position)
	assert.Equal(t, "uploads/lot-plan-v2.pdf", app.Documents[0].FilePath)
	assert.Equal(t, int64(4096), app.Documents[0].FileSize)
}

func TestPlaceDocumentAppendsNewName(t *testing.T) {
	app := testApplicationWithDocuments()

	replaced := PlaceDocument(app, models.ApplicationDocument{
		Name:       "Structural plans",
		FilePath:   "uploads/structural.pdf",
		MimeType:   "application/pdf",
		FileSize:   8192,
		UploadedBy: "applicant@mail.com",
	})

	assert.False(t, replaced)
	require.Len(t, app.Documents, 3)
	appended := app.Documents[2]
	assert.Equal(t, "Structural plans", appended.Name)
	assert.Equal(t, 3, appended.Position)
	assert.Equal(t, app.ID, appended.ApplicationID)
}

func TestPlaceDocumentAppendsAfterGaps(t *testing.T) {
	app := testApplicationWithDocuments()
	// Simulate an aggregate whose positions are sparse after an older removal.
	app.Documents[1].Position = 7

	PlaceDocument(app, models.ApplicationDocument{
		Name:     "Site photos",
		FilePath: "uploads/photos.zip",
	})

	require.Len(t, app.Documents, 3)
	assert.Equal(t, 8, app.Documents[2].Position)
}

func TestPlaceDocumentOnEmptyAggregate(t *testing.T) {
	app := &models.Application{ID: uuid.New()}

	replaced := PlaceDocument(app, models.ApplicationDocument{
		Name:     "Lot plan",
		FilePath: "uploads/lot-plan.pdf",
	})

	assert.False(t, replaced)
	require.Len(t, app.Documents, 1)
	assert.Equal(t, 1, app.Documents[0].Position)
}
