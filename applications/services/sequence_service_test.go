package services

import (
	"testing"
	"time"

	"permit-processing-backend/db/models"

	"github.com/stretchr/testify/assert"
)

func TestTypePrefix(t *testing.T) {
	assert.Equal(t, "B", TypePrefix(models.BuildingApplication))
	assert.Equal(t, "O", TypePrefix(models.OccupancyApplication))
}

func TestFormatReferenceNumber(t *testing.T) {
	march := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "B-2503000001", FormatReferenceNumber(models.BuildingApplication, march, 1))
	assert.Equal(t, "O-2503000042", FormatReferenceNumber(models.OccupancyApplication, march, 42))

	december := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "B-2612999999", FormatReferenceNumber(models.BuildingApplication, december, 999999))
}

func TestFormatPermitNumber(t *testing.T) {
	july := time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "2507000001", FormatPermitNumber(july, 1))
	assert.Equal(t, "2507000317", FormatPermitNumber(july, 317))
}

func TestHTTPStatusMapping(t *testing.T) {
	assert.Equal(t, 404, HTTPStatus(ErrNotFound))
	assert.Equal(t, 400, HTTPStatus(ErrInvalidStatus))
	assert.Equal(t, 400, HTTPStatus(ErrInvalidTransition))
	assert.Equal(t, 400, HTTPStatus(ErrValidation))
	assert.Equal(t, 403, HTTPStatus(ErrForbidden))
	assert.Equal(t, 503, HTTPStatus(ErrConflict))
	assert.Equal(t, 500, HTTPStatus(assert.AnError))
}
