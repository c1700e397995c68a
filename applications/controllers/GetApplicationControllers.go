package controllers

import (
	"permit-processing-backend/applications/services"
	"permit-processing-backend/db/models"
	"permit-processing-backend/token"
	"permit-processing-backend/utils/pagination"

	"github.com/gofiber/fiber/v2"
)

// GetApplicationByIdController returns the full aggregate: form sections,
// documents, fee ledger, payment state and workflow history. Applicants can
// only read their own applications.
func (ac *ApplicationController) GetApplicationByIdController(c *fiber.Ctx) error {
	applicationID := c.Params("id")

	payload, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not authenticated",
		})
	}

	app, err := ac.ApplicationRepo.GetByID(applicationID)
	if err != nil {
		return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load application",
			"error":   err.Error(),
		})
	}

	if !canReadApplication(payload, app) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "You are not permitted to view this application",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    app,
	})
}

// GetApplicationHistoryController returns the append-only workflow log.
func (ac *ApplicationController) GetApplicationHistoryController(c *fiber.Ctx) error {
	applicationID := c.Params("id")

	payload, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not authenticated",
		})
	}

	app, err := ac.ApplicationRepo.GetByID(applicationID)
	if err != nil {
		return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load application",
			"error":   err.Error(),
		})
	}

	if !canReadApplication(payload, app) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "You are not permitted to view this application",
		})
	}

	entries, err := ac.ApplicationRepo.GetHistory(applicationID)
	if err != nil {
		return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load workflow history",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    entries,
	})
}

// GetFilteredApplicationsController lists applications with pagination and
// the standard filter set. Applicants are always scoped to their own records.
func (ac *ApplicationController) GetFilteredApplicationsController(c *fiber.Ctx) error {
	payload, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not authenticated",
		})
	}

	params := pagination.ParsePaginationParams(c)
	if err := pagination.ValidatePaginationParams(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	if !payload.Role.IsAdmin() {
		params.Filters["applicant_id"] = payload.UserID.String()
	}

	offset := (params.Page - 1) * params.PageSize
	apps, total, err := ac.ApplicationRepo.GetFilteredApplications(params.PageSize, offset, params.Filters)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to list applications",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    pagination.NewPaginatedResponse(c, apps, total, params),
	})
}

func canReadApplication(payload *token.Payload, app *models.Application) bool {
	if payload.Role.IsAdmin() {
		return true
	}
	return app.ApplicantID == payload.UserID
}
