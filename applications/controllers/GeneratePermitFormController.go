package controllers

import (
	"fmt"

	"permit-processing-backend/applications/services"
	"permit-processing-backend/config"
	"permit-processing-backend/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// GeneratePermitFormController renders the issued permit as a printable PDF
// certificate. Only available once a permit number has been assigned.
func (ac *ApplicationController) GeneratePermitFormController(c *fiber.Ctx) error {
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

	if app.PermitNumber == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "No permit has been issued for this application",
		})
	}

	issuedBy := payload.Email
	if app.PermitIssuedBy != nil {
		issuedBy = *app.PermitIssuedBy
	}

	filename := fmt.Sprintf("permit-%s.pdf", *app.PermitNumber)
	pdfPath, err := utils.GeneratePermitForm(*app, issuedBy, filename)
	if err != nil {
		config.Logger.Error("Failed to generate permit form",
			zap.String("reference_no", app.ReferenceNo),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to generate permit form",
			"error":   err.Error(),
		})
	}

	return c.Download("./"+pdfPath, filename)
}
