package controllers

import (
	"permit-processing-backend/applications/services"
	"permit-processing-backend/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UploadDocumentController attaches one named requirement document.
// Re-uploading under an existing name replaces the stored file in place;
// a new name appends. Document uploads never change workflow status.
func (ac *ApplicationController) UploadDocumentController(c *fiber.Ctx) error {
	applicationID := c.Params("id")
	name := c.FormValue("name")

	payload, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not authenticated",
		})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "A file is required under the 'file' field",
		})
	}

	tx := ac.DB.Begin()
	if tx.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Internal server error: Could not start database transaction",
		})
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	app, err := ac.ApplicationRepo.GetByIDTx(tx, applicationID)
	if err != nil {
		tx.Rollback()
		return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
			"success": false,
			"message": "Failed to load application",
			"error":   err.Error(),
		})
	}

	if !payload.Role.IsAdmin() && app.ApplicantID != payload.UserID {
		tx.Rollback()
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "You are not permitted to modify this application",
		})
	}

	if err := ac.DocumentService.AttachUpload(app, fileHeader, name, payload.Email); err != nil {
		tx.Rollback()
		config.Logger.Error("Failed to attach document",
			zap.String("applicationID", applicationID),
			zap.String("name", name),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to store document",
			"error":   err.Error(),
		})
	}

	if err := ac.ApplicationRepo.SaveDocuments(tx, app); err != nil {
		tx.Rollback()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to persist document",
			"error":   err.Error(),
		})
	}

	if err := tx.Commit().Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Internal server error: Could not commit database transaction",
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Document uploaded successfully",
		"data":    app.Documents,
	})
}
