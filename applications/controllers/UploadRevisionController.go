package controllers

import (
	"permit-processing-backend/applications/services"
	"permit-processing-backend/config"
	"permit-processing-backend/db/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UploadRevisionController accepts a batch of corrected documents from the
// applicant. Each file is stored under the revision label, then the
// application routes back to the office that rejected it (recorded on the
// rejection itself, not guessed from comment text).
func (ac *ApplicationController) UploadRevisionController(c *fiber.Ctx) error {
	applicationID := c.Params("id")

	payload, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not authenticated",
		})
	}

	form, err := c.MultipartForm()
	if err != nil || len(form.File["files"]) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "At least one file is required under the 'files' field",
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

	if app.ApplicantID != payload.UserID {
		tx.Rollback()
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"success": false,
			"message": "Only the owning applicant may upload revisions",
		})
	}

	if app.Status != models.StatusRejected && app.Status != models.StatusForCorrection {
		tx.Rollback()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Revisions can only be uploaded while the application is returned for correction",
		})
	}

	if err := ac.DocumentService.AttachRevisionBatch(app, form.File["files"], payload.Email); err != nil {
		tx.Rollback()
		config.Logger.Error("Failed to store revision batch",
			zap.String("applicationID", applicationID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to store uploaded files",
			"error":   err.Error(),
		})
	}

	if err := ac.ApplicationRepo.SaveDocuments(tx, app); err != nil {
		tx.Rollback()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to persist uploaded documents",
			"error":   err.Error(),
		})
	}

	transition := ac.Engine.RevisionTransition(app, payload.Email)
	result, err := ac.Engine.Apply(tx, app, transition)
	if err != nil {
		tx.Rollback()
		return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
			"success": false,
			"message": "Failed to route application back for review",
			"error":   err.Error(),
		})
	}

	if err := ac.ApplicationRepo.SaveTransition(tx, app, result); err != nil {
		tx.Rollback()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to persist status update",
			"error":   err.Error(),
		})
	}

	if err := tx.Commit().Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Internal server error: Could not commit database transaction",
		})
	}

	config.Logger.Info("Revision batch uploaded",
		zap.String("reference_no", app.ReferenceNo),
		zap.Int("files", len(form.File["files"])),
		zap.String("routed_to", string(app.Status)),
	)

	ac.notifyStatusChange(app, result.Entry.Comments)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Revision uploaded successfully",
		"data":    app,
	})
}
