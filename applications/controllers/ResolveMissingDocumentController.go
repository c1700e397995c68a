package controllers

import (
	"permit-processing-backend/applications/requests"
	"permit-processing-backend/applications/services"
	"permit-processing-backend/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ResolveMissingDocumentController marks one outstanding document as
// provided. When the list empties the application auto-advances back to the
// rejecting office's pending state in the same transaction.
func (ac *ApplicationController) ResolveMissingDocumentController(c *fiber.Ctx) error {
	var request requests.ResolveMissingDocumentRequest
	applicationID := c.Params("id")

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request payload",
			"error":   err.Error(),
		})
	}
	if request.Item == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Document item is required",
		})
	}

	payload, ok := actorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"success": false,
			"message": "User not authenticated",
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

	followUp, err := ac.Engine.ResolveMissingDocument(app, request.Item, payload.Email)
	if err != nil {
		tx.Rollback()
		return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
			"success": false,
			"message": "Failed to resolve missing document",
			"error":   err.Error(),
		})
	}

	if followUp != nil {
		result, err := ac.Engine.Apply(tx, app, *followUp)
		if err != nil {
			tx.Rollback()
			return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
				"success": false,
				"message": "Failed to advance application after resolution",
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
		ac.notifyStatusChange(app, result.Entry.Comments)
	} else {
		// Still more documents outstanding: persist the shrunk list only.
		if err := tx.Omit("Applicant", "BuildingPermit", "FeeItems", "Documents", "History").Save(app).Error; err != nil {
			tx.Rollback()
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Failed to persist resolution",
				"error":   err.Error(),
			})
		}
		if err := tx.Commit().Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"success": false,
				"message": "Internal server error: Could not commit database transaction",
			})
		}
	}

	config.Logger.Info("Missing document resolved",
		zap.String("reference_no", app.ReferenceNo),
		zap.String("item", request.Item),
		zap.Int("remaining", len(app.MissingDocuments)),
		zap.String("status", string(app.Status)),
	)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Missing document resolved",
		"data":    app,
	})
}
