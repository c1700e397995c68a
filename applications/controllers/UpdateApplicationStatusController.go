package controllers

import (
	"permit-processing-backend/applications/requests"
	"permit-processing-backend/applications/services"
	"permit-processing-backend/config"
	"permit-processing-backend/db/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// UpdateApplicationStatusController applies one workflow transition. The
// status write, its side effects (rejection bookkeeping, fee publication,
// permit issuance) and the history append commit as a single transaction;
// notifications go out only after the commit.
func (ac *ApplicationController) UpdateApplicationStatusController(c *fiber.Ctx) error {
	var request requests.UpdateStatusRequest
	applicationID := c.Params("id")

	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request payload",
			"error":   err.Error(),
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
		config.Logger.Error("Failed to begin transaction for status update",
			zap.Error(tx.Error),
			zap.String("applicationID", applicationID),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Internal server error: Could not start database transaction",
		})
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			config.Logger.Error("Panic during status update, rolling back",
				zap.Any("panic_reason", r),
				zap.String("applicationID", applicationID),
			)
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

	transition := services.TransitionRequest{
		Status:            models.ApplicationStatus(request.Status),
		ActorID:           payload.Email,
		ActorRole:         payload.Role,
		Comments:          request.Comments,
		MissingDocuments:  request.MissingDocuments,
		RejectionOverride: request.RejectionDetails,
		Assessment:        request.Assessment,
		FeeItems:          request.FeeItems,
	}

	result, err := ac.Engine.Apply(tx, app, transition)
	if err != nil {
		tx.Rollback()
		config.Logger.Warn("Status transition refused",
			zap.String("applicationID", applicationID),
			zap.String("requested_status", request.Status),
			zap.String("actor_role", string(payload.Role)),
			zap.Error(err),
		)
		return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
			"success": false,
			"message": "Failed to update application status",
			"error":   err.Error(),
		})
	}

	if err := ac.ApplicationRepo.SaveTransition(tx, app, result); err != nil {
		tx.Rollback()
		config.Logger.Error("Failed to persist status transition",
			zap.String("applicationID", applicationID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to persist status update",
			"error":   err.Error(),
		})
	}

	if err := tx.Commit().Error; err != nil {
		config.Logger.Error("Failed to commit status transition",
			zap.String("applicationID", applicationID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Internal server error: Could not commit database transaction",
		})
	}

	config.Logger.Info("Application status updated",
		zap.String("reference_no", app.ReferenceNo),
		zap.String("status", string(app.Status)),
		zap.String("updated_by", payload.Email),
		zap.Bool("permit_generated", result.PermitGenerated),
	)

	ac.notifyStatusChange(app, result.Entry.Comments)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Application status updated successfully",
		"data":    app,
	})
}
