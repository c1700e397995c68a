package controllers

import (
	"errors"
	"time"

	"permit-processing-backend/applications/requests"
	"permit-processing-backend/applications/services"
	"permit-processing-backend/config"
	"permit-processing-backend/db/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// CreateBuildingApplicationController handles a citizen's Building Permit
// submission. The reference number is allocated inside the repository's
// transaction so concurrent submissions never share one.
func (ac *ApplicationController) CreateBuildingApplicationController(c *fiber.Ctx) error {
	var request requests.CreateBuildingApplicationRequest
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

	app := &models.Application{
		ApplicationType: models.BuildingApplication,
		Status:          models.StatusSubmitted,
		ApplicantID:     payload.UserID,
		FormData:        datatypes.JSON(request.FormData),
		SubmissionDate:  time.Now(),
		CreatedBy:       payload.Email,
	}

	created, err := ac.ApplicationRepo.Create(app)
	if err != nil {
		config.Logger.Error("Failed to create building application",
			zap.String("applicant_id", payload.UserID.String()),
			zap.Error(err),
		)
		return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create application",
			"error":   err.Error(),
		})
	}

	config.Logger.Info("Building application created",
		zap.String("reference_no", created.ReferenceNo),
		zap.String("applicant_id", payload.UserID.String()),
	)

	if ac.IndexingService != nil {
		loaded, loadErr := ac.ApplicationRepo.GetByID(created.ID.String())
		if loadErr == nil {
			ac.IndexingService.IndexApplication(loaded)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Application submitted successfully",
		"data":    created,
	})
}

// CreateOccupancyApplicationController handles an Occupancy Permit
// submission. The declared building permit must resolve to an existing
// Building Application or creation fails with 404 and no record is written.
func (ac *ApplicationController) CreateOccupancyApplicationController(c *fiber.Ctx) error {
	var request requests.CreateOccupancyApplicationRequest
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

	buildingApp, err := ac.ApplicationRepo.ResolveBuildingPermit(request.BuildingPermitIdentifier)
	if err != nil {
		status := services.HTTPStatus(err)
		if errors.Is(err, services.ErrNotFound) {
			config.Logger.Warn("Occupancy application referenced unknown building permit",
				zap.String("identifier", request.BuildingPermitIdentifier),
			)
		}
		return c.Status(status).JSON(fiber.Map{
			"success": false,
			"message": "Could not resolve the referenced building permit",
			"error":   err.Error(),
		})
	}

	buildingID := buildingApp.ID
	app := &models.Application{
		ApplicationType:  models.OccupancyApplication,
		Status:           models.StatusSubmitted,
		ApplicantID:      payload.UserID,
		FormData:         datatypes.JSON(request.FormData),
		BuildingPermitID: &buildingID,
		SubmissionDate:   time.Now(),
		CreatedBy:        payload.Email,
	}

	created, err := ac.ApplicationRepo.Create(app)
	if err != nil {
		config.Logger.Error("Failed to create occupancy application",
			zap.String("applicant_id", payload.UserID.String()),
			zap.Error(err),
		)
		return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
			"success": false,
			"message": "Failed to create application",
			"error":   err.Error(),
		})
	}

	config.Logger.Info("Occupancy application created",
		zap.String("reference_no", created.ReferenceNo),
		zap.String("building_reference_no", buildingApp.ReferenceNo),
	)

	if ac.IndexingService != nil {
		loaded, loadErr := ac.ApplicationRepo.GetByID(created.ID.String())
		if loadErr == nil {
			ac.IndexingService.IndexApplication(loaded)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Application submitted successfully",
		"data":    created,
	})
}
