package controllers

import (
	"time"

	"permit-processing-backend/applications/requests"
	"permit-processing-backend/applications/services"
	"permit-processing-backend/config"
	"permit-processing-backend/db/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SubmitPaymentController records the applicant's payment: method, reference,
// amount and proof blob. It is the one applicant action that moves workflow
// status (Payment Pending -> Payment Submitted), executed as a system
// transition so the role table stays admin-only.
func (ac *ApplicationController) SubmitPaymentController(c *fiber.Ctx) error {
	var request requests.SubmitPaymentRequest
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

	proof, err := c.FormFile("proof")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Payment proof file is required under the 'proof' field",
		})
	}

	amountPaid, err := decimal.NewFromString(request.AmountPaid)
	if err != nil || amountPaid.IsNegative() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "A valid non-negative amount_paid is required",
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
			"message": "Only the owning applicant may submit payment",
		})
	}

	proofPath, err := ac.DocumentService.StorePaymentProof(proof)
	if err != nil {
		tx.Rollback()
		config.Logger.Error("Failed to store payment proof",
			zap.String("applicationID", applicationID),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to store payment proof",
			"error":   err.Error(),
		})
	}

	now := time.Now()
	proofName := proof.Filename
	proofMime := proof.Header.Get("Content-Type")
	app.PaymentMethod = &request.Method
	app.PaymentReference = &request.Reference
	app.PaymentProofPath = &proofPath
	app.PaymentProofName = &proofName
	app.PaymentProofMime = &proofMime
	app.PaymentDate = &now
	app.AmountPaid = &amountPaid
	app.PaymentStatus = models.PaymentSubmitted

	transition := services.TransitionRequest{
		Status:    models.StatusPaymentSubmitted,
		ActorID:   payload.Email,
		ActorRole: services.RoleSystem,
		Comments:  "Payment submitted by applicant",
	}

	result, err := ac.Engine.Apply(tx, app, transition)
	if err != nil {
		tx.Rollback()
		return c.Status(services.HTTPStatus(err)).JSON(fiber.Map{
			"success": false,
			"message": "Payment cannot be submitted in the current status",
			"error":   err.Error(),
		})
	}

	if err := ac.ApplicationRepo.SaveTransition(tx, app, result); err != nil {
		tx.Rollback()
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to persist payment",
			"error":   err.Error(),
		})
	}

	if err := tx.Commit().Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Internal server error: Could not commit database transaction",
		})
	}

	config.Logger.Info("Payment submitted",
		zap.String("reference_no", app.ReferenceNo),
		zap.String("amount_paid", amountPaid.String()),
	)

	ac.notifyStatusChange(app, result.Entry.Comments)

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "Payment submitted successfully",
		"data":    app,
	})
}
