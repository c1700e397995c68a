package controllers

import (
	"permit-processing-backend/config"
	"permit-processing-backend/users/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ValidateTOTP completes an authenticator-app login and issues session
// cookies. The pre-token from the password step guards against code replay
// outside a live login attempt.
func (lc *LoginController) ValidateTOTP(c *fiber.Ctx) error {
	type ValidateTOTPRequest struct {
		UserId   string `json:"user_id"`
		TOTPCode string `json:"totp_code"`
		PreToken string `json:"pre_token"`
	}

	var req ValidateTOTPRequest
	if err := c.BodyParser(&req); err != nil {
		config.Logger.Error("Error parsing TOTP validation request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request",
			"data":    nil,
			"error":   "Invalid request format.",
		})
	}

	otpService := services.NewOtpService(lc.RedisClient, lc.Ctx)

	if !otpService.ValidateTOTPCode(req.UserId, req.TOTPCode) {
		config.Logger.Warn("TOTP validation failed", zap.String("user_id", req.UserId))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "TOTP validation failed",
			"data":    nil,
			"error":   "Invalid TOTP code.",
		})
	}

	// The login step stored an OTP under this key purely as a pre-token
	// anchor; clear it now that the factor is satisfied.
	otpService.InvalidateOtp("login_otp:" + req.UserId)

	user, err := lc.UserRepo.GetUserByID(req.UserId)
	if err != nil {
		config.Logger.Error("Error fetching user by ID during TOTP validation",
			zap.String("user_id", req.UserId),
			zap.Error(err),
		)
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication failed",
			"data":    nil,
			"error":   "Invalid user or session.",
		})
	}

	if err := lc.issueSession(c, user); err != nil {
		config.Logger.Error("Error issuing session",
			zap.String("user_id", user.ID.String()),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Something went wrong",
			"data":    nil,
			"error":   "An internal server error occurred during token generation.",
		})
	}

	return c.JSON(fiber.Map{
		"message": "TOTP validated successfully",
		"data": fiber.Map{
			"user": user,
		},
		"error": nil,
	})
}
