package controllers

import (
	"permit-processing-backend/config"
	"permit-processing-backend/users/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// ValidateOtp completes an email OTP login and issues session cookies.
func (lc *LoginController) ValidateOtp(c *fiber.Ctx) error {
	type ValidateOtpRequest struct {
		UserId   string `json:"user_id"`
		Otp      string `json:"otp"`
		PreToken string `json:"pre_token"`
	}

	var req ValidateOtpRequest
	if err := c.BodyParser(&req); err != nil {
		config.Logger.Error("Error parsing OTP validation request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request",
			"data":    nil,
			"error":   "Invalid request format.",
		})
	}

	otpService := services.NewOtpService(lc.RedisClient, lc.Ctx)
	if !otpService.ValidateOtp(req.Otp, req.PreToken, "login_otp:"+req.UserId) {
		config.Logger.Warn("OTP validation failed", zap.String("user_id", req.UserId))
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "OTP validation failed",
			"data":    nil,
			"error":   "Invalid OTP or pre-token.",
		})
	}

	user, err := lc.UserRepo.GetUserByID(req.UserId)
	if err != nil {
		config.Logger.Error("Error fetching user by ID during OTP validation",
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
		"message": "OTP validated successfully",
		"data": fiber.Map{
			"user": user,
		},
		"error": nil,
	})
}
