package controllers

import (
	"context"
	"time"

	"permit-processing-backend/config"
	"permit-processing-backend/db/models"
	"permit-processing-backend/token"
	"permit-processing-backend/users/repositories"
	"permit-processing-backend/users/services"
	"permit-processing-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type LoginController struct {
	UserRepo    repositories.UserRepository
	PasetoMaker token.Maker
	Ctx         context.Context
	RedisClient *redis.Client
}

// LoginUser checks credentials and starts the second authentication factor:
// TOTP when the user has enrolled an authenticator, email OTP otherwise.
func (lc *LoginController) LoginUser(c *fiber.Ctx) error {
	type LoginRequest struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		config.Logger.Error("Error parsing login request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request",
			"data":    nil,
			"error":   "Invalid request format.",
		})
	}

	user, err := lc.UserRepo.GetUserByEmail(req.Email)
	if err != nil || !repositories.CheckPasswordHash(req.Password, user.PasswordHash) {
		if err != nil {
			config.Logger.Warn("Login attempt: user not found or database error",
				zap.String("email", req.Email),
				zap.Error(err),
			)
		} else {
			config.Logger.Warn("Login attempt: invalid password",
				zap.String("email", req.Email),
			)
		}
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication failed",
			"data":    nil,
			"error":   "Invalid email or password.",
		})
	}

	if !user.IsActive {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"message": "Account disabled",
			"data":    nil,
			"error":   "This account has been deactivated.",
		})
	}

	otpService := services.NewOtpService(lc.RedisClient, lc.Ctx)

	if otpService.IsTOTPEnabled(user.ID.String()) {
		_, preToken := otpService.GenerateOtp("login_otp:" + user.ID.String())

		return c.JSON(fiber.Map{
			"message": "TOTP verification required",
			"data": fiber.Map{
				"requires_totp": true,
				"user_id":       user.ID.String(),
				"pre_token":     preToken,
			},
			"error": nil,
		})
	}

	otp, preToken := otpService.GenerateOtp("login_otp:" + user.ID.String())

	message := "Here is your OTP: " + otp
	title := "Authentication OTP"
	utils.SendEmail(user.Email, message, title, "")

	return c.JSON(fiber.Map{
		"message": "OTP sent successfully",
		"data": fiber.Map{
			"requires_totp": false,
			"pre_token":     preToken,
			"user_id":       user.ID.String(),
		},
		"error": nil,
	})
}

// issueSession writes access and refresh cookies for the authenticated user
// and registers the refresh token in Redis.
func (lc *LoginController) issueSession(c *fiber.Ctx, user *models.User) error {
	accessToken, err := lc.PasetoMaker.CreateToken(user.ID, user.Email, user.Role, 15*time.Minute)
	if err != nil {
		return err
	}

	refreshToken, err := lc.PasetoMaker.CreateToken(user.ID, user.Email, user.Role, 7*24*time.Hour)
	if err != nil {
		return err
	}

	if err := lc.RedisClient.Set(lc.Ctx, "refresh_token:"+refreshToken, user.ID.String(), 7*24*time.Hour).Err(); err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    accessToken,
		Expires:  time.Now().Add(15 * time.Minute),
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Expires:  time.Now().Add(7 * 24 * time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})

	return nil
}

// SetupTOTP starts authenticator enrollment for a user.
func (lc *LoginController) SetupTOTP(c *fiber.Ctx) error {
	type SetupRequest struct {
		UserID string `json:"user_id"`
	}

	var req SetupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request",
			"data":    nil,
			"error":   "Invalid request format.",
		})
	}

	user, err := lc.UserRepo.GetUserByID(req.UserID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "User not found",
			"data":    nil,
			"error":   "User does not exist.",
		})
	}

	otpService := services.NewOtpService(lc.RedisClient, lc.Ctx)

	if otpService.IsTOTPEnabled(user.ID.String()) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "TOTP already enabled",
			"data":    nil,
			"error":   "TOTP is already set up for this user.",
		})
	}

	setup, err := otpService.GenerateTOTPSecret(user.ID.String(), user.Email)
	if err != nil {
		config.Logger.Error("Failed to generate TOTP secret", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Setup failed",
			"data":    nil,
			"error":   "Failed to generate TOTP secret.",
		})
	}

	return c.JSON(fiber.Map{
		"message": "TOTP setup initiated",
		"data": fiber.Map{
			"qr_code_url":  setup.QRCodeURL,
			"manual_key":   setup.ManualKey,
			"instructions": "Scan the QR code with your authenticator app or manually enter the key. Then verify with a code to complete setup.",
		},
		"error": nil,
	})
}

// EnableTOTP finishes enrollment once the user proves a working code.
func (lc *LoginController) EnableTOTP(c *fiber.Ctx) error {
	type EnableRequest struct {
		UserID   string `json:"user_id"`
		TOTPCode string `json:"totp_code"`
	}

	var req EnableRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request",
			"data":    nil,
			"error":   "Invalid request format.",
		})
	}

	otpService := services.NewOtpService(lc.RedisClient, lc.Ctx)

	if err := otpService.EnableTOTP(req.UserID, req.TOTPCode); err != nil {
		config.Logger.Error("Failed to enable TOTP", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Enable failed",
			"data":    nil,
			"error":   "Invalid code or setup not found.",
		})
	}

	if user, err := lc.UserRepo.GetUserByID(req.UserID); err == nil {
		user.TOTPEnabled = true
		lc.UserRepo.UpdateUser(user)
	}

	return c.JSON(fiber.Map{
		"message": "TOTP enabled successfully",
		"data": fiber.Map{
			"enabled": true,
		},
		"error": nil,
	})
}

// DisableTOTP removes the authenticator requirement. Requires the password.
func (lc *LoginController) DisableTOTP(c *fiber.Ctx) error {
	type DisableRequest struct {
		UserID   string `json:"user_id"`
		Password string `json:"password"`
	}

	var req DisableRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request",
			"data":    nil,
			"error":   "Invalid request format.",
		})
	}

	user, err := lc.UserRepo.GetUserByID(req.UserID)
	if err != nil || !repositories.CheckPasswordHash(req.Password, user.PasswordHash) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"message": "Authentication failed",
			"data":    nil,
			"error":   "Invalid password.",
		})
	}

	otpService := services.NewOtpService(lc.RedisClient, lc.Ctx)

	if err := otpService.DisableTOTP(req.UserID); err != nil {
		config.Logger.Error("Failed to disable TOTP", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"message": "Disable failed",
			"data":    nil,
			"error":   "Failed to disable TOTP.",
		})
	}

	user.TOTPEnabled = false
	lc.UserRepo.UpdateUser(user)

	return c.JSON(fiber.Map{
		"message": "TOTP disabled successfully",
		"data": fiber.Map{
			"enabled": false,
		},
		"error": nil,
	})
}
