package controllers

import (
	"time"

	"permit-processing-backend/config"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

func (lc *LoginController) LogoutUser(c *fiber.Ctx) error {
	refreshToken := c.Cookies("refresh_token")
	if refreshToken != "" {
		if err := lc.RedisClient.Del(lc.Ctx, "refresh_token:"+refreshToken).Err(); err != nil {
			config.Logger.Error("Failed to delete refresh token from Redis during logout", zap.Error(err))
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})
	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})

	config.Logger.Info("User logged out successfully",
		zap.String("client_ip", c.IP()),
	)

	return c.JSON(fiber.Map{
		"message": "Logged out successfully",
		"data":    nil,
		"error":   nil,
	})
}
