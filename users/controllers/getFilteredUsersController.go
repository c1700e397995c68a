package controllers

import (
	"permit-processing-backend/utils/pagination"

	"github.com/gofiber/fiber/v2"
)

func (uc *UserController) GetFilteredUsersController(c *fiber.Ctx) error {
	params := pagination.ParsePaginationParams(c)
	if err := pagination.ValidatePaginationParams(params); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": err.Error(),
		})
	}

	offset := (params.Page - 1) * params.PageSize
	users, total, err := uc.UserRepo.GetFilteredUsers(params.PageSize, offset, params.Filters)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"message": "Failed to list users",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"data":    pagination.NewPaginatedResponse(c, users, total, params),
	})
}
