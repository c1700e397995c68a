package controllers

import (
	"strings"

	"permit-processing-backend/config"
	"permit-processing-backend/db/models"
	"permit-processing-backend/users/repositories"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UserController struct {
	UserRepo repositories.UserRepository
}

type createUserRequest struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

func (r *createUserRequest) validate() []string {
	var errs []string
	if strings.TrimSpace(r.FirstName) == "" {
		errs = append(errs, "first_name is required")
	}
	if strings.TrimSpace(r.LastName) == "" {
		errs = append(errs, "last_name is required")
	}
	if !strings.Contains(r.Email, "@") {
		errs = append(errs, "a valid email is required")
	}
	if len(r.Password) < 8 {
		errs = append(errs, "password must be at least 8 characters")
	}
	return errs
}

// RegisterApplicant is the public sign-up endpoint. The role is always
// applicant regardless of what the request claims.
func (uc *UserController) RegisterApplicant(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request payload",
			"error":   err.Error(),
		})
	}

	if errs := req.validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Validation failed",
			"error":   strings.Join(errs, "; "),
		})
	}

	user := &models.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: req.Password,
		Role:         models.RoleApplicant,
		IsActive:     true,
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = &req.PhoneNumber
	}

	created, err := uc.UserRepo.CreateUser(user)
	if err != nil {
		config.Logger.Warn("Applicant registration failed",
			zap.String("email", user.Email),
			zap.Error(err),
		)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "Registration failed",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Account created successfully",
		"data":    created,
	})
}

// CreateUserController lets an office administrator provision accounts with
// any workflow role, including the reviewing offices.
func (uc *UserController) CreateUserController(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Invalid request payload",
			"error":   err.Error(),
		})
	}

	if errs := req.validate(); len(errs) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Validation failed",
			"error":   strings.Join(errs, "; "),
		})
	}

	role := models.UserRole(req.Role)
	switch role {
	case models.RoleMEOAdmin, models.RoleBFPAdmin, models.RoleMayorAdmin, models.RoleApplicant:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "Validation failed",
			"error":   "role must be one of meoadmin, bfpadmin, mayoradmin, applicant",
		})
	}

	user := &models.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: req.Password,
		Role:         role,
		IsActive:     true,
	}
	if req.PhoneNumber != "" {
		user.PhoneNumber = &req.PhoneNumber
	}

	created, err := uc.UserRepo.CreateUser(user)
	if err != nil {
		config.Logger.Warn("User creation failed",
			zap.String("email", user.Email),
			zap.Error(err),
		)
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": "User creation failed",
			"error":   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User created successfully",
		"data":    created,
	})
}
