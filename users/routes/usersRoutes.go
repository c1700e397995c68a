package routes

import (
	controllers "permit-processing-backend/users/controllers"
	repositories "permit-processing-backend/users/repositories"

	"permit-processing-backend/middleware"

	"github.com/gofiber/fiber/v2"
)

func UserRouterInit(
	app *fiber.App,
	appCtx *middleware.AppContext,
	userRepository repositories.UserRepository,
) {
	loginController := &controllers.LoginController{
		UserRepo:    userRepository,
		PasetoMaker: appCtx.PasetoMaker,
		Ctx:         appCtx.Ctx,
		RedisClient: appCtx.RedisClient,
	}
	userController := &controllers.UserController{
		UserRepo: userRepository,
	}

	authRoutes := app.Group("/api/v1/auth")

	authRoutes.Post("/register", userController.RegisterApplicant)
	authRoutes.Post("/login", middleware.LoginRateLimit(), loginController.LoginUser)
	authRoutes.Post("/validate-otp", loginController.ValidateOtp)
	authRoutes.Post("/validate-totp", loginController.ValidateTOTP)
	authRoutes.Post("/logout", loginController.LogoutUser)

	// Authenticator enrollment requires a live session.
	totpRoutes := app.Group("/api/v1/auth/totp", middleware.ProtectedRoute(appCtx))
	totpRoutes.Post("/setup", loginController.SetupTOTP)
	totpRoutes.Post("/enable", loginController.EnableTOTP)
	totpRoutes.Post("/disable", loginController.DisableTOTP)

	// Account administration is limited to the reviewing offices.
	userRoutes := app.Group("/api/v1/users", middleware.ProtectedRoute(appCtx), middleware.RequireAdmin())
	userRoutes.Post("/", userController.CreateUserController)
	userRoutes.Get("/", userController.GetFilteredUsersController)
}
