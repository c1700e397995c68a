package routes

import (
	"permit-processing-backend/middleware"
	"permit-processing-backend/search/controllers"

	"github.com/gofiber/fiber/v2"
)

func InitSearchRoutes(app *fiber.App, searchController *controllers.SearchController, appCtx *middleware.AppContext) {
	searchRoutes := app.Group("/api/v1", middleware.ProtectedRoute(appCtx), middleware.RequireAdmin())

	searchRoutes.Get("/search/applications", searchController.SearchApplicationsController)
}
