package routes

import (
	controllers "permit-processing-backend/applications/controllers"
	repositories "permit-processing-backend/applications/repositories"
	"permit-processing-backend/applications/services"
	document_services "permit-processing-backend/documents/services"
	"permit-processing-backend/middleware"
	search_services "permit-processing-backend/search/services"
	"permit-processing-backend/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

func ApplicationRouterInit(
	app *fiber.App,
	db *gorm.DB,
	appCtx *middleware.AppContext,
	applicationRepository repositories.ApplicationRepository,
	engine *services.WorkflowEngine,
	documentService *document_services.DocumentService,
	indexingService *search_services.IndexingService,
	asynqClient *asynq.Client,
	wsHub *websocket.Hub,
) {
	applicationController := &controllers.ApplicationController{
		DB:              db,
		ApplicationRepo: applicationRepository,
		Engine:          engine,
		DocumentService: documentService,
		IndexingService: indexingService,
		AsynqClient:     asynqClient,
		WsHub:           wsHub,
	}

	applicationRoutes := app.Group("/api/v1", middleware.ProtectedRoute(appCtx))

	// Intake
	applicationRoutes.Post("/applications/building", applicationController.CreateBuildingApplicationController)
	applicationRoutes.Post("/applications/occupancy", applicationController.CreateOccupancyApplicationController)

	// Reads
	applicationRoutes.Get("/applications", applicationController.GetFilteredApplicationsController)
	applicationRoutes.Get("/applications/:id", applicationController.GetApplicationByIdController)
	applicationRoutes.Get("/applications/:id/history", applicationController.GetApplicationHistoryController)
	applicationRoutes.Get("/applications/:id/permit-form", applicationController.GeneratePermitFormController)

	// Workflow actions (state-changing, POST/PATCH)
	applicationRoutes.Patch("/applications/:id/status", middleware.RequireAdmin(), applicationController.UpdateApplicationStatusController)
	applicationRoutes.Post("/applications/:id/documents", applicationController.UploadDocumentController)
	applicationRoutes.Post("/applications/:id/revisions", applicationController.UploadRevisionController)
	applicationRoutes.Post("/applications/:id/payment", applicationController.SubmitPaymentController)
	applicationRoutes.Post("/applications/:id/missing-documents/resolve", middleware.RequireAdmin(), applicationController.ResolveMissingDocumentController)

	// Reporting
	applicationRoutes.Get("/applications-export", middleware.RequireAdmin(), applicationController.ExportApplicationsController)
}
