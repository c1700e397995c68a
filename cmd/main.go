package main

import (
	"context"

	config "permit-processing-backend/config"
	"permit-processing-backend/internal/tasks"
	"permit-processing-backend/middleware"
	"permit-processing-backend/token"
	"permit-processing-backend/utils"

	// Repositories
	applications_repositories "permit-processing-backend/applications/repositories"
	users_repositories "permit-processing-backend/users/repositories"

	// Services
	applications_services "permit-processing-backend/applications/services"
	document_services "permit-processing-backend/documents/services"
	search_services "permit-processing-backend/search/services"

	// Routes
	application_routes "permit-processing-backend/applications/routes"
	user_routes "permit-processing-backend/users/routes"

	search_controllers "permit-processing-backend/search/controllers"
	search_routes "permit-processing-backend/search/routes"

	// WebSocket
	"permit-processing-backend/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	config.InitLogger()

	if err := godotenv.Load(".env"); err != nil {
		config.Logger.Fatal("Error loading .env file", zap.Error(err))
	}

	app := fiber.New()
	middleware.InitCors(app)

	db := config.ConfigureDatabase()
	port := config.GetEnvDefault("PORT", "8080")
	ctx := context.Background()

	redisAddr := config.GetEnvDefault("REDIS_ADDRESS", "localhost:6379")
	redisClient := config.InitRedisServer(ctx)

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr})
	defer asynqClient.Close()

	tokenKey := config.GetEnv("TOKEN_SYMMETRIC_KEY")
	tokenMaker, err := token.NewPasetoMaker(tokenKey)
	if err != nil {
		config.Logger.Fatal("Cannot create token maker", zap.Error(err))
	}

	indexPath := config.GetEnvDefault("BLEVE_INDEX_PATH", "./bleve_data")

	utils.InitializeMailer()
	mailer := utils.GetMailer()
	if mailer == nil {
		config.Logger.Fatal("Mailer not initialized")
	}

	// Background email worker shares the process; a dedicated worker binary
	// can take over by pointing at the same Redis.
	worker := tasks.NewServer(redisAddr)
	go func() {
		if err := worker.Run(tasks.NewMux(mailer)); err != nil {
			config.Logger.Error("Task worker stopped", zap.Error(err))
		}
	}()

	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Nightly sweep of generated exports and stale sessions.
	go utils.RunScheduledCleanup("./public/exports", redisClient)

	app.Static("/public", "./public")
	app.Static("/uploads", "./uploads")

	appCtx := &middleware.AppContext{
		PasetoMaker: tokenMaker,
		Ctx:         ctx,
		RedisClient: redisClient,
	}

	// Repositories and services
	sequenceService := applications_services.NewSequenceService()
	applicationRepo := applications_repositories.NewApplicationRepository(db, sequenceService)
	userRepo := users_repositories.NewUserRepository(db)

	engine := applications_services.NewWorkflowEngine(sequenceService)
	documentService := document_services.NewDocumentService(utils.NewLocalFileStorage("./uploads"))
	indexingService := search_services.NewIndexingService(config.Logger, indexPath)

	// WebSocket endpoint
	wsHandler := websocket.NewWsHandler(wsHub, tokenMaker)
	app.Get("/ws", wsHandler.HandleWebSocket)

	// Routes
	user_routes.UserRouterInit(app, appCtx, userRepo)
	application_routes.ApplicationRouterInit(
		app, db, appCtx,
		applicationRepo, engine, documentService, indexingService,
		asynqClient, wsHub,
	)
	search_routes.InitSearchRoutes(app, search_controllers.NewSearchController(indexingService), appCtx)

	config.Logger.Info("Starting server", zap.String("port", port))
	if err := app.Listen(":" + port); err != nil {
		config.Logger.Fatal("Server stopped", zap.Error(err))
	}
}
