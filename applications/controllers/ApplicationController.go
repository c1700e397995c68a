package controllers

import (
	"permit-processing-backend/applications/repositories"
	"permit-processing-backend/applications/services"
	"permit-processing-backend/config"
	"permit-processing-backend/db/models"
	"permit-processing-backend/internal/tasks"
	search_services "permit-processing-backend/search/services"
	"permit-processing-backend/token"
	"permit-processing-backend/websocket"

	document_services "permit-processing-backend/documents/services"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ApplicationController struct {
	DB              *gorm.DB
	ApplicationRepo repositories.ApplicationRepository
	Engine          *services.WorkflowEngine
	DocumentService *document_services.DocumentService
	IndexingService *search_services.IndexingService
	AsynqClient     *asynq.Client
	WsHub           *websocket.Hub
}

// actorFromContext pulls the authenticated token payload set by the auth
// middleware.
func actorFromContext(c *fiber.Ctx) (*token.Payload, bool) {
	payload, ok := c.Locals("user").(*token.Payload)
	if !ok || payload == nil {
		return nil, false
	}
	return payload, true
}

// notifyStatusChange fans a committed status change out to the applicant:
// queued email, live websocket push, search re-index. All best-effort; the
// transition already committed.
func (ac *ApplicationController) notifyStatusChange(app *models.Application, comments string) {
	if ac.AsynqClient != nil && app.Applicant.Email != "" {
		task, err := tasks.NewStatusChangedEmailTask(tasks.StatusChangedEmailPayload{
			ApplicationID:  app.ID.String(),
			ReferenceNo:    app.ReferenceNo,
			Status:         string(app.Status),
			Comments:       comments,
			RecipientEmail: app.Applicant.Email,
			RecipientName:  app.Applicant.FullName(),
		})
		if err == nil {
			if _, err := ac.AsynqClient.Enqueue(task); err != nil {
				config.Logger.Warn("Failed to enqueue status change email",
					zap.String("reference_no", app.ReferenceNo),
					zap.Error(err),
				)
			}
		}
	}

	if ac.WsHub != nil {
		ac.WsHub.NotifyStatusUpdate(app.ApplicantID, websocket.StatusUpdatePayload{
			ApplicationID: app.ID.String(),
			ReferenceNo:   app.ReferenceNo,
			Status:        string(app.Status),
			Comments:      comments,
		})
	}

	if ac.IndexingService != nil {
		ac.IndexingService.IndexApplication(app)
	}
}
