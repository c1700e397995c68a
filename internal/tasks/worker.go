package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"permit-processing-backend/config"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// NewServer builds the asynq worker that drains the notification queue.
func NewServer(redisAddr string) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisAddr},
		asynq.Config{
			Concurrency: 5,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)
}

// NewMux registers the task handlers.
func NewMux(mailer *gomail.Dialer) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeStatusChangedEmail, handleStatusChangedEmail(mailer))
	return mux
}

func handleStatusChangedEmail(mailer *gomail.Dialer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload StatusChangedEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("failed to unmarshal status email payload: %v: %w", err, asynq.SkipRetry)
		}

		from := config.GetEnvDefault("SMTP_FROM", "no-reply@permits.local")

		m := gomail.NewMessage()
		m.SetHeader("From", from)
		m.SetHeader("To", payload.RecipientEmail)
		m.SetHeader("Subject", fmt.Sprintf("Application %s: %s", payload.ReferenceNo, payload.Status))
		m.SetBody("text/html", fmt.Sprintf(
			`<p>Dear %s,</p>
			<p>Your application <strong>%s</strong> has moved to status <strong>%s</strong>.</p>
			<p>%s</p>
			<p>You can track your application with its reference number at any time.</p>`,
			payload.RecipientName, payload.ReferenceNo, payload.Status, payload.Comments,
		))

		if err := mailer.DialAndSend(m); err != nil {
			config.Logger.Error("Failed to send status change email",
				zap.String("reference_no", payload.ReferenceNo),
				zap.String("recipient", payload.RecipientEmail),
				zap.Error(err),
			)
			return err
		}

		config.Logger.Info("Status change email sent",
			zap.String("reference_no", payload.ReferenceNo),
			zap.String("status", payload.Status),
		)
		return nil
	}
}
