package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const TypeStatusChangedEmail = "email:status_changed"

// StatusChangedEmailPayload carries everything the worker needs to notify an
// applicant about a workflow movement. Notification delivery is best-effort;
// no workflow step depends on it.
type StatusChangedEmailPayload struct {
	ApplicationID  string `json:"application_id"`
	ReferenceNo    string `json:"reference_no"`
	Status         string `json:"status"`
	Comments       string `json:"comments"`
	RecipientEmail string `json:"recipient_email"`
	RecipientName  string `json:"recipient_name"`
}

func NewStatusChangedEmailTask(payload StatusChangedEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal status email payload: %w", err)
	}
	return asynq.NewTask(TypeStatusChangedEmail, data, asynq.MaxRetry(5)), nil
}
