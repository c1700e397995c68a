package token

import (
	"errors"
	"fmt"
	"time"

	"permit-processing-backend/db/models"

	"github.com/google/uuid"
)

var ErrExpired = errors.New("token has expired")

// Payload carries the authenticated identity. Role is read by the workflow
// layer to gate transitions, so it lives inside the token rather than being
// re-fetched per request.
type Payload struct {
	ID        uuid.UUID       `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Email     string          `json:"email"`
	Role      models.UserRole `json:"role"`
	IssuedAt  time.Time       `json:"issued_at"`
	ExpiredAt time.Time       `json:"expired_at"`
}

func NewPayload(userID uuid.UUID, email string, role models.UserRole, duration time.Duration) (*Payload, error) {
	if email == "" {
		return nil, errors.New("email cannot be empty")
	}
	if duration <= 0 {
		return nil, errors.New("duration must be positive")
	}

	tokenID, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}

	issuedAt := time.Now()
	payload := &Payload{
		ID:        tokenID,
		UserID:    userID,
		Email:     email,
		Role:      role,
		IssuedAt:  issuedAt,
		ExpiredAt: issuedAt.Add(duration),
	}
	return payload, nil
}

func (payload *Payload) Valid() error {
	if time.Now().After(payload.ExpiredAt) {
		return ErrExpired
	}
	return nil
}

func (p *Payload) String() string {
	return fmt.Sprintf("ID: %s, Email: %s, Role: %s, ExpiredAt: %s", p.ID, p.Email, p.Role, p.ExpiredAt)
}
