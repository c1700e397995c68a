package token

import (
	"time"

	"permit-processing-backend/db/models"

	"github.com/google/uuid"
)

// Maker is the contract for anything that can create and verify tokens.
// Keeping it an interface lets the rest of the application swap token
// implementations without touching handler code.
type Maker interface {
	CreateToken(userID uuid.UUID, email string, role models.UserRole, duration time.Duration) (string, error)

	VerifyToken(token string) (*Payload, error)
}
