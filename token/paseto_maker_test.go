package token

import (
	"testing"
	"time"

	"permit-processing-backend/db/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSymmetricKey = "12345678901234567890123456789012"

func TestPasetoMakerRoundTrip(t *testing.T) {
	maker, err := NewPasetoMaker(testSymmetricKey)
	require.NoError(t, err)

	userID := uuid.New()
	created, err := maker.CreateToken(userID, "meo@town.gov", models.RoleMEOAdmin, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, created)

	payload, err := maker.VerifyToken(created)
	require.NoError(t, err)
	assert.Equal(t, userID, payload.UserID)
	assert.Equal(t, "meo@town.gov", payload.Email)
	assert.Equal(t, models.RoleMEOAdmin, payload.Role)
}

func TestPasetoMakerRejectsShortKey(t *testing.T) {
	_, err := NewPasetoMaker("too-short")
	require.Error(t, err)
}

func TestPasetoMakerRejectsExpiredToken(t *testing.T) {
	maker, err := NewPasetoMaker(testSymmetricKey)
	require.NoError(t, err)
	pasetoMaker := maker.(*PasetoMaker)

	payload := &Payload{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Email:     "meo@town.gov",
		Role:      models.RoleMEOAdmin,
		IssuedAt:  time.Now().Add(-2 * time.Hour),
		ExpiredAt: time.Now().Add(-time.Hour),
	}
	created, err := pasetoMaker.paseto.Encrypt(pasetoMaker.symmetricKey, payload, nil)
	require.NoError(t, err)

	_, err = maker.VerifyToken(created)
	require.ErrorIs(t, err, ErrExpired)
}

func TestPasetoMakerRejectsNonPositiveDuration(t *testing.T) {
	maker, err := NewPasetoMaker(testSymmetricKey)
	require.NoError(t, err)

	_, err = maker.CreateToken(uuid.New(), "meo@town.gov", models.RoleMEOAdmin, -time.Minute)
	require.Error(t, err)
}

func TestPasetoMakerRejectsTamperedToken(t *testing.T) {
	maker, err := NewPasetoMaker(testSymmetricKey)
	require.NoError(t, err)

	created, err := maker.CreateToken(uuid.New(), "meo@town.gov", models.RoleMEOAdmin, time.Minute)
	require.NoError(t, err)

	tampered := created[:len(created)-6] + "tamper"
	if tampered == created {
		t.Fatal("tampering produced an identical token")
	}
	_, err = maker.VerifyToken(tampered)
	require.Error(t, err)
}
