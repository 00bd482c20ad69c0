package auth

import (
	"testing"
	"time"

	"storefront/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	actor := models.Actor{ID: 42, Role: models.RoleSeller}
	token, err := GenerateToken(secret, actor, time.Hour)
	require.NoError(t, err)

	got, err := ActorFromToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, actor, got)
}

func TestParseToken_Rejects(t *testing.T) {
	actor := models.Actor{ID: 1, Role: models.RoleBuyer}

	expired, err := GenerateToken(secret, actor, -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(secret, expired)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	valid, err := GenerateToken(secret, actor, time.Hour)
	require.NoError(t, err)
	_, err = ParseToken("other-secret", valid)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)

	_, err = ParseToken(secret, "not-a-token")
	assert.Error(t, err)
}

func TestActorFromToken_UnknownRole(t *testing.T) {
	token, err := GenerateToken(secret, models.Actor{ID: 1, Role: "root"}, time.Hour)
	require.NoError(t, err)

	_, err = ActorFromToken(secret, token)
	assert.ErrorIs(t, err, ErrInvalidRole)
}
