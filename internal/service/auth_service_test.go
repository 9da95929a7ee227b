package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nutribyte/fitness-app/internal/repository/memory"
)

const testSecret = "test-secret"

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc := NewAuthService(memory.NewStore().Users(), testSecret, time.Hour)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ada", " Ada@Example.com ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Empty(t, user.PasswordHash)

	_, err = svc.Register(ctx, "Ada again", "ADA@example.com", "other")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	token, loggedIn, err := svc.Login(ctx, "ada@example.com", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)

	userID, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	_, _, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	_, _, err = svc.Login(ctx, "nobody@example.com", "s3cret-pass")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, err = svc.Register(ctx, "", "x@example.com", "pw")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAuthService_ParseToken_Rejects(t *testing.T) {
	svc := NewAuthService(memory.NewStore().Users(), testSecret, time.Hour)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwtClaims{
		UserID: "64b7f0c2e4b0a1a2b3c4d5e6",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	expiredToken, err := expired.SignedString([]byte(testSecret))
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwtClaims{UserID: "64b7f0c2e4b0a1a2b3c4d5e6"})
	foreignToken, err := foreign.SignedString([]byte("another-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":      "not-a-token",
		"expired":      expiredToken,
		"wrong secret": foreignToken,
	} {
		_, err := svc.ParseToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken, name)
	}
}
