package jwt

import (
	"testing"
	"time"

	"clinic-appointment-service/config"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(secret string) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:        secret,
		AccessExpiry:  15 * time.Minute,
		RefreshExpiry: 24 * time.Hour,
	})
}

func TestIssueAndParse(t *testing.T) {
	svc := newService("test-secret")
	sub := Subject{UserID: uuid.New(), Email: "jane@clinic.test", RoleID: 3}

	issued, err := svc.Issue(AccessToken, sub)
	require.NoError(t, err)
	assert.NotEmpty(t, issued.ID)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), issued.ExpiresAt, 5*time.Second)

	verified, err := svc.Parse(issued.Token, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, sub, verified.Subject)
	assert.Equal(t, issued.ID, verified.TokenID)
}

func TestParse_WrongType(t *testing.T) {
	svc := newService("test-secret")

	refresh, err := svc.Issue(RefreshToken, Subject{UserID: uuid.New(), Email: "doc@clinic.test", RoleID: 2})
	require.NoError(t, err)

	_, err = svc.Parse(refresh.Token, AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	verified, err := svc.Parse(refresh.Token, RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, refresh.ID, verified.TokenID)
}

func TestParse_Rejections(t *testing.T) {
	sub := Subject{UserID: uuid.New(), Email: "a@clinic.test", RoleID: 1}

	t.Run("wrong secret", func(t *testing.T) {
		issued, err := newService("secret-a").Issue(AccessToken, sub)
		require.NoError(t, err)
		_, err = newService("secret-b").Parse(issued.Token, AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		svc := NewJWTService(config.JWTConfig{Secret: "s", AccessExpiry: -time.Minute})
		issued, err := svc.Issue(AccessToken, sub)
		require.NoError(t, err)
		_, err = svc.Parse(issued.Token, AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		claims := Claims{
			Type: AccessToken,
			RegisteredClaims: gojwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Issuer:    "someone-else",
				Subject:   sub.UserID.String(),
				ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		signed, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("s"))
		require.NoError(t, err)
		_, err = newService("s").Parse(signed, AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := newService("s").Parse("not.a.token", AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestTTL(t *testing.T) {
	svc := newService("s")
	assert.Equal(t, 15*time.Minute, svc.TTL(AccessToken))
	assert.Equal(t, 24*time.Hour, svc.TTL(RefreshToken))
}
