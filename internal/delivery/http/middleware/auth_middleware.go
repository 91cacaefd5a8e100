package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/internal/service"
	"clinic-appointment-service/pkg/jwt"
	"clinic-appointment-service/pkg/response"

	"github.com/google/uuid"
)

type identityKey struct{}

// identity is what Authenticate learns about the caller from a valid access token.
type identity struct {
	userID  uuid.UUID
	email   string
	roleID  int
	tokenID string
}

type AuthMiddleware struct {
	jwtService *jwt.JWTService
	tokenStore service.TokenStore
}

func NewAuthMiddleware(jwtService *jwt.JWTService, tokenStore service.TokenStore) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		tokenStore: tokenStore,
	}
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			response.Unauthorized(w, "Missing or malformed bearer token")
			return
		}

		claims, err := m.jwtService.Parse(token, jwt.AccessToken)
		if errors.Is(err, jwt.ErrWrongTokenType) {
			response.Unauthorized(w, "Invalid token type")
			return
		}
		if err != nil {
			response.Unauthorized(w, "Invalid or expired token")
			return
		}

		// logout and refresh delete the id from the store
		exists, err := m.tokenStore.AccessExists(r.Context(), claims.UserID, claims.TokenID)
		if err != nil {
			response.InternalServerError(w, "Failed to validate token")
			return
		}
		if !exists {
			response.Unauthorized(w, "Token has been revoked")
			return
		}

		ctx := WithIdentity(r.Context(), claims.UserID, claims.Email, claims.RoleID, claims.TokenID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithIdentity stores the authenticated caller on the context.
func WithIdentity(ctx context.Context, userID uuid.UUID, email string, roleID int, tokenID string) context.Context {
	return context.WithValue(ctx, identityKey{}, identity{userID: userID, email: email, roleID: roleID, tokenID: tokenID})
}

func identityFrom(ctx context.Context) (identity, bool) {
	id, ok := ctx.Value(identityKey{}).(identity)
	return id, ok
}

// GetTokenIDFromContext returns the jti of the access token used for this request.
func GetTokenIDFromContext(ctx context.Context) (string, bool) {
	id, ok := identityFrom(ctx)
	return id.tokenID, ok
}

// GetRequesterFromContext returns the caller identity usecases authorize against.
func GetRequesterFromContext(ctx context.Context) (entity.Requester, bool) {
	id, ok := identityFrom(ctx)
	if !ok {
		return entity.Requester{}, false
	}
	return entity.Requester{UserID: id.userID, RoleID: id.roleID}, true
}
