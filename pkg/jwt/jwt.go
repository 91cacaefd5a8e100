package jwt

import (
	"errors"
	"fmt"
	"time"

	"clinic-appointment-service/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "clinic-appointment-service"

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

var (
	ErrInvalidToken   = errors.New("invalid token")
	ErrWrongTokenType = errors.New("wrong token type")
)

// Subject is the account a token is issued for.
type Subject struct {
	UserID uuid.UUID
	Email  string
	RoleID int
}

// Claims puts the user id in sub and the token id in jti.
type Claims struct {
	Email  string    `json:"email"`
	RoleID int       `json:"role_id"`
	Type   TokenType `json:"typ"`
	jwt.RegisteredClaims
}

// Issued is a signed token plus the id the token store tracks it under.
type Issued struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// Verified is what a caller learns from a valid token.
type Verified struct {
	Subject
	TokenID string
}

type JWTService struct {
	secret []byte
	ttl    map[TokenType]time.Duration
	parser *jwt.Parser
}

func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret: []byte(cfg.Secret),
		ttl: map[TokenType]time.Duration{
			AccessToken:  cfg.AccessExpiry,
			RefreshToken: cfg.RefreshExpiry,
		},
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// TTL is how long a token of the given type stays valid.
func (s *JWTService) TTL(tokenType TokenType) time.Duration {
	return s.ttl[tokenType]
}

func (s *JWTService) Issue(tokenType TokenType, sub Subject) (*Issued, error) {
	ttl, ok := s.ttl[tokenType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrWrongTokenType, tokenType)
	}

	now := time.Now()
	tokenID := uuid.NewString()
	claims := Claims{
		Email:  sub.Email,
		RoleID: sub.RoleID,
		Type:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Issuer:    issuer,
			Subject:   sub.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign %s token: %w", tokenType, err)
	}

	return &Issued{Token: signed, ID: tokenID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Parse verifies signature, issuer and expiry, then checks the token is of the wanted type.
func (s *JWTService) Parse(tokenString string, want TokenType) (*Verified, error) {
	var claims Claims
	if _, err := s.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Type != want {
		return nil, ErrWrongTokenType
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	return &Verified{
		Subject: Subject{UserID: userID, Email: claims.Email, RoleID: claims.RoleID},
		TokenID: claims.ID,
	}, nil
}
