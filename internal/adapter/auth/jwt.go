package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/simaogato/shiftescrow-backend/internal/domain"
)

const issuer = "shiftescrow"

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidRole  = errors.New("invalid role claim")
)

type actorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService signs and verifies HS256 bearer tokens that identify an Actor
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service. The secret must be at least 32 bytes.
func NewTokenService(secret string, ttl time.Duration, now func() time.Time) (*TokenService, error) {
	if len(secret) < 32 {
		return nil, errors.New("jwt secret must be at least 32 bytes")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: now}, nil
}

// Issue signs a token for the actor. The system role is never issued.
func (s *TokenService) Issue(actor domain.Actor) (string, error) {
	if !actor.Role.Valid() || actor.IsSystem() {
		return "", ErrInvalidRole
	}

	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, actorClaims{
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   actor.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses the token and returns the actor it names
func (s *TokenService) Verify(tokenString string) (domain.Actor, error) {
	claims := &actorClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return domain.Actor{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil || id == uuid.Nil {
		return domain.Actor{}, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}

	role := domain.Role(claims.Role)
	if !role.Valid() || role == domain.RoleSystem {
		return domain.Actor{}, ErrInvalidRole
	}

	return domain.Actor{ID: id, Role: role}, nil
}

type actorKey struct{}

// WithActor stores the authenticated actor in ctx
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the authenticated actor stored by WithActor
func ActorFrom(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}
