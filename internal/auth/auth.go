package auth

import (
	"context"

	relay_errors "relay-chat/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessClaims is the token shape issued by the external identity
// provider. Only the subject is consumed here; tokens are verified,
// never minted.
type AccessClaims struct {
	UserID   string `json:"sub"`
	TenantID string `json:"tid,omitempty"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) ParseAccessToken(tokenString string) (AccessClaims, error) {
	if tokenString == "" {
		return AccessClaims{}, relay_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, relay_errors.ErrUnauthorized
		}
		return v.secret, nil
	})
	if err != nil {
		return AccessClaims{}, relay_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return AccessClaims{}, relay_errors.ErrUnauthorized
	}

	return *claims, nil
}

type ctxKey string

var userIDKey ctxKey = "user_id"
var tenantIDKey ctxKey = "tenant_id"

func WithUserContext(ctx context.Context, userID uuid.UUID, tenantID uuid.NullUUID) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	if tenantID.Valid {
		ctx = context.WithValue(ctx, tenantIDKey, tenantID)
	}
	return ctx
}

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	value := ctx.Value(userIDKey)
	if value == nil {
		return uuid.Nil, false
	}
	userID, ok := value.(uuid.UUID)
	return userID, ok
}

func TenantIDFromContext(ctx context.Context) (uuid.NullUUID, bool) {
	value := ctx.Value(tenantIDKey)
	if value == nil {
		return uuid.NullUUID{}, false
	}
	tenantID, ok := value.(uuid.NullUUID)
	return tenantID, ok
}
