package middleware

import (
	"net/http"
	"strings"

	"relay-chat/internal/auth"
	"relay-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuthMiddleware verifies the bearer token issued by the external
// identity provider and stashes the caller's user id on the request
// context. There is no session store to consult; the token is the
// whole credential.
func AuthMiddleware(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		claims, err := verifier.ParseAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		tenantID := uuid.NullUUID{}
		if claims.TenantID != "" {
			if tid, err := uuid.Parse(claims.TenantID); err == nil {
				tenantID = uuid.NullUUID{UUID: tid, Valid: true}
			}
		}

		ctx := auth.WithUserContext(c.Request.Context(), userID, tenantID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
