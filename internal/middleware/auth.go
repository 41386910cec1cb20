package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/obsilock/obsilock/internal/pkg/response"
	"github.com/obsilock/obsilock/internal/pkg/token"
)

const ContextUserID = "user_id"

// Auth extracts and verifies the bearer token, putting the subject into
// the request context. The error code tells the client whether to
// re-login (expired) or fix its request (missing/malformed).
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortAuth(c, "missing", "authorization header required")
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			abortAuth(c, "malformed", "authorization header must be a bearer token")
			return
		}
		claims, err := token.Verify(parts[1], secret)
		if err != nil {
			switch {
			case errors.Is(err, token.ErrExpired):
				abortAuth(c, "expired", "token expired")
			case errors.Is(err, token.ErrBadSignature):
				abortAuth(c, "bad_signature", "token signature invalid")
			default:
				abortAuth(c, "malformed", "token malformed")
			}
			return
		}
		c.Set(ContextUserID, claims.Subject)
		c.Next()
	}
}

func abortAuth(c *gin.Context, code, message string) {
	response.Error(c, http.StatusUnauthorized, code, message)
	c.Abort()
}
