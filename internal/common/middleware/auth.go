package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"discord-giveaway-bot/internal/common/errors"
)

// RequireAdminToken accepts requests carrying "Authorization: Bearer <token>".
// With an empty token every request is refused.
func RequireAdminToken(token string, logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			SendError(c, errors.New(errors.ErrCodeForbidden, "Admin API is disabled"), logger)
			return
		}

		header := c.GetHeader("Authorization")
		presented, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			SendError(c, errors.New(errors.ErrCodeForbidden, "Admin access required"), logger)
			return
		}

		c.Next()
	}
}
