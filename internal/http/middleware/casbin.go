package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/you/donationsvc/domain"
	"github.com/you/donationsvc/internal/services"
)

// CasbinMW enforces route policies for the authenticated role
type CasbinMW struct {
	enforcer domain.CasbinEnforcer
	logger   zerolog.Logger
}

// NewCasbinMW creates new casbin middleware wrapper
func NewCasbinMW(enforcer domain.CasbinEnforcer, logger zerolog.Logger) *CasbinMW {
	return &CasbinMW{enforcer: enforcer, logger: logger.With().Str("component", "authz").Logger()}
}

// Enforce returns the casbin authorization middleware. It must run after
// AuthMiddleware.
func (mw *CasbinMW) Enforce() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, userOK := UserID(c)
		role, roleOK := UserRole(c)
		if !userOK || !roleOK {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User ID or role not found in token"})
			return
		}

		// a caller asserting another identity is rejected outright
		if headerUserID := c.GetHeader("x-user-id"); headerUserID != "" && headerUserID != strconv.FormatUint(uint64(userID), 10) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Header x-user-id does not match token user ID"})
			return
		}

		path := c.Request.URL.Path
		method := c.Request.Method
		allowed, err := mw.enforcer.Enforce(services.Subject(role), path, method)
		if err != nil {
			mw.logger.Error().Err(err).Str("path", path).Str("method", method).Msg("authorization check failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authorization check failed"})
			return
		}
		if !allowed {
			mw.logger.Info().Uint("user_id", userID).Str("role", role).Str("path", path).Str("method", method).Msg("access denied")
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access Denied"})
			return
		}

		c.Next()
	}
}
