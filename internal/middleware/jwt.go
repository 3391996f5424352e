package middleware

import (
	"errors"
	"net/http"

	"movie_api/internal/auth"
	"movie_api/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthMiddleware authenticates the bearer token and stores the resolved user
// in both the gin context and the request context. Every rejection gets the
// same 401 body; the specific reason is only logged.
func AuthMiddleware(authenticator *auth.Authenticator, metrics *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := authenticator.AuthenticateBearer(c.Request)
		kind := auth.Kind(err)
		metrics.ObserveAuth("bearer", kind)

		if err != nil {
			if errors.Is(err, auth.ErrStoreUnavailable) {
				logrus.WithError(err).Error("Bearer authentication failed: user store unavailable")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}

			logrus.WithFields(logrus.Fields{
				"kind": kind,
				"path": c.Request.URL.Path,
			}).Info("Bearer authentication rejected")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(auth.UserKey, user)
		c.Request = c.Request.WithContext(auth.ContextWithUser(c.Request.Context(), user))
		c.Next()
	}
}
