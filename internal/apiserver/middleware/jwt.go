package middleware

import (
	"strings"

	"github.com/amoylab/snipcollab/internal/auth/jwt"
	"github.com/amoylab/snipcollab/internal/collab"
	"github.com/amoylab/snipcollab/internal/common/cnst"
	"github.com/amoylab/snipcollab/internal/i18n"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JWTAuthMiddleware validates the bearer token and attaches the caller as a collab.Actor
// to the request context
func JWTAuthMiddleware(logger *zap.Logger, jwtService *jwt.Service) gin.HandlerFunc {
	logger = logger.Named("middleware.jwt")
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			i18n.RespondWithError(c, i18n.ErrorMissingBearerToken)
			c.Abort()
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || scheme != "Bearer" || token == "" {
			i18n.RespondWithError(c, i18n.ErrorMissingBearerToken)
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(token)
		if err != nil {
			logger.Debug("rejected bearer token", zap.Error(err), zap.String("path", c.FullPath()))
			i18n.RespondWithError(c, i18n.ErrorInvalidBearerToken)
			c.Abort()
			return
		}

		actor := collab.Actor{UserID: claims.UserID, RequestID: c.GetString(cnst.XRequestID)}
		c.Request = c.Request.WithContext(collab.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}
