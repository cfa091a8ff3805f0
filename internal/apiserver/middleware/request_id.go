package middleware

import (
	"github.com/amoylab/snipcollab/internal/common/cnst"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestID keeps the caller's X-Request-ID or assigns a new one and echoes it in the response
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(cnst.XRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(cnst.XRequestID, id)
		c.Header(cnst.XRequestID, id)
		c.Next()
	}
}
