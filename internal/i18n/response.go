package i18n

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RespondWithError sends an appropriate HTTP error response for the given error.
// Errors without a code are reported as a generic internal error.
func RespondWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var errWithCode *ErrorWithCode
	if !errors.As(err, &errWithCode) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": ErrInternalServer.TranslateByContext(c)})
		return
	}

	c.JSON(int(errWithCode.GetCode()), gin.H{
		"error": errWithCode.TranslateByContext(c),
		"code":  errWithCode.MessageID,
	})
}

// RespondWithSuccess sends a success HTTP response with an internationalized message
func RespondWithSuccess(c *gin.Context, statusCode int, msgID string, payload gin.H) {
	response := gin.H{
		"message": TranslateMessage(c, msgID, nil),
	}
	for k, v := range payload {
		response[k] = v
	}
	c.JSON(statusCode, response)
}

// RespondOK sends a 200 response
func RespondOK(c *gin.Context, msgID string, payload gin.H) {
	RespondWithSuccess(c, http.StatusOK, msgID, payload)
}

// RespondCreated sends a 201 response
func RespondCreated(c *gin.Context, msgID string, payload gin.H) {
	RespondWithSuccess(c, http.StatusCreated, msgID, payload)
}
