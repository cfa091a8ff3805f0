package i18n

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestRespondWithError(t *testing.T) {
	w := serve(t, func(c *gin.Context) { RespondWithError(c, fmt.Errorf("join: %w", ErrorSessionExpired)) })
	assert.Equal(t, http.StatusGone, w.Code)

	var body map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ErrorSessionExpired", body["code"])

	w = serve(t, func(c *gin.Context) { RespondWithError(c, ErrorSessionFull) })
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRespondWithError_HidesInternalErrors(t *testing.T) {
	w := serve(t, func(c *gin.Context) { RespondWithError(c, errors.New("dial tcp 10.0.0.1:6379: refused")) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "10.0.0.1")
}

func TestRespondSuccess(t *testing.T) {
	w := serve(t, func(c *gin.Context) { RespondCreated(c, SuccessSessionCreated, gin.H{"session_token": "t"}) })
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"session_token":"t"`)

	w = serve(t, func(c *gin.Context) { RespondOK(c, SuccessUpdateApplied, nil) })
	assert.Equal(t, http.StatusOK, w.Code)
}
