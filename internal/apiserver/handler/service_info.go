package handler

import (
	"net/http"

	"github.com/amoylab/snipcollab/pkg/version"

	"github.com/gin-gonic/gin"
)

// ServiceInfo describes the running collabd instance
type ServiceInfo struct {
	Name         string   `json:"name"`
	Version      string   `json:"version"`
	SessionStore string   `json:"session_store"`
	Capabilities []string `json:"capabilities"`
}

// HandleServiceInfo reports the service identity. storeType is the configured session backend.
func HandleServiceInfo(storeType string) gin.HandlerFunc {
	info := ServiceInfo{
		Name:         "collabd",
		Version:      version.Get(),
		SessionStore: storeType,
		Capabilities: []string{"sessions", "cursors", "edits", "chat", "cleanup"},
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, info)
	}
}

// HandleHealth reports liveness
func HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
