package version

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/api/types"
)

// Get handles version requests
func Get(deps *types.Dependencies) gin.HandlerFunc {
	version := "dev"
	if deps != nil && deps.Version != "" {
		version = deps.Version
	}
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"name":        "VoxScript",
			"version":     version,
			"description": "Background speech-to-text for host audio sources",
			"status":      "running",
		})
	}
}
