package status

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/api/types"
)

// RegisterRoutes registers the polling routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	// GET /api/v1/status - status text, dirty flag and counters
	router.GET("/status", Get(deps))

	// GET /api/v1/snapshot - all transcriptions
	router.GET("/snapshot", GetSnapshot(deps))
}
