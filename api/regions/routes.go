package regions

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/api/types"
)

// RegisterRoutes registers region routes under /sources
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	// POST /api/v1/sources/:id/regions - Region created on a source
	router.POST("/:id/regions", Create(deps))
}
