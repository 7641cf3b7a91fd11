package sources

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/api/types"
)

// RegisterRoutes registers source management routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	// GET /api/v1/sources - List registered sources
	router.GET("", List(deps))

	// POST /api/v1/sources - Register a WAV file
	router.POST("", Add(deps))

	// GET /api/v1/sources/:id - Source details and transcription
	router.GET("/:id", Get(deps))

	// DELETE /api/v1/sources/:id - Forget a source
	router.DELETE("/:id", Delete(deps))
}
