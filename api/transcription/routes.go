package transcription

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/api/types"
)

// RegisterRoutes registers transcription routes under /sources
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.POST("/:id/transcribe", Trigger(deps))
	router.GET("/:id/transcription", Get(deps))
	router.PUT("/:id/transcription", Import(deps))
}
