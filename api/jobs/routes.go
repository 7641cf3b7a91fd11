package jobs

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/api/types"
)

// RegisterRoutes registers job history routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("", List(deps))
	router.GET("/counts", Counts(deps))
	router.GET("/:run_id", Get(deps))
}
