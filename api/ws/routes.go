package ws

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/api/types"
)

// RegisterRoutes registers the status push socket
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.GET("/ws", Handler(deps))
}
