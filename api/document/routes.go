package document

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/api/types"
)

// RegisterRoutes registers document persistence routes
func RegisterRoutes(router *gin.RouterGroup, deps *types.Dependencies) {
	router.POST("/save", Save(deps))
	router.POST("/load", Load(deps))
}
