package document

import (
	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/api/types"
)

// Save persists the document to the configured archive
func Save(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Coordinator.Save(c.Request.Context()); err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.BaseResponse{Status: types.StatusOK, Message: "Document saved"})
	}
}

// Load replaces the document with the archived copy
func Load(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Coordinator.Load(c.Request.Context()); err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.BaseResponse{Status: types.StatusOK, Message: "Document loaded"})
	}
}
