package regions

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/api/types"
	"github.com/killallgit/voxscript/internal/coordinator"
)

// Create signals that a region was placed on a source. Transcription is
// queued only if the source has no words yet.
func Create(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseSourceIDParam(c, "id")
		if !ok {
			return
		}

		src, ok := deps.Coordinator.Source(id)
		if !ok {
			types.SendError(c, coordinator.ErrUnknownSource)
			return
		}

		enqueued, err := deps.Coordinator.RegionCreated(c.Request.Context(), src)
		if err != nil {
			types.SendError(c, err)
			return
		}

		resp := types.EnqueueResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK, Message: "Source already transcribed"},
			SourceID:     id,
			Enqueued:     enqueued,
		}
		if enqueued {
			resp.Status = types.StatusQueued
			resp.Message = "Transcription queued"
			c.JSON(http.StatusAccepted, resp)
			return
		}
		c.JSON(http.StatusOK, resp)
	}
}
