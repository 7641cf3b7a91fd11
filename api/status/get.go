package status

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/api/types"
)

// Get returns the one-line pipeline status plus queue and cache counters.
// Reading it consumes the document dirty flag.
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		coord := deps.Coordinator
		c.JSON(http.StatusOK, types.StatusResponse{
			BaseResponse: types.BaseResponse{
				Status:  types.StatusOK,
				Message: coord.Status(),
			},
			Ready: coord.IsReady(),
			Dirty: coord.ConsumeDirty(),
			Queue: coord.QueueStats(),
			Cache: coord.CacheStats(),
		})
	}
}

// GetSnapshot returns every transcription in the document
func GetSnapshot(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := deps.Coordinator.Snapshot()

		transcripts := make([]types.Transcript, 0, snap.Len())
		for _, id := range snap.IDs() {
			seq, _ := snap.Sequence(id)
			transcripts = append(transcripts, types.NewTranscript(id, seq))
		}

		c.JSON(http.StatusOK, types.SnapshotResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK, Message: "Snapshot retrieved"},
			Transcripts:  transcripts,
			Count:        len(transcripts),
		})
	}
}
