package sources

import (
	"errors"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/api/types"
	"github.com/killallgit/voxscript/internal/coordinator"
	"github.com/killallgit/voxscript/internal/host"
	"github.com/killallgit/voxscript/internal/services/loader"
	"github.com/killallgit/voxscript/pkg/download"
	apperrors "github.com/killallgit/voxscript/pkg/errors"
)

// List returns every registered source
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		infos := deps.Coordinator.Sources()
		types.SendSuccess(c, types.SourcesResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK, Message: "Sources retrieved"},
			Sources:      infos,
			Count:        len(infos),
		})
	}
}

// Add opens an audio file or URL as a source and optionally queues it for transcription
func Add(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.AddSourceRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		open := deps.Loader
		if open == nil {
			open = loader.New()
		}
		src, err := open.Open(c.Request.Context(), req.Path)
		if err != nil {
			switch {
			case errors.Is(err, os.ErrNotExist):
				types.SendNotFound(c, "Audio file not found")
			case errors.Is(err, host.ErrNotWAV), errors.Is(err, loader.ErrUnsupportedFormat):
				types.SendBadRequest(c, "Unsupported audio format: "+err.Error())
			case errors.Is(err, loader.ErrRemoteDisabled):
				types.SendBadRequest(c, "Remote sources are disabled")
			case errors.Is(err, download.ErrUnexpectedReply), errors.Is(err, download.ErrNotAudio), errors.Is(err, download.ErrTooLarge):
				types.SendBadRequest(c, "Remote audio could not be fetched: "+err.Error())
			default:
				types.SendError(c, err)
			}
			return
		}

		coord := deps.Coordinator
		id, err := coord.SourceAdded(c.Request.Context(), src)
		if err != nil {
			src.Close()
			types.SendError(c, err)
			return
		}

		message := "Source added"
		if req.Transcribe {
			enqueued, err := coord.RegionCreated(c.Request.Context(), src)
			switch {
			case err != nil:
				deps.Logger.Warn().Err(err).Stringer("source_id", id).Msg("Transcription not queued")
				message = "Source added, transcription not queued: " + err.Error()
			case enqueued:
				message = "Source added, transcription queued"
			}
		}

		info, _ := coord.Info(id)
		types.SendCreated(c, types.SourceResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK, Message: message},
			Source:       info,
		})
	}
}

// Get returns one source with its transcription
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseSourceIDParam(c, "id")
		if !ok {
			return
		}

		info, ok := deps.Coordinator.Info(id)
		if !ok {
			types.SendError(c, coordinator.ErrUnknownSource)
			return
		}

		resp := types.SourceResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK, Message: "Source retrieved"},
			Source:       info,
		}
		if seq, ok := deps.Coordinator.Snapshot().Sequence(id); ok {
			t := types.NewTranscript(id, seq)
			resp.Transcript = &t
		}
		types.SendSuccess(c, resp)
	}
}

// Delete removes a source, cancelling its pending work
func Delete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseSourceIDParam(c, "id")
		if !ok {
			return
		}

		src, ok := deps.Coordinator.Source(id)
		if !ok {
			types.SendError(c, apperrors.NotFound("source", uint64(id)))
			return
		}

		deps.Coordinator.RemoveByID(id)
		if closer, ok := src.(interface{ Close() }); ok {
			closer.Close()
		}

		types.SendSuccess(c, types.BaseResponse{Status: types.StatusOK, Message: "Source removed"})
	}
}
