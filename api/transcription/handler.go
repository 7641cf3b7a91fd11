package transcription

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/api/types"
	"github.com/killallgit/voxscript/internal/coordinator"
	apperrors "github.com/killallgit/voxscript/pkg/errors"
	"github.com/killallgit/voxscript/pkg/transcript"
)

// maxImportSize caps an uploaded transcript body
const maxImportSize = 8 << 20

// Trigger queues a transcription for a source, replacing any pending one
func Trigger(deps *types.Dependencies) gin.HandlerFunc {
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

		if _, err := deps.Coordinator.EnqueueTranscription(c.Request.Context(), src); err != nil {
			types.SendError(c, err)
			return
		}

		types.SendAccepted(c, types.EnqueueResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusQueued, Message: "Transcription queued"},
			SourceID:     id,
			Enqueued:     true,
		})
	}
}

// Get returns the transcription for a source. The format query selects
// text, json (the raw sequence), srt or vtt; the default is a summary.
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseSourceIDParam(c, "id")
		if !ok {
			return
		}

		var format transcript.Format
		if name := c.Query("format"); name != "" {
			f, err := transcript.ParseFormat(name)
			if err != nil {
				types.SendBadRequest(c, err.Error())
				return
			}
			format = f
		}

		seq, ok := deps.Coordinator.Snapshot().Sequence(id)
		if !ok {
			types.SendError(c, apperrors.NotFound("transcription", uint64(id)))
			return
		}

		switch format {
		case "":
			types.SendSuccess(c, types.NewTranscript(id, seq))
		case transcript.FormatText:
			c.String(http.StatusOK, seq.FullText())
		default:
			var buf bytes.Buffer
			if err := transcript.Render(&buf, seq, format); err != nil {
				types.SendError(c, err)
				return
			}
			c.Data(http.StatusOK, transcript.ContentType(format), buf.Bytes())
		}
	}
}

// Import replaces a source's transcription with an uploaded VTT, SRT or
// JSON document. Without a format query the body is sniffed.
func Import(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := types.ParseSourceIDParam(c, "id")
		if !ok {
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportSize+1))
		if err != nil {
			types.SendBadRequest(c, "Failed to read request body")
			return
		}
		if len(body) > maxImportSize {
			c.JSON(http.StatusRequestEntityTooLarge, types.ErrorResponse{
				Status:  types.StatusError,
				Message: "Transcript too large",
			})
			return
		}

		content := string(body)
		format := transcript.DetectFormat(content)
		if name := c.Query("format"); name != "" {
			if format, err = transcript.ParseFormat(name); err != nil {
				types.SendBadRequest(c, err.Error())
				return
			}
		}

		seq, err := transcript.Parse(content, format)
		if err != nil {
			if errors.Is(err, transcript.ErrUnsupportedFormat) {
				types.SendBadRequest(c, err.Error())
				return
			}
			types.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeInvalidInput, "invalid transcript"))
			return
		}

		if err := deps.Coordinator.ImportTranscription(id, seq); err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.NewTranscript(id, seq.Normalize()))
	}
}
