package jobs

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/api/types"
	"github.com/killallgit/voxscript/internal/models"
	jobsService "github.com/killallgit/voxscript/internal/services/jobs"
	apperrors "github.com/killallgit/voxscript/pkg/errors"
)

const (
	defaultLimit = 20
	maxLimit     = 200
)

// List returns recent job history, optionally filtered by source_id
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := types.QueryLimit(c, defaultLimit, maxLimit)

		var (
			records []*models.JobRecord
			err     error
		)
		if raw := c.Query("source_id"); raw != "" {
			id, perr := models.ParseSourceID(raw)
			if perr != nil || id == 0 {
				types.SendBadRequest(c, "Invalid source_id")
				return
			}
			records, err = deps.JobHistory.ListBySource(c.Request.Context(), id, limit)
		} else {
			records, err = deps.JobHistory.ListRecent(c.Request.Context(), limit)
		}
		if err != nil {
			types.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeDatabase, "failed to list jobs"))
			return
		}

		types.SendSuccess(c, types.JobsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK, Message: "Jobs retrieved"},
			Jobs:         records,
			Count:        len(records),
		})
	}
}

// Get returns one job by run ID
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		record, err := deps.JobHistory.GetByRunID(c.Request.Context(), c.Param("run_id"))
		if err != nil {
			if errors.Is(err, jobsService.ErrJobNotFound) {
				types.SendNotFound(c, "Job not found")
				return
			}
			types.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeDatabase, "failed to get job"))
			return
		}
		types.SendSuccess(c, record)
	}
}

// Counts groups job history by status
func Counts(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := deps.JobHistory.CountByStatus(c.Request.Context())
		if err != nil {
			types.SendError(c, apperrors.Wrap(err, apperrors.ErrCodeDatabase, "failed to count jobs"))
			return
		}
		types.SendSuccess(c, types.JobCountsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK, Message: "Job counts retrieved"},
			Counts:       counts,
		})
	}
}
