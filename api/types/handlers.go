package types

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/internal/models"
	apperrors "github.com/killallgit/voxscript/pkg/errors"
)

// Handler utility functions to reduce duplication across handlers

// ParseSourceIDParam extracts and parses a URL parameter as a SourceID
// Returns the parsed value and sends error response if parsing fails
func ParseSourceIDParam(c *gin.Context, paramName string) (models.SourceID, bool) {
	id, err := models.ParseSourceID(c.Param(paramName))
	if err != nil || id == 0 {
		SendBadRequest(c, "Invalid "+paramName)
		return 0, false
	}
	return id, true
}

// QueryLimit reads the "limit" query parameter, clamped to [1, max]
func QueryLimit(c *gin.Context, def, max int) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// BindJSONOrError attempts to bind JSON request body to target struct
// Returns false and sends error response if binding fails
func BindJSONOrError(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Status:  StatusError,
			Message: "Invalid request body",
			Details: err.Error(),
		})
		return false
	}
	return true
}

// SendError renders err, using its AppError code and HTTP status when it has one
func SendError(c *gin.Context, err error) {
	c.JSON(apperrors.GetHTTPCode(err), ErrorResponse{
		Status:  StatusError,
		Code:    string(apperrors.GetCode(err)),
		Message: err.Error(),
	})
}

// SendBadRequest sends a standardized bad request response
func SendBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Status:  StatusError,
		Code:    string(apperrors.ErrCodeInvalidInput),
		Message: message,
	})
}

// SendNotFound sends a standardized not found response
func SendNotFound(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, ErrorResponse{
		Status:  StatusError,
		Code:    string(apperrors.ErrCodeNotFound),
		Message: message,
	})
}

// SendServiceUnavailable is used when an optional component is not configured
func SendServiceUnavailable(c *gin.Context, message string) {
	c.JSON(http.StatusServiceUnavailable, ErrorResponse{
		Status:  StatusError,
		Code:    string(apperrors.ErrCodeNotReady),
		Message: message,
	})
}

// SendSuccess sends a standardized success response with data
func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendCreated sends a standardized created response with data
func SendCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// SendAccepted is used when work was queued
func SendAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, data)
}
