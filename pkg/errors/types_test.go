package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := New(ErrCodeNotFound, "source not found")
	assert.Equal(t, "NOT_FOUND: source not found", err.Error())

	wrapped := Wrap(stderrors.New("disk full"), ErrCodeExtraction, "audio extraction failed")
	assert.Equal(t, "EXTRACTION_FAILED: audio extraction failed (caused by: disk full)", wrapped.Error())
}

func TestIs_ThroughWrapping(t *testing.T) {
	base := InferenceError(7, stderrors.New("model missing"))
	chained := fmt.Errorf("processing job: %w", base)

	assert.True(t, Is(chained, ErrCodeInference))
	assert.False(t, Is(chained, ErrCodeExtraction))
	assert.Equal(t, ErrCodeInference, GetCode(chained))
	assert.Equal(t, uint64(7), base.Details["source_id"])
}

func TestGetHTTPCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: NotFound("source", 3), want: http.StatusNotFound},
		{name: "validation", err: ValidationError("path", "required"), want: http.StatusBadRequest},
		{name: "not ready", err: New(ErrCodeNotReady, "warming up"), want: http.StatusServiceUnavailable},
		{name: "access unavailable", err: New(ErrCodeAccessUnavailable, "no samples"), want: http.StatusPreconditionFailed},
		{name: "persistence", err: PersistenceError("load", stderrors.New("bad blob")), want: http.StatusInternalServerError},
		{name: "plain error", err: stderrors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetHTTPCode(tt.err))
		})
	}
}

func TestGetCode_Plain(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, GetCode(stderrors.New("boom")))
}
