// Package apitest builds handler dependencies backed by a real pipeline
// and a scripted processor, for use in handler tests.
package apitest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/killallgit/voxscript/api/types"
	"github.com/killallgit/voxscript/internal/coordinator"
	"github.com/killallgit/voxscript/internal/models"
	"github.com/killallgit/voxscript/internal/services/audiocache"
	"github.com/killallgit/voxscript/internal/services/document"
	"github.com/killallgit/voxscript/internal/services/extraction"
	"github.com/killallgit/voxscript/internal/services/jobs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// Processor answers every job with Text, or with Err when set
type Processor struct {
	mu   sync.Mutex
	Text string
	Err  error
}

// Process implements jobs.Processor
func (p *Processor) Process(ctx context.Context, path string) (models.Sequence, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return models.Sequence{}, p.Err
	}
	return models.Sequence{Segments: []models.Segment{{
		Start: 0, End: 1, Text: p.Text,
		Words: []models.Word{{Start: 0, End: 1, Text: p.Text, Confidence: 1}},
	}}}, nil
}

// NewDependencies wires a coordinator over temp storage under t.TempDir
func NewDependencies(t *testing.T, proc jobs.Processor, opts ...coordinator.Option) *types.Dependencies {
	t.Helper()
	storage, err := extraction.NewTempStorage(t.TempDir(), "voxscript_")
	require.NoError(t, err)

	cache := audiocache.NewService()
	coord, err := coordinator.New(coordinator.Deps{
		Store:      document.NewStore(),
		Cache:      cache,
		Extractor:  extraction.NewExtractor(storage, extraction.WithCache(cache)),
		TempFiles:  storage,
		Processors: func() (jobs.Processor, error) { return proc, nil },
	}, append([]coordinator.Option{coordinator.WithShutdownTimeout(time.Second)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { coord.Close() })

	return &types.Dependencies{Coordinator: coord, Logger: zerolog.Nop(), Version: "test"}
}

// Do performs a request against router and returns the recorder
func Do(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// Router returns a test-mode engine
func Router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}
