package document

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/killallgit/voxscript/api/apitest"
	"github.com/killallgit/voxscript/api/types"
	"github.com/killallgit/voxscript/internal/coordinator"
	"github.com/killallgit/voxscript/internal/host"
	"github.com/killallgit/voxscript/internal/services/archive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveLoad_NoArchive(t *testing.T) {
	deps := apitest.NewDependencies(t, &apitest.Processor{Text: "x"})
	router := apitest.Router()
	RegisterRoutes(router.Group("/api/v1/document"), deps)

	for _, path := range []string{"/api/v1/document/save", "/api/v1/document/load"} {
		w := apitest.Do(router, http.MethodPost, path, "")
		assert.Equal(t, http.StatusInternalServerError, w.Code, path)

		var body types.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "PERSISTENCE_FAILED", body.Code)
	}
}

func TestSaveLoad(t *testing.T) {
	arc, err := archive.NewBadgerInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { arc.Close() })

	deps := apitest.NewDependencies(t, &apitest.Processor{Text: "archived"}, coordinator.WithArchive(arc, "session"))
	router := apitest.Router()
	RegisterRoutes(router.Group("/api/v1/document"), deps)

	w := apitest.Do(router, http.MethodPost, "/api/v1/document/load", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "nothing saved yet")

	_, err = deps.Coordinator.EnqueueTranscription(context.Background(), host.NewSineSource("a", 16000, 1, 1600, 200))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return deps.Coordinator.Snapshot().Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	w = apitest.Do(router, http.MethodPost, "/api/v1/document/save", "")
	require.Equal(t, http.StatusOK, w.Code)

	keys, err := arc.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"session"}, keys)

	w = apitest.Do(router, http.MethodPost, "/api/v1/document/load", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, deps.Coordinator.Snapshot().Len())
}
