package regions

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/killallgit/voxscript/api/apitest"
	"github.com/killallgit/voxscript/api/types"
	"github.com/killallgit/voxscript/internal/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	deps := apitest.NewDependencies(t, &apitest.Processor{Text: "region"})
	router := apitest.Router()
	RegisterRoutes(router.Group("/api/v1/sources"), deps)

	w := apitest.Do(router, http.MethodPost, "/api/v1/sources/1/regions", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "unregistered source")

	id, err := deps.Coordinator.SourceAdded(context.Background(), host.NewSineSource("a", 16000, 1, 1600, 200))
	require.NoError(t, err)

	w = apitest.Do(router, http.MethodPost, "/api/v1/sources/1/regions", "")
	require.Equal(t, http.StatusAccepted, w.Code)
	var resp types.EnqueueResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Enqueued)
	assert.Equal(t, id, resp.SourceID)

	require.Eventually(t, func() bool {
		return deps.Coordinator.Snapshot().Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	w = apitest.Do(router, http.MethodPost, "/api/v1/sources/1/regions", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Enqueued, "already transcribed")
}
