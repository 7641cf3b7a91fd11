package status

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

func TestGet(t *testing.T) {
	deps := apitest.NewDependencies(t, &apitest.Processor{Text: "hello"})
	router := apitest.Router()
	RegisterRoutes(router.Group("/api/v1"), deps)

	w := apitest.Do(router, http.MethodGet, "/api/v1/status", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp types.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Not ready", resp.Message)
	assert.False(t, resp.Ready)
	assert.False(t, resp.Dirty)

	_, err := deps.Coordinator.EnqueueTranscription(context.Background(), host.NewSineSource("a", 44100, 1, 4410, 220))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return deps.Coordinator.Status() == "Transcribed source 1 (1 words)"
	}, 2*time.Second, 10*time.Millisecond)

	w = apitest.Do(router, http.MethodGet, "/api/v1/status", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Ready)
	assert.True(t, resp.Dirty)
	assert.Equal(t, int64(1), resp.Queue.Processed)
	assert.Equal(t, 1, resp.Cache.Entries)

	w = apitest.Do(router, http.MethodGet, "/api/v1/status", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Dirty, "dirty flag is consumed by the previous poll")
}

func TestGetSnapshot(t *testing.T) {
	deps := apitest.NewDependencies(t, &apitest.Processor{Text: "snap"})
	router := apitest.Router()
	RegisterRoutes(router.Group("/api/v1"), deps)

	w := apitest.Do(router, http.MethodGet, "/api/v1/snapshot", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp types.SnapshotResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Zero(t, resp.Count)
	assert.NotNil(t, resp.Transcripts)

	id, err := deps.Coordinator.EnqueueTranscription(context.Background(), host.NewSineSource("a", 16000, 1, 1600, 220))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return deps.Coordinator.Snapshot().Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	w = apitest.Do(router, http.MethodGet, "/api/v1/snapshot", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, id, resp.Transcripts[0].SourceID)
	assert.Equal(t, "snap", resp.Transcripts[0].Text)
	assert.Equal(t, 1, resp.Transcripts[0].Words)
}
