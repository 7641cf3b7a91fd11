package sources

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/killallgit/voxscript/api/apitest"
	"github.com/killallgit/voxscript/api/types"
	"github.com/killallgit/voxscript/internal/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeWAV(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	samples := make([]float32, 8000)
	for i := range samples {
		samples[i] = float32(i%100) / 200
	}
	require.NoError(t, host.WriteWAVFile(path, 8000, [][]float32{samples}))
	return path
}

func TestAdd(t *testing.T) {
	wav := writeWAV(t, "speech.wav")
	notWAV := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(notWAV, []byte("hello"), 0o644))

	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{"valid wav", fmt.Sprintf(`{"path":%q}`, wav), http.StatusCreated},
		{"missing path", `{}`, http.StatusBadRequest},
		{"missing file", `{"path":"/nonexistent/file.wav"}`, http.StatusNotFound},
		{"not a wav", fmt.Sprintf(`{"path":%q}`, notWAV), http.StatusBadRequest},
		{"remote disabled", `{"path":"https://example.com/episode.mp3"}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := apitest.NewDependencies(t, &apitest.Processor{Text: "x"})
			router := apitest.Router()
			RegisterRoutes(router.Group("/api/v1/sources"), deps)

			w := apitest.Do(router, http.MethodPost, "/api/v1/sources", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)

			if tt.expectedStatus == http.StatusCreated {
				var resp types.SourceResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.EqualValues(t, 1, resp.Source.ID)
				assert.Equal(t, "speech.wav", resp.Source.Name)
				assert.Equal(t, float64(8000), resp.Source.SampleRate)
				assert.EqualValues(t, 8000, resp.Source.Frames)
			}
		})
	}
}

func TestAdd_WithTranscribe(t *testing.T) {
	deps := apitest.NewDependencies(t, &apitest.Processor{Text: "spoken"})
	router := apitest.Router()
	RegisterRoutes(router.Group("/api/v1/sources"), deps)

	body := fmt.Sprintf(`{"path":%q,"transcribe":true}`, writeWAV(t, "a.wav"))
	w := apitest.Do(router, http.MethodPost, "/api/v1/sources", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var created types.SourceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Source added, transcription queued", created.Message)

	require.Eventually(t, func() bool {
		w := apitest.Do(router, http.MethodGet, "/api/v1/sources/1", "")
		var resp types.SourceResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			return false
		}
		return resp.Transcript != nil && resp.Transcript.Text == "spoken"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestListGetDelete(t *testing.T) {
	deps := apitest.NewDependencies(t, &apitest.Processor{Text: "x"})
	router := apitest.Router()
	RegisterRoutes(router.Group("/api/v1/sources"), deps)

	for _, name := range []string{"one.wav", "two.wav"} {
		w := apitest.Do(router, http.MethodPost, "/api/v1/sources", fmt.Sprintf(`{"path":%q}`, writeWAV(t, name)))
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := apitest.Do(router, http.MethodGet, "/api/v1/sources", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list types.SourcesResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 2, list.Count)
	assert.Equal(t, "one.wav", list.Sources[0].Name)

	w = apitest.Do(router, http.MethodGet, "/api/v1/sources/2", "")
	require.Equal(t, http.StatusOK, w.Code)
	var one types.SourceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &one))
	assert.Equal(t, "two.wav", one.Source.Name)
	assert.Nil(t, one.Transcript)

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
	}{
		{"get unknown", http.MethodGet, "/api/v1/sources/99", http.StatusNotFound},
		{"get invalid", http.MethodGet, "/api/v1/sources/abc", http.StatusBadRequest},
		{"delete", http.MethodDelete, "/api/v1/sources/2", http.StatusOK},
		{"delete again", http.MethodDelete, "/api/v1/sources/2", http.StatusNotFound},
		{"get deleted", http.MethodGet, "/api/v1/sources/2", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := apitest.Do(router, tt.method, tt.path, "")
			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}

	assert.Len(t, deps.Coordinator.Sources(), 1)
}
