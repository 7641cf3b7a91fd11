package transcription

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/killallgit/voxscript/api/apitest"
	"github.com/killallgit/voxscript/api/types"
	"github.com/killallgit/voxscript/internal/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTriggerAndGet(t *testing.T) {
	deps := apitest.NewDependencies(t, &apitest.Processor{Text: "spoken words"})
	router := apitest.Router()
	RegisterRoutes(router.Group("/api/v1/sources"), deps)

	w := apitest.Do(router, http.MethodPost, "/api/v1/sources/1/transcribe", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, err := deps.Coordinator.SourceAdded(context.Background(), host.NewSineSource("a", 32000, 2, 3200, 200))
	require.NoError(t, err)

	w = apitest.Do(router, http.MethodGet, "/api/v1/sources/1/transcription", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "nothing transcribed yet")

	w = apitest.Do(router, http.MethodPost, "/api/v1/sources/1/transcribe", "")
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		return apitest.Do(router, http.MethodGet, "/api/v1/sources/1/transcription", "").Code == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	w = apitest.Do(router, http.MethodGet, "/api/v1/sources/1/transcription", "")
	var tr types.Transcript
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tr))
	assert.Equal(t, "spoken words", tr.Text)
	assert.Equal(t, 1, tr.Words)

	w = apitest.Do(router, http.MethodGet, "/api/v1/sources/1/transcription?format=text", "")
	assert.Equal(t, "spoken words", w.Body.String())

	w = apitest.Do(router, http.MethodGet, "/api/v1/sources/1/transcription?format=srt", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1\n00:00:00,000 --> 00:00:01,000\nspoken words\n\n", w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Type"), "application/x-subrip")

	w = apitest.Do(router, http.MethodGet, "/api/v1/sources/1/transcription?format=vtt", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\n"))

	w = apitest.Do(router, http.MethodGet, "/api/v1/sources/1/transcription?format=docx", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImport(t *testing.T) {
	const vtt = "WEBVTT\n\n00:00:02.000 --> 00:00:03.000\nsecond line\n\n00:00:00.000 --> 00:00:01.500\nfirst line\n"
	const srt = "1\n00:00:00,000 --> 00:00:01,000\nfrom srt\n"

	tests := []struct {
		name     string
		path     string
		body     string
		register bool
		wantCode int
		wantText string
	}{
		{"vtt sniffed", "/api/v1/sources/1/transcription", vtt, true, http.StatusOK, "first line second line"},
		{"srt explicit", "/api/v1/sources/1/transcription?format=srt", srt, true, http.StatusOK, "from srt"},
		{"json", "/api/v1/sources/1/transcription", `{"segments":[{"start":0,"end":1,"text":"from json"}]}`, true, http.StatusOK, "from json"},
		{"plain text rejected", "/api/v1/sources/1/transcription", "no timing here", true, http.StatusBadRequest, ""},
		{"unknown format", "/api/v1/sources/1/transcription?format=docx", vtt, true, http.StatusBadRequest, ""},
		{"malformed srt", "/api/v1/sources/1/transcription?format=srt", "garbage", true, http.StatusBadRequest, ""},
		{"empty vtt", "/api/v1/sources/1/transcription", "WEBVTT\n", true, http.StatusBadRequest, ""},
		{"unknown source", "/api/v1/sources/1/transcription", vtt, false, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proc := &apitest.Processor{Text: "from model"}
			deps := apitest.NewDependencies(t, proc)
			router := apitest.Router()
			RegisterRoutes(router.Group("/api/v1/sources"), deps)

			if tt.register {
				_, err := deps.Coordinator.SourceAdded(context.Background(), host.NewSineSource("a", 16000, 1, 1600, 200))
				require.NoError(t, err)
			}

			w := apitest.Do(router, http.MethodPut, tt.path, tt.body)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}

			var tr types.Transcript
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tr))
			assert.Equal(t, tt.wantText, tr.Text)

			w = apitest.Do(router, http.MethodGet, "/api/v1/sources/1/transcription?format=text", "")
			assert.Equal(t, tt.wantText, w.Body.String())
		})
	}
}

func TestTrigger_AccessUnavailable(t *testing.T) {
	deps := apitest.NewDependencies(t, &apitest.Processor{Err: errors.New("unused")})
	router := apitest.Router()
	RegisterRoutes(router.Group("/api/v1/sources"), deps)

	src := host.NewSineSource("locked", 16000, 1, 1600, 200)
	src.SetSampleAccess(false)
	_, err := deps.Coordinator.SourceAdded(context.Background(), src)
	require.NoError(t, err)

	w := apitest.Do(router, http.MethodPost, "/api/v1/sources/1/transcribe", "")
	assert.Equal(t, http.StatusPreconditionFailed, w.Code)

	var body types.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ACCESS_UNAVAILABLE", body.Code)
}
