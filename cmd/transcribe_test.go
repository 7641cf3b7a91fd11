package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/killallgit/voxscript/api/apitest"
	"github.com/killallgit/voxscript/internal/host"
	"github.com/killallgit/voxscript/internal/models"
	"github.com/killallgit/voxscript/internal/services/jobs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type silentProcessor struct{}

func (silentProcessor) Process(ctx context.Context, path string) (models.Sequence, error) {
	return models.Sequence{}, nil
}

type blockingProcessor struct{ release chan struct{} }

func (p blockingProcessor) Process(ctx context.Context, path string) (models.Sequence, error) {
	<-p.release
	return models.Sequence{}, nil
}

func TestAwaitTranscription(t *testing.T) {
	tests := []struct {
		name     string
		proc     jobs.Processor
		wantText string
		wantErr  string
	}{
		{name: "completes", proc: &apitest.Processor{Text: "hello there"}, wantText: "hello there"},
		{name: "silence", proc: silentProcessor{}},
		{name: "inference failure", proc: &apitest.Processor{Err: errors.New("model exploded")}, wantErr: "model exploded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := apitest.NewDependencies(t, tt.proc)
			src := host.NewSineSource("tone.wav", 48000, 2, 4800, 440)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			id, err := deps.Coordinator.SourceAdded(ctx, src)
			require.NoError(t, err)

			seq, err := awaitTranscription(ctx, deps.Coordinator, src, id, 10*time.Millisecond)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantText, seq.FullText())
		})
	}
}

func TestAwaitTranscription_Timeout(t *testing.T) {
	proc := blockingProcessor{release: make(chan struct{})}
	deps := apitest.NewDependencies(t, proc)
	t.Cleanup(func() { close(proc.release) })
	src := host.NewSineSource("tone.wav", 48000, 1, 4800, 440)

	id, err := deps.Coordinator.SourceAdded(context.Background(), src)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = awaitTranscription(ctx, deps.Coordinator, src, id, 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWriteTranscript(t *testing.T) {
	seq := models.Sequence{Segments: []models.Segment{
		{Start: 0, End: 1.5, Text: "hello"},
		{Start: 61.25, End: 62, Text: "world"},
	}}

	tests := []struct {
		name   string
		seq    models.Sequence
		format string
		want   string
	}{
		{"segments", seq, "segments", "[00:00.000 --> 00:01.500] hello\n[01:01.250 --> 01:02.000] world\n"},
		{"text", seq, "text", "hello world\n"},
		{"empty segments", models.Sequence{}, "segments", "(no speech detected)\n"},
		{"srt", seq, "srt", "1\n00:00:00,000 --> 00:00:01,500\nhello\n\n2\n00:01:01,250 --> 00:01:02,000\nworld\n\n"},
		{"vtt", seq, "vtt", "WEBVTT\n\n00:00:00.000 --> 00:00:01.500\nhello\n\n00:01:01.250 --> 00:01:02.000\nworld\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := new(bytes.Buffer)
			require.NoError(t, writeTranscript(buf, tt.seq, tt.format))
			assert.Equal(t, tt.want, buf.String())
		})
	}

	t.Run("json", func(t *testing.T) {
		buf := new(bytes.Buffer)
		require.NoError(t, writeTranscript(buf, seq, "json"))
		assert.Contains(t, buf.String(), `"text": "world"`)
		assert.Contains(t, buf.String(), `"start": 61.25`)
	})
}

func TestValidFormat(t *testing.T) {
	for _, f := range []string{"segments", "text", "json", "srt", "vtt"} {
		assert.True(t, validFormat(f), f)
	}
	assert.False(t, validFormat("docx"))
}

func TestTranscribeCommandRequiresFile(t *testing.T) {
	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"transcribe"})

	assert.Error(t, cmd.Execute())
}
