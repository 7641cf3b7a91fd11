package ffmpeg

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/killallgit/voxscript/internal/host"
)

func TestNew(t *testing.T) {
	ffmpeg := New("ffmpeg", "ffprobe", 30*time.Second)
	if ffmpeg.ffmpegPath != "ffmpeg" {
		t.Errorf("Expected ffmpegPath to be 'ffmpeg', got %s", ffmpeg.ffmpegPath)
	}
	if ffmpeg.ffprobePath != "ffprobe" {
		t.Errorf("Expected ffprobePath to be 'ffprobe', got %s", ffmpeg.ffprobePath)
	}
	if ffmpeg.timeout != 30*time.Second {
		t.Errorf("Expected timeout to be 30s, got %v", ffmpeg.timeout)
	}
	if ffmpeg.WithMaxDuration(time.Hour).maxDuration != time.Hour {
		t.Errorf("Expected maxDuration to be 1h, got %v", ffmpeg.maxDuration)
	}
}

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name       string
		json       string
		wantErr    bool
		duration   float64
		sampleRate int
		channels   int
		codec      string
	}{
		{
			name: "mp3 with format duration",
			json: `{"format":{"duration":"5.016","format_name":"mp3","tags":{"title":"Clip"}},
				"streams":[{"codec_type":"audio","codec_name":"mp3","sample_rate":"44100","channels":2}]}`,
			duration:   5.016,
			sampleRate: 44100,
			channels:   2,
			codec:      "mp3",
		},
		{
			name: "stream duration fallback",
			json: `{"format":{"format_name":"ogg"},
				"streams":[{"codec_type":"audio","codec_name":"vorbis","sample_rate":"48000","channels":1,"duration":"12.5"}]}`,
			duration:   12.5,
			sampleRate: 48000,
			channels:   1,
			codec:      "vorbis",
		},
		{
			name:    "no audio stream",
			json:    `{"format":{"duration":"3.0","format_name":"mov"},"streams":[{"codec_type":"video","codec_name":"h264"}]}`,
			wantErr: true,
		},
		{
			name:    "garbage",
			json:    `not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := parseMetadata([]byte(tt.json), "in.audio")
			if tt.wantErr {
				var procErr *ProcessingError
				if !errors.As(err, &procErr) {
					t.Fatalf("Expected ProcessingError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if meta.Duration != tt.duration {
				t.Errorf("Expected duration %v, got %v", tt.duration, meta.Duration)
			}
			if meta.SampleRate != tt.sampleRate {
				t.Errorf("Expected sample rate %d, got %d", tt.sampleRate, meta.SampleRate)
			}
			if meta.Channels != tt.channels {
				t.Errorf("Expected %d channels, got %d", tt.channels, meta.Channels)
			}
			if meta.Codec != tt.codec {
				t.Errorf("Expected codec %s, got %s", tt.codec, meta.Codec)
			}
		})
	}
}

func TestProcessingError(t *testing.T) {
	cause := errors.New("exit status 1")
	err := NewProcessingError("wav_conversion", "a.mp3", cause, "bad header")

	if !errors.Is(err, cause) {
		t.Error("Expected ProcessingError to unwrap to its cause")
	}
	want := "ffmpeg wav_conversion failed for a.mp3: exit status 1 (stderr: bad header)"
	if err.Error() != want {
		t.Errorf("Expected %q, got %q", want, err.Error())
	}
	if got := NewProcessingError("probe", "a.mp3", cause, "").Error(); got != "ffmpeg probe failed for a.mp3: exit status 1" {
		t.Errorf("Unexpected message without stderr: %q", got)
	}
}

func TestMissingBinaries(t *testing.T) {
	ffmpeg := New("/nonexistent/ffmpeg", "/nonexistent/ffprobe", time.Second)

	if err := ffmpeg.ValidateBinaries(); !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("Expected ErrFFmpegNotFound, got %v", err)
	}
	if err := ffmpeg.ConvertToWAV(context.Background(), "in.mp3", "out.wav"); !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("Expected ErrFFmpegNotFound, got %v", err)
	}
	if _, err := ffmpeg.Probe(context.Background(), "in.mp3"); !errors.Is(err, ErrFFprobeNotFound) {
		t.Errorf("Expected ErrFFprobeNotFound, got %v", err)
	}
}

// Integration test - only runs if ffmpeg/ffprobe are available
func TestConvertToWAV(t *testing.T) {
	ffmpeg := New("ffmpeg", "ffprobe", 30*time.Second)
	if err := ffmpeg.ValidateBinaries(); err != nil {
		t.Skipf("FFmpeg binaries not available: %v", err)
	}

	dir := t.TempDir()
	input := filepath.Join(dir, "in.wav")
	samples := make([]float32, 22050)
	for i := range samples {
		samples[i] = float32(i%50) / 100
	}
	if err := host.WriteWAVFile(input, 22050, [][]float32{samples, samples}); err != nil {
		t.Fatalf("Failed to write input: %v", err)
	}

	output := filepath.Join(dir, "out.wav")
	if err := ffmpeg.ConvertToWAV(context.Background(), input, output); err != nil {
		t.Fatalf("ConvertToWAV failed: %v", err)
	}

	pcm, err := host.DecodeWAVFile(output)
	if err != nil {
		t.Fatalf("Failed to decode output: %v", err)
	}
	if pcm.SampleRate != 22050 || len(pcm.Channels) != 2 || pcm.Frames() != len(samples) {
		t.Errorf("Unexpected output layout: rate=%d channels=%d frames=%d", pcm.SampleRate, len(pcm.Channels), pcm.Frames())
	}

	short := New("ffmpeg", "ffprobe", 30*time.Second).WithMaxDuration(100 * time.Millisecond)
	if err := short.ConvertToWAV(context.Background(), input, filepath.Join(dir, "short.wav")); !errors.Is(err, ErrAudioTooLong) {
		t.Errorf("Expected ErrAudioTooLong, got %v", err)
	}
}
