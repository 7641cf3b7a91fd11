// Package ffmpeg decodes compressed audio into PCM WAV by shelling out to
// ffmpeg and ffprobe.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// Common errors
var (
	ErrFFmpegNotFound   = errors.New("ffmpeg binary not found")
	ErrFFprobeNotFound  = errors.New("ffprobe binary not found")
	ErrInvalidAudioFile = errors.New("invalid or unsupported audio file")
	ErrAudioTooLong     = errors.New("audio file exceeds maximum duration")
)

// ProcessingError represents a failed ffmpeg or ffprobe run
type ProcessingError struct {
	Operation string
	File      string
	Err       error
	Stderr    string
}

func (e *ProcessingError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("ffmpeg %s failed for %s: %v (stderr: %s)", e.Operation, e.File, e.Err, e.Stderr)
	}
	return fmt.Sprintf("ffmpeg %s failed for %s: %v", e.Operation, e.File, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// NewProcessingError creates a new ProcessingError
func NewProcessingError(operation, file string, err error, stderr string) *ProcessingError {
	return &ProcessingError{
		Operation: operation,
		File:      file,
		Err:       err,
		Stderr:    stderr,
	}
}

// FFmpeg wraps the ffmpeg and ffprobe binaries
type FFmpeg struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration
	maxDuration time.Duration
}

// New creates a new FFmpeg instance. A zero timeout means no limit.
func New(ffmpegPath, ffprobePath string, timeout time.Duration) *FFmpeg {
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		timeout:     timeout,
	}
}

// WithMaxDuration rejects inputs longer than d before decoding them
func (f *FFmpeg) WithMaxDuration(d time.Duration) *FFmpeg {
	f.maxDuration = d
	return f
}

// ValidateBinaries checks if ffmpeg and ffprobe are available
func (f *FFmpeg) ValidateBinaries() error {
	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, f.ffmpegPath)
	}
	if _, err := exec.LookPath(f.ffprobePath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFprobeNotFound, f.ffprobePath)
	}
	return nil
}

// ConvertToWAV decodes the first audio stream of input into a 16-bit PCM
// WAV at output. Sample rate and channel layout are kept as they are.
func (f *FFmpeg) ConvertToWAV(ctx context.Context, input, output string) error {
	if _, err := exec.LookPath(f.ffmpegPath); err != nil {
		return fmt.Errorf("%w: %s", ErrFFmpegNotFound, f.ffmpegPath)
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	meta, err := f.Probe(ctx, input)
	if err != nil {
		return err
	}
	if f.maxDuration > 0 && meta.Duration > f.maxDuration.Seconds() {
		return fmt.Errorf("%w: duration %.1fs exceeds limit %.1fs",
			ErrAudioTooLong, meta.Duration, f.maxDuration.Seconds())
	}

	args := []string{
		"-v", "error",
		"-nostdin",
		"-i", input,
		"-map", "0:a:0",
		"-vn",
		"-acodec", "pcm_s16le",
		"-f", "wav",
		"-y",
		output,
	}

	cmd := exec.CommandContext(ctx, f.ffmpegPath, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(output)
		if ctx.Err() != nil {
			return NewProcessingError("wav_conversion", input, ctx.Err(), stderr.String())
		}
		return NewProcessingError("wav_conversion", input, err, stderr.String())
	}
	return nil
}
