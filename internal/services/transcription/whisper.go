package transcription

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/killallgit/voxscript/internal/host"
	"github.com/killallgit/voxscript/internal/resample"
	"github.com/rs/zerolog"
)

// WhisperConfig configures the whisper.cpp command line engine
type WhisperConfig struct {
	CLIPath   string
	ModelPath string
	Language  string
	Threads   int
	TempDir   string
}

// WhisperCLI is an Engine that shells out to whisper.cpp's whisper-cli
type WhisperCLI struct {
	cfg    WhisperConfig
	binary string
	logger zerolog.Logger
}

// NewWhisperCLI resolves the binary and model. A missing binary or model
// is an error; there is no placeholder engine.
func NewWhisperCLI(cfg WhisperConfig, logger zerolog.Logger) (*WhisperCLI, error) {
	if cfg.CLIPath == "" {
		cfg.CLIPath = "whisper-cli"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Threads <= 0 {
		cfg.Threads = 4
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}

	binary, err := exec.LookPath(cfg.CLIPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s not found: %v", ErrEngineUnavailable, cfg.CLIPath, err)
	}
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: model %q: %v", ErrEngineUnavailable, cfg.ModelPath, err)
	}

	return &WhisperCLI{cfg: cfg, binary: binary, logger: logger}, nil
}

// Transcribe implements Engine
func (w *WhisperCLI) Transcribe(ctx context.Context, samples []float32) ([]Segment, error) {
	input := filepath.Join(w.cfg.TempDir, "whisper_"+uuid.NewString()+".wav")
	if err := host.WriteWAVFile(input, resample.TargetRate, [][]float32{samples}); err != nil {
		return nil, fmt.Errorf("write whisper input: %w", err)
	}
	defer os.Remove(input)

	args := []string{
		"-m", w.cfg.ModelPath,
		"-f", input,
		"-l", w.cfg.Language,
		"-t", strconv.Itoa(w.cfg.Threads),
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, w.binary, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	w.logger.Debug().Strs("args", args).Int("samples", len(samples)).Msg("Running whisper-cli")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("whisper-cli failed: %w\nOutput: %s", err, stderr.String())
	}

	return ParseWhisperOutput(&stdout)
}

var whisperLine = regexp.MustCompile(`^\[(\d+):(\d{2}):(\d{2}(?:\.\d+)?)\s*-->\s*(\d+):(\d{2}):(\d{2}(?:\.\d+)?)\]\s?(.*)$`)

// ParseWhisperOutput reads whisper-cli timestamped lines. Lines that are
// not segment lines are skipped.
func ParseWhisperOutput(r io.Reader) ([]Segment, error) {
	var segments []Segment
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		m := whisperLine.FindStringSubmatch(strings.TrimSpace(scanner.Text()))
		if m == nil {
			continue
		}
		segments = append(segments, Segment{
			Start: clockSeconds(m[1], m[2], m[3]),
			End:   clockSeconds(m[4], m[5], m[6]),
			Text:  m[7],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read whisper output: %w", err)
	}
	return segments, nil
}

func clockSeconds(h, m, s string) float64 {
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	secs, _ := strconv.ParseFloat(s, 64)
	return float64(hours*3600+minutes*60) + secs
}
