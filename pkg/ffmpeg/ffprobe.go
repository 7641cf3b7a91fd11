package ffmpeg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
)

// AudioMetadata describes the first audio stream of a file
type AudioMetadata struct {
	Duration   float64 `json:"duration"`
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Format     string  `json:"format"`
	Codec      string  `json:"codec"`
	Title      string  `json:"title,omitempty"`
}

// ffprobeOutput represents the JSON structure returned by ffprobe
type ffprobeOutput struct {
	Format struct {
		Duration   string            `json:"duration"`
		FormatName string            `json:"format_name"`
		Tags       map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		CodecName  string `json:"codec_name"`
		SampleRate string `json:"sample_rate"`
		Channels   int    `json:"channels"`
		Duration   string `json:"duration"`
	} `json:"streams"`
}

// Probe reads stream metadata with ffprobe
func (f *FFmpeg) Probe(ctx context.Context, filePath string) (*AudioMetadata, error) {
	if _, err := exec.LookPath(f.ffprobePath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrFFprobeNotFound, f.ffprobePath)
	}

	args := []string{
		"-v", "quiet",
		"-show_format",
		"-show_streams",
		"-select_streams", "a:0",
		"-of", "json",
		filePath,
	}

	cmd := exec.CommandContext(ctx, f.ffprobePath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, NewProcessingError("metadata_extraction", filePath, err, stderr.String())
	}
	return parseMetadata(stdout.Bytes(), filePath)
}

// parseMetadata converts ffprobe JSON into AudioMetadata. Output without
// an audio stream is an invalid audio file.
func parseMetadata(data []byte, filePath string) (*AudioMetadata, error) {
	var output ffprobeOutput
	if err := json.Unmarshal(data, &output); err != nil {
		return nil, NewProcessingError("metadata_parsing", filePath, err, "")
	}

	meta := &AudioMetadata{Format: output.Format.FormatName}
	if d, err := strconv.ParseFloat(output.Format.Duration, 64); err == nil {
		meta.Duration = d
	}
	if tags := output.Format.Tags; tags != nil {
		meta.Title = tags["title"]
	}

	found := false
	for _, stream := range output.Streams {
		if stream.CodecType != "audio" {
			continue
		}
		found = true
		meta.Codec = stream.CodecName
		meta.Channels = stream.Channels
		if rate, err := strconv.Atoi(stream.SampleRate); err == nil {
			meta.SampleRate = rate
		}
		if meta.Duration == 0 {
			if d, err := strconv.ParseFloat(stream.Duration, 64); err == nil {
				meta.Duration = d
			}
		}
		break
	}

	if !found || meta.Channels <= 0 {
		return nil, NewProcessingError("metadata_validation", filePath, ErrInvalidAudioFile, "")
	}
	return meta, nil
}
