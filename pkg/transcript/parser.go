// Package transcript converts sequences to and from subtitle formats.
package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/killallgit/voxscript/internal/models"
)

// Format is a transcript serialization
type Format string

const (
	FormatVTT  Format = "vtt"
	FormatSRT  Format = "srt"
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ErrUnsupportedFormat is returned for formats a function cannot handle
var ErrUnsupportedFormat = errors.New("unsupported transcript format")

// ParseFormat maps a user supplied name onto a Format
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatVTT, FormatSRT, FormatJSON, FormatText:
		return f, nil
	case "webvtt":
		return FormatVTT, nil
	case "txt", "plain":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
}

// timing lines: "00:00:01.000 --> 00:00:05.000" (VTT, hours optional) or
// "00:00:01,000 --> 00:00:05,000" (SRT)
var (
	cueTiming   = regexp.MustCompile(`^((?:\d+:)?\d{2}:\d{2}[.,]\d{3})\s*-->\s*((?:\d+:)?\d{2}:\d{2}[.,]\d{3})`)
	markupTag   = regexp.MustCompile(`<[^>]*>`)
	errNoTiming = errors.New("no timed cues found")
)

// Parse reads timed content into a normalized sequence. Plain text has no
// timing and cannot be parsed.
func Parse(content string, format Format) (models.Sequence, error) {
	switch format {
	case FormatVTT:
		return parseCues(content, true)
	case FormatSRT:
		return parseCues(content, false)
	case FormatJSON:
		return parseJSON(content)
	default:
		return models.Sequence{}, fmt.Errorf("%w: cannot parse %q", ErrUnsupportedFormat, format)
	}
}

// DetectFormat guesses the format of content
func DetectFormat(content string) Format {
	trimmed := strings.TrimSpace(strings.TrimPrefix(content, "\ufeff"))
	switch {
	case strings.HasPrefix(trimmed, "WEBVTT"):
		return FormatVTT
	case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["):
		return FormatJSON
	case strings.Contains(trimmed, "-->"):
		return FormatSRT
	}
	return FormatText
}

// parseCues handles both VTT and SRT. A cue is a timing line followed by
// text lines up to the next blank line.
func parseCues(content string, allowEmpty bool) (models.Sequence, error) {
	var (
		seq     models.Sequence
		current *models.Segment
		text    []string
	)

	flush := func() {
		if current != nil && len(text) > 0 {
			current.Text = strings.Join(text, " ")
			seq.Segments = append(seq.Segments, *current)
		}
		current = nil
		text = text[:0]
	}

	content = strings.ReplaceAll(strings.TrimPrefix(content, "\ufeff"), "\r\n", "\n")
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)

		if line == "" {
			flush()
			continue
		}
		if m := cueTiming.FindStringSubmatch(line); m != nil {
			flush()
			start, err := parseTimestamp(m[1])
			if err != nil {
				return models.Sequence{}, err
			}
			end, err := parseTimestamp(m[2])
			if err != nil {
				return models.Sequence{}, err
			}
			current = &models.Segment{Start: start, End: end}
			continue
		}
		if current == nil {
			// headers, NOTE blocks, cue identifiers and SRT indices
			continue
		}
		if clean := strings.TrimSpace(markupTag.ReplaceAllString(line, "")); clean != "" {
			text = append(text, clean)
		}
	}
	flush()

	if len(seq.Segments) == 0 && !allowEmpty {
		return models.Sequence{}, errNoTiming
	}
	return withWords(seq).Normalize(), nil
}

// jsonSegment accepts our own output and the common podcast transcript
// field names
type jsonSegment struct {
	Start     *float64      `json:"start"`
	StartTime *float64      `json:"startTime"`
	End       *float64      `json:"end"`
	EndTime   *float64      `json:"endTime"`
	Text      string        `json:"text"`
	Body      string        `json:"body"`
	Words     []models.Word `json:"words"`
}

func parseJSON(content string) (models.Sequence, error) {
	var segments []jsonSegment
	if err := json.Unmarshal([]byte(content), &segments); err != nil {
		var obj struct {
			Segments []jsonSegment `json:"segments"`
		}
		if err := json.Unmarshal([]byte(content), &obj); err != nil {
			return models.Sequence{}, fmt.Errorf("failed to parse JSON transcript: %w", err)
		}
		segments = obj.Segments
	}

	var seq models.Sequence
	for _, s := range segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			text = strings.TrimSpace(s.Body)
		}
		if text == "" {
			continue
		}
		seq.Segments = append(seq.Segments, models.Segment{
			Start: firstOf(s.Start, s.StartTime),
			End:   firstOf(s.End, s.EndTime),
			Text:  text,
			Words: s.Words,
		})
	}
	return withWords(seq).Normalize(), nil
}

func firstOf(values ...*float64) float64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

// withWords gives segments without word timing a single segment-wide word
func withWords(seq models.Sequence) models.Sequence {
	for i := range seq.Segments {
		seg := &seq.Segments[i]
		if len(seg.Words) == 0 {
			seg.Words = []models.Word{{Start: seg.Start, End: seg.End, Text: seg.Text, Confidence: 1}}
		}
	}
	return seq
}

// parseTimestamp reads [HH:]MM:SS.mmm or [HH:]MM:SS,mmm into seconds
func parseTimestamp(ts string) (float64, error) {
	ts = strings.Replace(ts, ",", ".", 1)
	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp: %s", ts)
	}

	var total float64
	for _, p := range parts[:len(parts)-1] {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("invalid timestamp: %s", ts)
		}
		total = total*60 + float64(n)
	}
	secs, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp: %s", ts)
	}
	return total*60 + secs, nil
}
