package transcript

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/killallgit/voxscript/internal/models"
)

// ContentType returns the MIME type for format
func ContentType(format Format) string {
	switch format {
	case FormatVTT:
		return "text/vtt; charset=utf-8"
	case FormatSRT:
		return "application/x-subrip; charset=utf-8"
	case FormatJSON:
		return "application/json; charset=utf-8"
	}
	return "text/plain; charset=utf-8"
}

// Render writes seq to w in format
func Render(w io.Writer, seq models.Sequence, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(seq)
	case FormatText:
		_, err := fmt.Fprintln(w, seq.FullText())
		return err
	case FormatVTT, FormatSRT:
	default:
		return fmt.Errorf("%w: cannot render %q", ErrUnsupportedFormat, format)
	}

	bw := bufio.NewWriter(w)
	if format == FormatVTT {
		fmt.Fprint(bw, "WEBVTT\n\n")
	}
	for i, seg := range seq.Segments {
		if format == FormatSRT {
			fmt.Fprintf(bw, "%d\n", i+1)
		}
		fmt.Fprintf(bw, "%s --> %s\n%s\n\n", timestamp(seg.Start, format), timestamp(seg.End, format), seg.Text)
	}
	return bw.Flush()
}

// timestamp formats seconds as HH:MM:SS.mmm, with a comma for SRT
func timestamp(seconds float64, format Format) string {
	ms := int64(math.Round(math.Max(seconds, 0) * 1000))
	h := ms / 3_600_000
	m := ms / 60_000 % 60
	s := ms / 1000 % 60
	sep := "."
	if format == FormatSRT {
		sep = ","
	}
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", h, m, s, sep, ms%1000)
}
