package models

import (
	"sort"
	"strings"
)

// Word is a timestamped sub-segment token
type Word struct {
	Start      float64 `json:"s"`
	End        float64 `json:"e"`
	Text       string  `json:"t"`
	Confidence float32 `json:"c"`
}

// Segment is one span of recognised speech, times in seconds
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

// Sequence is the ordered transcription of one audio source.
// An empty sequence means "no transcription yet".
type Sequence struct {
	Segments []Segment `json:"segments"`
}

// IsEmpty reports whether the sequence holds no segments
func (s Sequence) IsEmpty() bool {
	return len(s.Segments) == 0
}

// FullText joins segment texts with a single space
func (s Sequence) FullText() string {
	parts := make([]string, len(s.Segments))
	for i, seg := range s.Segments {
		parts[i] = seg.Text
	}
	return strings.Join(parts, " ")
}

// WordCount sums words across segments
func (s Sequence) WordCount() int {
	n := 0
	for _, seg := range s.Segments {
		n += len(seg.Words)
	}
	return n
}

// TotalDuration is the span from the first segment start to the last segment end
func (s Sequence) TotalDuration() float64 {
	if len(s.Segments) == 0 {
		return 0
	}
	return s.Segments[len(s.Segments)-1].End - s.Segments[0].Start
}

// Clone returns a deep copy that shares no slices with s
func (s Sequence) Clone() Sequence {
	if s.Segments == nil {
		return Sequence{}
	}
	out := Sequence{Segments: make([]Segment, len(s.Segments))}
	for i, seg := range s.Segments {
		out.Segments[i] = seg
		if seg.Words != nil {
			out.Segments[i].Words = append([]Word(nil), seg.Words...)
		}
	}
	return out
}

// IsOrdered reports whether segments are time-ordered and non-overlapping
func (s Sequence) IsOrdered() bool {
	for i, seg := range s.Segments {
		if seg.End < seg.Start {
			return false
		}
		if i > 0 && seg.Start < s.Segments[i-1].End {
			return false
		}
	}
	return true
}

// Normalize sorts segments by start time, drops inverted spans and clamps
// overlaps so the result satisfies IsOrdered.
func (s Sequence) Normalize() Sequence {
	out := s.Clone()
	kept := out.Segments[:0]
	for _, seg := range out.Segments {
		if seg.End >= seg.Start {
			kept = append(kept, seg)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].Start < kept[j].Start })
	for i := 1; i < len(kept); i++ {
		if kept[i].Start < kept[i-1].End {
			kept[i].Start = kept[i-1].End
			if kept[i].End < kept[i].Start {
				kept[i].End = kept[i].Start
			}
		}
	}
	out.Segments = kept
	return out
}
