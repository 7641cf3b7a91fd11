package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSequence() Sequence {
	return Sequence{Segments: []Segment{
		{Start: 0.5, End: 1.5, Text: "hello", Words: []Word{{Start: 0.5, End: 1.5, Text: "hello", Confidence: 1}}},
		{Start: 1.5, End: 3.0, Text: "world", Words: []Word{{Start: 1.5, End: 2.0, Text: "wor", Confidence: 0.5}, {Start: 2.0, End: 3.0, Text: "ld", Confidence: 0.9}}},
	}}
}

func TestSequence_Helpers(t *testing.T) {
	seq := sampleSequence()

	assert.Equal(t, "hello world", seq.FullText())
	assert.Equal(t, 3, seq.WordCount())
	assert.InDelta(t, 2.5, seq.TotalDuration(), 1e-9)
	assert.False(t, seq.IsEmpty())
	assert.True(t, seq.IsOrdered())

	var empty Sequence
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, "", empty.FullText())
	assert.Zero(t, empty.TotalDuration())
}

func TestSequence_CloneIsDeep(t *testing.T) {
	seq := sampleSequence()
	clone := seq.Clone()

	clone.Segments[0].Text = "changed"
	clone.Segments[1].Words[0].Text = "changed"

	assert.Equal(t, "hello", seq.Segments[0].Text)
	assert.Equal(t, "wor", seq.Segments[1].Words[0].Text)
}

func TestSequence_Normalize(t *testing.T) {
	seq := Sequence{Segments: []Segment{
		{Start: 2.0, End: 3.0, Text: "c"},
		{Start: 0.0, End: 1.2, Text: "a"},
		{Start: 1.0, End: 2.5, Text: "b"},
		{Start: 5.0, End: 4.0, Text: "inverted"},
	}}
	require.False(t, seq.IsOrdered())

	got := seq.Normalize()

	require.Len(t, got.Segments, 3)
	assert.True(t, got.IsOrdered())
	assert.Equal(t, "a b c", got.FullText())
	assert.InDelta(t, 1.2, got.Segments[1].Start, 1e-9)
	assert.InDelta(t, 2.5, got.Segments[2].Start, 1e-9)
	// original untouched
	assert.Len(t, seq.Segments, 4)
}

func TestSourceID_RoundTrip(t *testing.T) {
	id, err := ParseSourceID(SourceID(42).String())
	require.NoError(t, err)
	assert.Equal(t, SourceID(42), id)

	_, err = ParseSourceID("nope")
	assert.Error(t, err)
}

func TestJobRecord_IsTerminal(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   bool
	}{
		{JobStatusPending, false},
		{JobStatusProcessing, false},
		{JobStatusCompleted, true},
		{JobStatusEmpty, true},
		{JobStatusFailed, true},
		{JobStatusCancelled, true},
		{JobStatusSuperseded, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			j := &JobRecord{Status: tt.status}
			assert.Equal(t, tt.want, j.IsTerminal())
		})
	}
}
