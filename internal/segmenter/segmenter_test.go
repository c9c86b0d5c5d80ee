// Package segmenter_test tests story segmentation.
package segmenter_test

import (
	"strings"
	"testing"

	"github.com/book-expert/narration-service/internal/segmenter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment_EmptyInput(t *testing.T) {
	t.Parallel()

	assert.Empty(t, segmenter.Segment("", segmenter.DefaultOptions()))
	assert.Empty(t, segmenter.Segment("   \n\t ", segmenter.DefaultOptions()))
}

func TestSegment_FoxStory(t *testing.T) {
	t.Parallel()

	drafts := segmenter.Segment(
		"The fox ran. It jumped high! Did it win?",
		segmenter.DefaultOptions(),
	)

	require.Len(t, drafts, 2)
	assert.Equal(t, "The fox ran. It jumped high!", drafts[0].SegmentText)
	assert.Equal(t, "Did it win?", drafts[1].SegmentText)
	assert.NotEqual(t, drafts[0].PauseMS, drafts[1].PauseMS)
}

func TestSegment_PausesWithinRange(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("One sentence here. ", 25)
	opts := segmenter.DefaultOptions()

	drafts := segmenter.Segment(text, opts)

	require.Len(t, drafts, 13)

	for _, draft := range drafts {
		assert.GreaterOrEqual(t, draft.PauseMS, opts.MinPauseMS)
		assert.LessOrEqual(t, draft.PauseMS, opts.MaxPauseMS)
	}
}

func TestSegment_Deterministic(t *testing.T) {
	t.Parallel()

	text := "A tale begins. The hero wakes! Where am I? Nobody knows. The end"

	first := segmenter.Segment(text, segmenter.DefaultOptions())
	second := segmenter.Segment(text, segmenter.DefaultOptions())

	assert.Equal(t, first, second)
}

func TestSegment_ReconstructsOriginalSentences(t *testing.T) {
	t.Parallel()

	text := "A tale   begins. The hero\nwakes! Where am I? Nobody knows."
	normalized := strings.Join(strings.Fields(text), " ")

	drafts := segmenter.Segment(text, segmenter.DefaultOptions())

	parts := make([]string, 0, len(drafts))
	for _, draft := range drafts {
		parts = append(parts, draft.SegmentText)
	}

	assert.Equal(t, normalized, strings.Join(parts, " "))
}

func TestSegment_KeepsUnterminatedTail(t *testing.T) {
	t.Parallel()

	drafts := segmenter.Segment("First one. Second one! And then", segmenter.DefaultOptions())

	require.Len(t, drafts, 2)
	assert.Equal(t, "First one. Second one!", drafts[0].SegmentText)
	assert.Equal(t, "And then", drafts[1].SegmentText)
}

func TestSegment_TerminalRunsStayAttached(t *testing.T) {
	t.Parallel()

	drafts := segmenter.Segment("Really?! Yes... Go on.", segmenter.Options{
		SentencesPerSegment: 1,
		MinPauseMS:          700,
		MaxPauseMS:          1100,
	})

	require.Len(t, drafts, 3)
	assert.Equal(t, "Really?!", drafts[0].SegmentText)
	assert.Equal(t, "Yes...", drafts[1].SegmentText)
	assert.Equal(t, "Go on.", drafts[2].SegmentText)
}

func TestSegment_LastChunkMayBeSmaller(t *testing.T) {
	t.Parallel()

	opts := segmenter.Options{
		SentencesPerSegment: 3,
		MinPauseMS:          700,
		MaxPauseMS:          1100,
	}

	drafts := segmenter.Segment("One. Two. Three. Four.", opts)

	require.Len(t, drafts, 2)
	assert.Equal(t, "One. Two. Three.", drafts[0].SegmentText)
	assert.Equal(t, "Four.", drafts[1].SegmentText)
}

func TestSegment_DegeneratePauseRange(t *testing.T) {
	t.Parallel()

	opts := segmenter.Options{
		SentencesPerSegment: 1,
		MinPauseMS:          900,
		MaxPauseMS:          900,
	}

	drafts := segmenter.Segment("One. Two. Three.", opts)

	require.Len(t, drafts, 3)

	for _, draft := range drafts {
		assert.Equal(t, 900, draft.PauseMS)
	}
}
