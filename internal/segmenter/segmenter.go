// Package segmenter splits raw narrative text into ordered, speakable
// segments with deterministic inter-segment pauses.
//
// Segmentation is pure and replayable: identical input always produces
// identical output, so regenerating a quiz never reshuffles its pacing.
package segmenter

import (
	"strings"

	"github.com/book-expert/narration-service/internal/core"
)

// Default segmentation parameters.
const (
	DefaultSentencesPerSegment = 2
	DefaultMinPauseMS          = 700
	DefaultMaxPauseMS          = 1100
)

// pauseStep spreads pause values across the allowed range without
// randomness. The constant is coprime with typical range widths so
// consecutive segments get visibly different pauses.
const pauseStep = 137

// Options controls sentence grouping and the pause range.
type Options struct {
	SentencesPerSegment int
	MinPauseMS          int
	MaxPauseMS          int
}

// DefaultOptions returns the reference segmentation parameters.
func DefaultOptions() Options {
	return Options{
		SentencesPerSegment: DefaultSentencesPerSegment,
		MinPauseMS:          DefaultMinPauseMS,
		MaxPauseMS:          DefaultMaxPauseMS,
	}
}

// Segment normalizes whitespace, splits text into sentences on terminal
// punctuation, groups them into chunks of SentencesPerSegment (the last
// chunk may be smaller), and assigns each chunk an index-derived pause in
// [MinPauseMS, MaxPauseMS]. Empty input yields an empty sequence.
func Segment(text string, opts Options) []core.StorySegmentDraft {
	if opts.SentencesPerSegment < 1 {
		opts.SentencesPerSegment = DefaultSentencesPerSegment
	}

	if opts.MaxPauseMS < opts.MinPauseMS {
		opts.MaxPauseMS = opts.MinPauseMS
	}

	normalized := normalizeWhitespace(text)
	if normalized == "" {
		return []core.StorySegmentDraft{}
	}

	sentences := splitSentences(normalized)

	drafts := make([]core.StorySegmentDraft, 0, (len(sentences)+opts.SentencesPerSegment-1)/opts.SentencesPerSegment)

	for start := 0; start < len(sentences); start += opts.SentencesPerSegment {
		end := start + opts.SentencesPerSegment
		if end > len(sentences) {
			end = len(sentences)
		}

		drafts = append(drafts, core.StorySegmentDraft{
			SegmentText: strings.Join(sentences[start:end], " "),
			PauseMS:     pauseForIndex(len(drafts), opts),
		})
	}

	return drafts
}

// pauseForIndex derives the i-th segment's pause from its index alone.
func pauseForIndex(index int, opts Options) int {
	rangeWidth := opts.MaxPauseMS - opts.MinPauseMS

	return opts.MinPauseMS + (index*pauseStep)%(rangeWidth+1)
}

// normalizeWhitespace collapses all whitespace runs into single spaces.
func normalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// splitSentences cuts normalized text at terminal punctuation (., !, ?).
// Runs of terminals ("?!", "...") stay attached to their sentence, and a
// trailing unterminated fragment is kept as a final sentence.
func splitSentences(text string) []string {
	var sentences []string

	var current strings.Builder

	runes := []rune(text)

	for i, r := range runes {
		current.WriteRune(r)

		if !isTerminal(r) {
			continue
		}

		// After whitespace normalization the only separator is a
		// plain space; a following terminal extends this sentence.
		if i+1 < len(runes) && runes[i+1] != ' ' {
			continue
		}

		sentence := strings.TrimSpace(current.String())
		if sentence != "" {
			sentences = append(sentences, sentence)
		}

		current.Reset()
	}

	tail := strings.TrimSpace(current.String())
	if tail != "" {
		sentences = append(sentences, tail)
	}

	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
