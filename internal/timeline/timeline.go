// Package timeline assembles story segments and quiz questions into one
// ordered sequence of playable items.
package timeline

import "github.com/book-expert/narration-service/internal/core"

// SegmentRef identifies a persisted story segment and its pause.
type SegmentRef struct {
	ID      string
	PauseMS int
}

// QuestionRef identifies a persisted quiz question.
type QuestionRef struct {
	ID string
}

// Options controls how questions are interleaved with segments.
type Options struct {
	// QuestionStride inserts one question after every QuestionStride
	// segments. Zero appends all questions after all segments.
	QuestionStride int

	// QuestionPauseMS is the pause assigned to question items.
	QuestionPauseMS int
}

// DefaultOptions interleaves one question after every two segments with
// no pause after questions.
func DefaultOptions() Options {
	return Options{
		QuestionStride:  2,
		QuestionPauseMS: 0,
	}
}

// Build produces the timeline for one quiz. Every segment and every
// question appears exactly once, order indexes are dense starting at 0,
// segments keep their own pause, and questions get the configured default.
// The function is pure and performs no I/O.
func Build(segments []SegmentRef, questions []QuestionRef, opts Options) []core.TimelineItem {
	items := make([]core.TimelineItem, 0, len(segments)+len(questions))

	nextQuestion := 0

	appendQuestion := func() {
		items = append(items, core.TimelineItem{
			ItemType:   core.ItemQuestion,
			ItemRefID:  questions[nextQuestion].ID,
			OrderIndex: len(items),
			PauseMS:    opts.QuestionPauseMS,
		})
		nextQuestion++
	}

	for i, segment := range segments {
		items = append(items, core.TimelineItem{
			ItemType:   core.ItemStorySegment,
			ItemRefID:  segment.ID,
			OrderIndex: len(items),
			PauseMS:    segment.PauseMS,
		})

		if opts.QuestionStride > 0 && (i+1)%opts.QuestionStride == 0 && nextQuestion < len(questions) {
			appendQuestion()
		}
	}

	// Whatever the stride left over trails the story.
	for nextQuestion < len(questions) {
		appendQuestion()
	}

	return items
}
