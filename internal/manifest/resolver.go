// Package manifest derives the client-facing playback manifest of a quiz
// from its stored timeline and the clip metadata catalog.
package manifest

import (
	"context"
	"fmt"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/fingerprint"
)

// QuizSource loads a quiz's stored timeline and item texts.
type QuizSource interface {
	Quiz(ctx context.Context, quizID string) (*core.Quiz, error)
	TimelineItems(ctx context.Context, quizID string) ([]core.TimelineItem, error)
	StorySegments(ctx context.Context, quizID string) (map[string]core.StorySegment, error)
	QuizQuestions(ctx context.Context, quizID string) (map[string]core.QuizQuestion, error)
}

// ClipCatalog batch-resolves clip metadata by fingerprint.
type ClipCatalog interface {
	ClipsByFingerprint(ctx context.Context, fps []string) (map[string]core.AudioClip, error)
}

// Resolver turns a stored timeline into a playback manifest.
type Resolver struct {
	source QuizSource
	clips  ClipCatalog
	log    *logger.Logger
}

// NewResolver wires a quiz source and a clip catalog into a resolver.
func NewResolver(source QuizSource, clips ClipCatalog, log *logger.Logger) *Resolver {
	return &Resolver{
		source: source,
		clips:  clips,
		log:    log,
	}
}

// Resolve recomputes the manifest of a quiz: one item per timeline row in
// exact orderIndex order, each with the resolved clip URL or "" while
// generation is still in flight. Unresolved clips never fail the request.
func (r *Resolver) Resolve(ctx context.Context, quizID string) (*core.Manifest, error) {
	quiz, err := r.source.Quiz(ctx, quizID)
	if err != nil {
		return nil, err
	}

	items, err := r.source.TimelineItems(ctx, quizID)
	if err != nil {
		return nil, err
	}

	texts, err := r.itemTexts(ctx, quizID, items)
	if err != nil {
		return nil, err
	}

	fingerprints := make([]string, len(items))
	distinct := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for i := range items {
		fp := fingerprint.Digest(r.requestFor(quiz, texts[i]))
		fingerprints[i] = fp

		if _, dup := seen[fp]; !dup {
			seen[fp] = struct{}{}

			distinct = append(distinct, fp)
		}
	}

	// One batched lookup bounds the round trips regardless of quiz size.
	clips, err := r.clips.ClipsByFingerprint(ctx, distinct)
	if err != nil {
		return nil, err
	}

	manifest := &core.Manifest{
		QuizID: quiz.ID,
		Title:  quiz.Title,
		Items:  make([]core.ManifestItem, 0, len(items)),
	}

	unresolved := 0

	for i, item := range items {
		audioURL := ""

		if clip, ok := clips[fingerprints[i]]; ok {
			audioURL = clip.URL
		} else {
			unresolved++
		}

		manifest.Items = append(manifest.Items, core.ManifestItem{
			OrderIndex: item.OrderIndex,
			ItemType:   item.ItemType,
			AudioURL:   audioURL,
			PauseMS:    item.PauseMS,
		})
	}

	if unresolved > 0 {
		r.log.Info("Manifest for quiz '%s' has %d of %d clips unresolved",
			quiz.ID, unresolved, len(items))
	}

	return manifest, nil
}

// itemTexts resolves the spoken text of each timeline item: the segment's
// own text, or the question's formatted prompt.
func (r *Resolver) itemTexts(ctx context.Context, quizID string, items []core.TimelineItem) ([]string, error) {
	segments, err := r.source.StorySegments(ctx, quizID)
	if err != nil {
		return nil, err
	}

	questions, err := r.source.QuizQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}

	texts := make([]string, len(items))

	for i, item := range items {
		switch item.ItemType {
		case core.ItemStorySegment:
			segment, ok := segments[item.ItemRefID]
			if !ok {
				return nil, fmt.Errorf("timeline item %d references unknown segment '%s'",
					item.OrderIndex, item.ItemRefID)
			}

			texts[i] = segment.Text
		case core.ItemQuestion:
			question, ok := questions[item.ItemRefID]
			if !ok {
				return nil, fmt.Errorf("timeline item %d references unknown question '%s'",
					item.OrderIndex, item.ItemRefID)
			}

			texts[i] = FormatQuestionPrompt(question)
		default:
			return nil, fmt.Errorf("timeline item %d has unknown type '%s'",
				item.OrderIndex, item.ItemType)
		}
	}

	return texts, nil
}

// requestFor builds the synthesis request of one manifest item using the
// quiz's narration parameters.
func (r *Resolver) requestFor(quiz *core.Quiz, text string) core.SynthesisRequest {
	return core.SynthesisRequest{
		Text:     text,
		Provider: quiz.Provider,
		Voice:    quiz.Voice,
		Speed:    quiz.Speed,
		Model:    quiz.Model,
		Category: core.CategoryQuiz,
	}
}

// FormatQuestionPrompt renders the spoken form of a question: the stem
// followed by each answer option as its own sentence.
func FormatQuestionPrompt(question core.QuizQuestion) string {
	if len(question.Options) == 0 {
		return question.Stem
	}

	var prompt strings.Builder

	prompt.WriteString(question.Stem)

	for _, option := range question.Options {
		prompt.WriteString(" ")
		prompt.WriteString(option)
		prompt.WriteString(".")
	}

	return prompt.String()
}
