// Package worker provides the NATS worker that builds quiz narrations
// and serves playback manifests.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/clipstore"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/manifest"
	"github.com/book-expert/narration-service/internal/segmenter"
	"github.com/book-expert/narration-service/internal/textnorm"
	"github.com/book-expert/narration-service/internal/timeline"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const handleMessageTimeout = 120 * time.Second

var (
	// ErrTitleEmpty indicates a narration job without a quiz title.
	ErrTitleEmpty = errors.New("quiz title cannot be empty")
	// ErrStoryTextEmpty indicates a narration job without story text.
	ErrStoryTextEmpty = errors.New("story text cannot be empty")
	// ErrQuestionStemEmpty indicates a question with an empty stem.
	ErrQuestionStemEmpty = errors.New("question stem cannot be empty")
	// ErrQuizIDEmpty indicates a manifest request without a quiz id.
	ErrQuizIDEmpty = errors.New("quiz id cannot be empty")
)

// NatsWorker listens for narration jobs and manifest requests on two
// NATS subjects.
type NatsWorker struct {
	natsConnection  *nats.Conn
	narrateSubject  string
	manifestSubject string
	store           *clipstore.Store
	ensurer         *clipstore.Ensurer
	resolver        *manifest.Resolver
	normalizer      *textnorm.Normalizer
	log             *logger.Logger
}

// NewNatsWorker creates a new instance of the narration worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	narrateSubject string,
	manifestSubject string,
	store *clipstore.Store,
	ensurer *clipstore.Ensurer,
	resolver *manifest.Resolver,
	log *logger.Logger,
) (*NatsWorker, error) {
	return &NatsWorker{
		natsConnection:  natsConnection,
		narrateSubject:  narrateSubject,
		manifestSubject: manifestSubject,
		store:           store,
		ensurer:         ensurer,
		resolver:        resolver,
		normalizer:      textnorm.New(),
		log:             log,
	}, nil
}

// Run starts the worker and begins listening for messages.
func (w *NatsWorker) Run(ctx context.Context) error {
	narrateSub, err := w.natsConnection.Subscribe(w.narrateSubject, w.handleNarrateMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.narrateSubject, err)
	}

	manifestSub, err := w.natsConnection.Subscribe(w.manifestSubject, w.handleManifestMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.manifestSubject, err)
	}

	<-ctx.Done()

	drainErr := narrateSub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain narration subscription: %w", drainErr)
	}

	drainErr = manifestSub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain manifest subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleNarrateMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := w.parseNarrateEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse narration job: %v", err)

		return
	}

	replyEvent, err := w.processNarrationJob(ctx, event)
	if err != nil {
		w.log.Error("Failed to process narration job %s: %v", event.Header.JobID, err)

		return
	}

	err = w.publishReply(msg, replyEvent)
	if err != nil {
		w.log.Error("Failed to publish reply for job %s: %v", event.Header.JobID, err)
	}
}

func (w *NatsWorker) handleManifestMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	var event core.ManifestRequestedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		w.log.Error("Failed to unmarshal manifest request: %v", err)

		return
	}

	if event.QuizID == "" {
		w.log.Error("Rejected manifest request: %v", ErrQuizIDEmpty)

		return
	}

	result, err := w.resolver.Resolve(ctx, event.QuizID)
	if err != nil {
		w.log.Error("Failed to resolve manifest for quiz %s: %v", event.QuizID, err)

		return
	}

	err = w.publishReply(msg, result)
	if err != nil {
		w.log.Error("Failed to publish manifest for quiz %s: %v", event.QuizID, err)
	}
}

// processNarrationJob segments the story, persists the quiz with its
// timeline, and generates the clip of every timeline item. A single
// failed clip does not fail the job: the manifest reports it unresolved
// and a later job or manifest fetch retries.
func (w *NatsWorker) processNarrationJob(
	ctx context.Context,
	event *core.QuizNarrationRequestedEvent,
) (*core.QuizNarrationCompletedEvent, error) {
	quiz := core.Quiz{
		ID:       uuid.NewString(),
		Title:    event.Title,
		Provider: event.Provider,
		Voice:    event.Voice,
		Speed:    event.Speed,
		Model:    event.Model,
	}

	segments, questions := w.buildEntities(event)

	items := timeline.Build(segmentRefs(segments), questionRefs(questions), timeline.DefaultOptions())

	err := w.store.SaveQuiz(ctx, quiz, segments, questions, items)
	if err != nil {
		return nil, fmt.Errorf("failed to persist quiz '%s': %w", quiz.ID, err)
	}

	clipsCreated := w.generateClips(ctx, quiz, segments, questions, items)

	return &core.QuizNarrationCompletedEvent{
		Header:       event.Header,
		QuizID:       quiz.ID,
		ItemCount:    len(items),
		ClipsCreated: clipsCreated,
	}, nil
}

// buildEntities turns the raw job payload into persisted-shape segments
// and questions with fresh identities. Story text and question stems are
// normalized first so the persisted text is exactly what gets narrated.
func (w *NatsWorker) buildEntities(event *core.QuizNarrationRequestedEvent) ([]core.StorySegment, []core.QuizQuestion) {
	drafts := segmenter.Segment(w.normalizer.Normalize(event.StoryText), segmenter.DefaultOptions())

	segments := make([]core.StorySegment, 0, len(drafts))
	for _, draft := range drafts {
		segments = append(segments, core.StorySegment{
			ID:      uuid.NewString(),
			Text:    draft.SegmentText,
			PauseMS: draft.PauseMS,
		})
	}

	questions := make([]core.QuizQuestion, 0, len(event.Questions))
	for _, input := range event.Questions {
		questions = append(questions, core.QuizQuestion{
			ID:      uuid.NewString(),
			Stem:    w.normalizer.Normalize(input.Stem),
			Options: input.Options,
		})
	}

	return segments, questions
}

// generateClips ensures one clip per timeline item, counting successes.
func (w *NatsWorker) generateClips(
	ctx context.Context,
	quiz core.Quiz,
	segments []core.StorySegment,
	questions []core.QuizQuestion,
	items []core.TimelineItem,
) int {
	segmentsByID := make(map[string]core.StorySegment, len(segments))
	for _, segment := range segments {
		segmentsByID[segment.ID] = segment
	}

	questionsByID := make(map[string]core.QuizQuestion, len(questions))
	for _, question := range questions {
		questionsByID[question.ID] = question
	}

	created := 0

	for _, item := range items {
		var (
			text      string
			ownerType core.OwnerType
		)

		switch item.ItemType {
		case core.ItemStorySegment:
			text = segmentsByID[item.ItemRefID].Text
			ownerType = core.OwnerStorySegment
		case core.ItemQuestion:
			text = manifest.FormatQuestionPrompt(questionsByID[item.ItemRefID])
			ownerType = core.OwnerQuizQuestion
		default:
			continue
		}

		req := core.SynthesisRequest{
			Text:     text,
			Provider: quiz.Provider,
			Voice:    quiz.Voice,
			Speed:    quiz.Speed,
			Model:    quiz.Model,
			Category: core.CategoryQuiz,
		}

		_, err := w.ensurer.EnsureClip(ctx, req, ownerType, item.ItemRefID)
		if err != nil {
			w.log.Error("Failed to ensure clip for item %d of quiz %s: %v",
				item.OrderIndex, quiz.ID, err)

			continue
		}

		created++
	}

	return created
}

// publishReply marshals and responds with the given payload.
func (w *NatsWorker) publishReply(msg *nats.Msg, payload any) error {
	replyData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}

	err = msg.Respond(replyData)
	if err != nil {
		return fmt.Errorf("failed to publish reply: %w", err)
	}

	return nil
}

func (w *NatsWorker) parseNarrateEvent(msg *nats.Msg) (*core.QuizNarrationRequestedEvent, error) {
	var event core.QuizNarrationRequestedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	validationErr := w.validateNarrateEvent(&event)
	if validationErr != nil {
		return nil, validationErr
	}

	return &event, nil
}

// validateNarrateEvent ensures a narration job is complete before any
// I/O happens on its behalf.
func (w *NatsWorker) validateNarrateEvent(event *core.QuizNarrationRequestedEvent) error {
	if event.Title == "" {
		return ErrTitleEmpty
	}

	if event.StoryText == "" {
		return ErrStoryTextEmpty
	}

	for _, question := range event.Questions {
		if question.Stem == "" {
			return ErrQuestionStemEmpty
		}
	}

	probe := core.SynthesisRequest{
		Text:     event.StoryText,
		Provider: event.Provider,
		Voice:    event.Voice,
		Speed:    event.Speed,
		Model:    event.Model,
		Category: core.CategoryQuiz,
	}

	return probe.Validate()
}

func segmentRefs(segments []core.StorySegment) []timeline.SegmentRef {
	refs := make([]timeline.SegmentRef, 0, len(segments))
	for _, segment := range segments {
		refs = append(refs, timeline.SegmentRef{ID: segment.ID, PauseMS: segment.PauseMS})
	}

	return refs
}

func questionRefs(questions []core.QuizQuestion) []timeline.QuestionRef {
	refs := make([]timeline.QuestionRef, 0, len(questions))
	for _, question := range questions {
		refs = append(refs, timeline.QuestionRef{ID: question.ID})
	}

	return refs
}
