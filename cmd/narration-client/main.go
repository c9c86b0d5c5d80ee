// main package for the narration command-line client. It submits quiz
// narration jobs and fetches playback manifests over NATS request-reply.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/book-expert/narration-service/internal/core"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Flag descriptions.
const (
	flagNatsURLDesc   = "NATS server URL"
	flagTitleDesc     = "Quiz title"
	flagStoryDesc     = "Story text to narrate"
	flagQuestionsDesc = "JSON file containing quiz questions"
	flagQuizDesc      = "Quiz ID to fetch the manifest for"
	flagVoiceDesc     = "Voice name"
	flagModelDesc     = "Synthesis model"
	flagSpeedDesc     = "Playback speed multiplier"
	flagTimeoutDesc   = "Request timeout in seconds"
)

// Flag names.
const (
	flagNatsURL   = "nats"
	flagTitle     = "title"
	flagStory     = "story"
	flagQuestions = "questions"
	flagQuiz      = "quiz"
	flagVoice     = "voice"
	flagModel     = "model"
	flagSpeed     = "speed"
	flagTimeout   = "timeout"
)

// Request subjects.
const (
	narrateSubject  = "narration.quiz.requested"
	manifestSubject = "narration.manifest.requested"
)

const (
	defaultVoice   = "nova"
	defaultModel   = "tts-1"
	defaultSpeed   = 1.0
	defaultTimeout = 120
)

var errEitherStoryOrQuiz = errors.New("either --story or --quiz must be provided")

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	natsURL   string
	title     string
	story     string
	questions string
	quiz      string
	voice     string
	model     string
	speed     float64
	timeout   int
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	if flags.story == "" && flags.quiz == "" {
		flag.Usage()

		return errEitherStoryOrQuiz
	}

	natsConnection, err := nats.Connect(flags.natsURL)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS at %s: %w", flags.natsURL, err)
	}
	defer natsConnection.Close()

	if flags.quiz != "" {
		return fetchManifest(natsConnection, flags)
	}

	return submitNarration(natsConnection, flags)
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags() appFlags {
	var flags appFlags
	flag.StringVar(&flags.natsURL, flagNatsURL, nats.DefaultURL, flagNatsURLDesc)
	flag.StringVar(&flags.title, flagTitle, "", flagTitleDesc)
	flag.StringVar(&flags.story, flagStory, "", flagStoryDesc)
	flag.StringVar(&flags.questions, flagQuestions, "", flagQuestionsDesc)
	flag.StringVar(&flags.quiz, flagQuiz, "", flagQuizDesc)
	flag.StringVar(&flags.voice, flagVoice, defaultVoice, flagVoiceDesc)
	flag.StringVar(&flags.model, flagModel, defaultModel, flagModelDesc)
	flag.Float64Var(&flags.speed, flagSpeed, defaultSpeed, flagSpeedDesc)
	flag.IntVar(&flags.timeout, flagTimeout, defaultTimeout, flagTimeoutDesc)
	flag.Parse()

	return flags
}

func submitNarration(natsConnection *nats.Conn, flags appFlags) error {
	questions, err := loadQuestions(flags.questions)
	if err != nil {
		return err
	}

	event := core.QuizNarrationRequestedEvent{
		Header: core.EventHeader{
			Timestamp: time.Now(),
			JobID:     uuid.NewString(),
			EventID:   uuid.NewString(),
			UserID:    "",
		},
		Title:     flags.title,
		StoryText: flags.story,
		Questions: questions,
		Provider:  "openai",
		Voice:     flags.voice,
		Speed:     flags.speed,
		Model:     flags.model,
	}

	var reply core.QuizNarrationCompletedEvent

	err = request(natsConnection, narrateSubject, event, &reply, flags.timeout)
	if err != nil {
		return err
	}

	fmt.Printf("Quiz %s narrated: %d items, %d clips created\n",
		reply.QuizID, reply.ItemCount, reply.ClipsCreated)

	return nil
}

func fetchManifest(natsConnection *nats.Conn, flags appFlags) error {
	event := core.ManifestRequestedEvent{
		Header: core.EventHeader{
			Timestamp: time.Now(),
			JobID:     uuid.NewString(),
			EventID:   uuid.NewString(),
			UserID:    "",
		},
		QuizID: flags.quiz,
	}

	var reply core.Manifest

	err := request(natsConnection, manifestSubject, event, &reply, flags.timeout)
	if err != nil {
		return err
	}

	output, err := json.MarshalIndent(reply, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format manifest: %w", err)
	}

	fmt.Println(string(output))

	return nil
}

func request(natsConnection *nats.Conn, subject string, payload, reply any, timeoutSeconds int) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	msg, err := natsConnection.Request(subject, data, time.Duration(timeoutSeconds)*time.Second)
	if err != nil {
		return fmt.Errorf("request on subject %s failed: %w", subject, err)
	}

	err = json.Unmarshal(msg.Data, reply)
	if err != nil {
		return fmt.Errorf("failed to decode reply: %w", err)
	}

	return nil
}

// loadQuestions reads quiz questions from a JSON file. An empty path
// means a story-only narration.
func loadQuestions(path string) ([]core.QuestionInput, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read questions file '%s': %w", path, err)
	}

	var questions []core.QuestionInput

	err = json.Unmarshal(data, &questions)
	if err != nil {
		return nil, fmt.Errorf("failed to parse questions file '%s': %w", path, err)
	}

	return questions, nil
}
