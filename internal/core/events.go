package core

import "time"

// EventHeader carries correlation metadata for narration job events.
type EventHeader struct {
	Timestamp time.Time `json:"timestamp"`
	JobID     string    `json:"job_id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id,omitempty"`
}

// QuestionInput is one quiz question as submitted with a narration job.
type QuestionInput struct {
	Stem    string   `json:"stem"`
	Options []string `json:"options"`
}

// QuizNarrationRequestedEvent asks the worker to build the timeline and
// clips for one quiz.
type QuizNarrationRequestedEvent struct {
	Header    EventHeader     `json:"header"`
	Title     string          `json:"title"`
	StoryText string          `json:"story_text"`
	Questions []QuestionInput `json:"questions"`
	Provider  string          `json:"provider"`
	Voice     string          `json:"voice"`
	Speed     float64         `json:"speed"`
	Model     string          `json:"model"`
}

// QuizNarrationCompletedEvent is the worker's reply once a quiz timeline
// exists and clip generation has run.
type QuizNarrationCompletedEvent struct {
	Header       EventHeader `json:"header"`
	QuizID       string      `json:"quiz_id"`
	ItemCount    int         `json:"item_count"`
	ClipsCreated int         `json:"clips_created"`
}

// ManifestRequestedEvent asks the worker for the playback manifest of a
// stored quiz.
type ManifestRequestedEvent struct {
	Header EventHeader `json:"header"`
	QuizID string      `json:"quiz_id"`
}
