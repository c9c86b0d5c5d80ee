// Package core defines the domain types and interfaces shared by the
// narration pipeline components.
package core

// Category identifies the clip population a synthesis request belongs to.
// It is part of the hot-tier cache key and the durable-tier object path.
type Category string

// Known clip categories.
const (
	CategoryQuiz   Category = "quizzes"
	CategoryWord   Category = "words"
	CategoryPhrase Category = "phrases"
)

// OwnerType identifies the kind of entity a clip narrates.
type OwnerType string

// Known clip owner types.
const (
	OwnerStorySegment OwnerType = "story_segment"
	OwnerQuizQuestion OwnerType = "quiz_question"
)

// ItemType identifies the kind of entity a timeline item plays.
type ItemType string

// Known timeline item types.
const (
	ItemStorySegment ItemType = "story_segment"
	ItemQuestion     ItemType = "question"
)

// SynthesisRequest is the immutable value describing one speech generation.
// It is never persisted directly, only through its fingerprint.
type SynthesisRequest struct {
	Text     string
	Provider string
	Voice    string
	Speed    float64
	Model    string
	Category Category
}

// AudioClip is the metadata record for one synthesized audio artifact.
// Clips are created once per distinct fingerprint and never updated.
type AudioClip struct {
	Fingerprint string
	URL         string
	DurationMS  int64
	OwnerType   OwnerType
	OwnerID     string
	Provider    string
	Voice       string
}

// StorySegmentDraft is the segmenter output before persistence assigns
// identity and ordering.
type StorySegmentDraft struct {
	SegmentText string
	PauseMS     int
}

// TimelineItem is one playable entry of a quiz timeline. OrderIndex is
// authoritative and strictly increasing within a quiz.
type TimelineItem struct {
	ItemType   ItemType
	ItemRefID  string
	OrderIndex int
	PauseMS    int
}

// Quiz holds the narration parameters shared by every clip of one quiz.
type Quiz struct {
	ID       string
	Title    string
	Provider string
	Voice    string
	Speed    float64
	Model    string
}

// StorySegment is a persisted segment with identity and text.
type StorySegment struct {
	ID      string
	Text    string
	PauseMS int
}

// QuizQuestion is a persisted question with its spoken prompt parts.
type QuizQuestion struct {
	ID      string
	Stem    string
	Options []string
}

// ManifestItem is one resolved entry of a playback manifest. An empty
// AudioURL means the clip has not been generated yet.
type ManifestItem struct {
	OrderIndex int      `json:"orderIndex"`
	ItemType   ItemType `json:"itemType"`
	AudioURL   string   `json:"audioUrl"`
	PauseMS    int      `json:"pauseMs"`
}

// Manifest is the derived, client-facing projection of a quiz timeline.
// It is recomputed on every request and never stored.
type Manifest struct {
	QuizID string         `json:"quizId"`
	Title  string         `json:"title"`
	Items  []ManifestItem `json:"items"`
}
