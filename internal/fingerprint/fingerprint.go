// Package fingerprint derives deterministic cache and content-addressing
// keys from synthesis requests.
//
// Two schemes coexist: a human-readable composite key for the hot tier,
// kept invertible for cache tooling, and a SHA-256 digest of the
// JSON-normalized request for the durable tier. Both are stable across
// process restarts and across machines.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/book-expert/narration-service/internal/core"
)

// KeyVersion tags the hot-tier key namespace. Bumping it invalidates every
// hot-tier entry without touching the durable tier.
const KeyVersion = "v2"

// digestPayload fixes the field set and ordering of the durable-tier
// digest input. struct marshaling keeps the key order stable regardless
// of how the request was constructed.
type digestPayload struct {
	Text     string  `json:"text"`
	Provider string  `json:"provider"`
	Voice    string  `json:"voice"`
	Speed    float64 `json:"speed"`
	Model    string  `json:"model"`
}

// HotKey builds the composite hot-tier cache key:
// tts:{version}:{model}:{voice}:{speed}:{category}:{normalizedText}.
// The text is lower-cased and whitespace-collapsed so trivially different
// spellings of the same phrase share one entry.
func HotKey(req core.SynthesisRequest) string {
	return fmt.Sprintf("tts:%s:%s:%s:%s:%s:%s",
		KeyVersion,
		req.Model,
		req.Voice,
		FormatSpeed(req.Speed),
		req.Category,
		NormalizeText(req.Text),
	)
}

// Digest computes the durable-tier content-addressing key: the SHA-256
// hex digest of the JSON-serialized request fields.
func Digest(req core.SynthesisRequest) string {
	payload := digestPayload{
		Text:     strings.TrimSpace(req.Text),
		Provider: req.Provider,
		Voice:    req.Voice,
		Speed:    req.Speed,
		Model:    req.Model,
	}

	// Marshaling a flat struct of strings and a float cannot fail.
	data, _ := json.Marshal(payload)

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

// ObjectKey returns the durable-tier object path for a request:
// audio/{category}/{digest}.mp3.
func ObjectKey(req core.SynthesisRequest) string {
	return fmt.Sprintf("audio/%s/%s.mp3", req.Category, Digest(req))
}

// NormalizeText lower-cases text and collapses runs of whitespace into
// single spaces for hot-tier key normalization.
func NormalizeText(text string) string {
	return strings.ToLower(strings.Join(strings.Fields(text), " "))
}

// FormatSpeed renders a playback speed without trailing zeros, so 1.0
// and 1 produce the same key component.
func FormatSpeed(speed float64) string {
	return strconv.FormatFloat(speed, 'g', -1, 64)
}
