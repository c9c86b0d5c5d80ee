package core

import (
	"errors"
	"fmt"
)

var (
	// ErrTextEmpty indicates a synthesis request with no text.
	ErrTextEmpty = errors.New("text cannot be empty")
	// ErrVoiceEmpty indicates a synthesis request with no voice.
	ErrVoiceEmpty = errors.New("voice cannot be empty")
	// ErrModelEmpty indicates a synthesis request with no model.
	ErrModelEmpty = errors.New("model cannot be empty")
	// ErrSpeedRange indicates a playback speed outside the valid range [0.25, 4.0].
	ErrSpeedRange = errors.New("speed must be between 0.25 and 4.0")

	// ErrSynthesisFailed indicates the upstream speech capability rejected
	// or failed a generation request.
	ErrSynthesisFailed = errors.New("synthesis failed")

	// ErrClipMiss indicates a fingerprint is present in no cache tier.
	ErrClipMiss = errors.New("clip not cached at any tier")

	// ErrQuizNotFound indicates an unknown quiz identifier on a read path.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrClipNotFound indicates an unknown fingerprint on a read path.
	ErrClipNotFound = errors.New("clip not found")
)

// Speed bounds accepted by the synthesis capability.
const (
	MinSpeed = 0.25
	MaxSpeed = 4.0
)

// Validate rejects malformed synthesis requests before any I/O happens.
func (r SynthesisRequest) Validate() error {
	if r.Text == "" {
		return ErrTextEmpty
	}

	if r.Voice == "" {
		return ErrVoiceEmpty
	}

	if r.Model == "" {
		return ErrModelEmpty
	}

	if r.Speed < MinSpeed || r.Speed > MaxSpeed {
		return fmt.Errorf("%w: got %.2f", ErrSpeedRange, r.Speed)
	}

	return nil
}
