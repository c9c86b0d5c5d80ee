package clipstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/cache"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/fingerprint"
)

// Ensurer guarantees that a clip exists for a synthesis request: metadata
// row, durable copy, and hot-tier entry. Ensuring the same fingerprint is
// idempotent, and concurrent callers for one fingerprint coalesce onto a
// single synthesis call through the in-flight registry.
type Ensurer struct {
	store       *Store
	cache       *cache.TieredCache
	synthesizer core.Synthesizer
	log         *logger.Logger

	mu       sync.Mutex
	inflight map[string]*inflightCall
}

// inflightCall is one in-progress ensure shared by every caller that
// arrived while it ran.
type inflightCall struct {
	done chan struct{}
	clip *core.AudioClip
	err  error
}

// NewEnsurer wires the metadata store, the tiered cache, and the
// synthesis adapter into the clip-creation flow.
func NewEnsurer(store *Store, tiered *cache.TieredCache, synthesizer core.Synthesizer, log *logger.Logger) *Ensurer {
	return &Ensurer{
		store:       store,
		cache:       tiered,
		synthesizer: synthesizer,
		log:         log,
		inflight:    make(map[string]*inflightCall),
	}
}

// EnsureClip returns the clip for a request, creating it on first use.
// The flow is: metadata row → cache tiers → synthesize + store. Exactly
// one metadata row per fingerprint survives regardless of races.
func (e *Ensurer) EnsureClip(
	ctx context.Context,
	req core.SynthesisRequest,
	ownerType core.OwnerType,
	ownerID string,
) (*core.AudioClip, error) {
	validationErr := req.Validate()
	if validationErr != nil {
		return nil, validationErr
	}

	fp := fingerprint.Digest(req)

	clip, err := e.store.ClipByFingerprint(ctx, fp)
	if err == nil {
		return clip, nil
	}

	if !errors.Is(err, core.ErrClipNotFound) {
		return nil, err
	}

	return e.ensureCoalesced(ctx, req, fp, ownerType, ownerID)
}

// ensureCoalesced runs the miss path, joining an in-flight ensure for the
// same fingerprint when one exists.
func (e *Ensurer) ensureCoalesced(
	ctx context.Context,
	req core.SynthesisRequest,
	fp string,
	ownerType core.OwnerType,
	ownerID string,
) (*core.AudioClip, error) {
	e.mu.Lock()

	if call, running := e.inflight[fp]; running {
		e.mu.Unlock()

		select {
		case <-call.done:
			return call.clip, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &inflightCall{done: make(chan struct{}), clip: nil, err: nil}
	e.inflight[fp] = call
	e.mu.Unlock()

	call.clip, call.err = e.ensure(ctx, req, fp, ownerType, ownerID)

	e.mu.Lock()
	delete(e.inflight, fp)
	e.mu.Unlock()

	close(call.done)

	return call.clip, call.err
}

func (e *Ensurer) ensure(
	ctx context.Context,
	req core.SynthesisRequest,
	fp string,
	ownerType core.OwnerType,
	ownerID string,
) (*core.AudioClip, error) {
	url, err := e.resolveAudio(ctx, req)
	if err != nil {
		return nil, err
	}

	clip, err := e.store.UpsertClip(ctx, core.AudioClip{
		Fingerprint: fp,
		URL:         url,
		DurationMS:  0,
		OwnerType:   ownerType,
		OwnerID:     ownerID,
		Provider:    req.Provider,
		Voice:       req.Voice,
	})
	if err != nil {
		return nil, err
	}

	return clip, nil
}

// resolveAudio makes sure a durable copy exists and returns its URL,
// synthesizing only when no tier has the clip.
func (e *Ensurer) resolveAudio(ctx context.Context, req core.SynthesisRequest) (string, error) {
	result, err := e.cache.Lookup(ctx, req)
	if err == nil {
		if result.URL != "" {
			return result.URL, nil
		}

		// Hot-tier hit with no durable copy confirmed: re-store the
		// cached bytes so the durable tier is authoritative.
		return e.cache.Store(ctx, req, result.Audio)
	}

	if !cache.IsMiss(err) {
		return "", err
	}

	audio, err := e.synthesizer.GenerateSpeech(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate clip: %w", err)
	}

	url, err := e.cache.Store(ctx, req, audio)
	if err != nil {
		// The bytes were synthesized but could not be stored durably;
		// the clip stays unresolved until a later ensure retries.
		return "", err
	}

	return url, nil
}
