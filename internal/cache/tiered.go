// Package cache implements the tiered clip cache: hot tier, then durable
// tier, then miss.
//
// The hot tier is strictly an accelerator. Every hot-tier failure is
// logged and swallowed at this boundary so an outage degrades lookups to
// the durable tier without ever failing the primary operation.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/fingerprint"
)

// DefaultHotMaxPayloadBytes is the hot-tier size ceiling. Larger clips
// are served from the durable tier only.
const DefaultHotMaxPayloadBytes = 500 * 1024

// Cache tier names, reported on lookup results.
const (
	TierHot     = "hot"
	TierDurable = "durable"
)

// Result is a successful cache lookup. URL is set on durable-tier hits;
// hot-tier hits carry bytes only.
type Result struct {
	Tier  string
	Audio []byte
	URL   string
}

// TieredCache probes the hot tier, then the durable tier, and backfills
// the hot tier on durable hits.
type TieredCache struct {
	hot                core.HotStore
	durable            core.ObjectStore
	log                *logger.Logger
	hotMaxPayloadBytes int
}

// New builds a tiered cache. A nil hot store is the configuration-level
// "hot tier disabled" state: lookups go straight to the durable tier.
func New(hot core.HotStore, durable core.ObjectStore, hotMaxPayloadBytes int, log *logger.Logger) *TieredCache {
	if hotMaxPayloadBytes <= 0 {
		hotMaxPayloadBytes = DefaultHotMaxPayloadBytes
	}

	return &TieredCache{
		hot:                hot,
		durable:            durable,
		log:                log,
		hotMaxPayloadBytes: hotMaxPayloadBytes,
	}
}

// HotEnabled reports whether a hot tier is configured.
func (c *TieredCache) HotEnabled() bool {
	return c.hot != nil
}

// Lookup returns the cached clip for a request or core.ErrClipMiss. A
// durable-tier hit backfills the hot tier before returning, so repeated
// requests in a short window skip the durable tier entirely.
func (c *TieredCache) Lookup(ctx context.Context, req core.SynthesisRequest) (*Result, error) {
	hotKey := fingerprint.HotKey(req)

	if c.hot != nil {
		data, found, err := c.hot.Get(ctx, hotKey)
		if err != nil {
			c.log.Warn("Hot tier get failed for key '%s': %v", hotKey, err)
		} else if found {
			return &Result{Tier: TierHot, Audio: data, URL: ""}, nil
		}
	}

	objectKey := fingerprint.ObjectKey(req)

	exists, err := c.durable.Exists(ctx, objectKey)
	if err != nil {
		// A durable-tier outage degrades to a miss; the caller falls
		// back to synthesis.
		c.log.Warn("Durable tier check failed for '%s': %v", objectKey, err)

		return nil, core.ErrClipMiss
	}

	if !exists {
		return nil, core.ErrClipMiss
	}

	data, err := c.durable.Download(ctx, objectKey)
	if err != nil {
		c.log.Warn("Durable tier fetch failed for '%s': %v", objectKey, err)

		return nil, core.ErrClipMiss
	}

	c.backfillHot(ctx, hotKey, data)

	return &Result{
		Tier:  TierDurable,
		Audio: data,
		URL:   c.durable.URL(objectKey),
	}, nil
}

// Store uploads a freshly synthesized clip to the durable tier and then
// writes it to the hot tier best-effort. The returned URL addresses the
// durable copy.
func (c *TieredCache) Store(ctx context.Context, req core.SynthesisRequest, data []byte) (string, error) {
	objectKey := fingerprint.ObjectKey(req)

	err := c.durable.Upload(ctx, objectKey, data)
	if err != nil {
		return "", fmt.Errorf("durable tier upload of '%s': %w", objectKey, err)
	}

	c.backfillHot(ctx, fingerprint.HotKey(req), data)

	return c.durable.URL(objectKey), nil
}

// URLFor returns the durable-tier URL a request's clip will have once
// stored, without any I/O.
func (c *TieredCache) URLFor(req core.SynthesisRequest) string {
	return c.durable.URL(fingerprint.ObjectKey(req))
}

// backfillHot writes to the hot tier, skipping oversized payloads and
// swallowing failures.
func (c *TieredCache) backfillHot(ctx context.Context, hotKey string, data []byte) {
	if c.hot == nil {
		return
	}

	if len(data) > c.hotMaxPayloadBytes {
		c.log.Info("Skipping hot tier for key '%s': payload %d bytes exceeds ceiling %d",
			hotKey, len(data), c.hotMaxPayloadBytes)

		return
	}

	err := c.hot.Set(ctx, hotKey, data)
	if err != nil {
		c.log.Warn("Hot tier set failed for key '%s': %v", hotKey, err)
	}
}

// IsMiss reports whether an error is the cache-miss signal.
func IsMiss(err error) bool {
	return errors.Is(err, core.ErrClipMiss)
}
