package core

import "context"

// ObjectStore is the durable, content-addressed tier holding the
// authoritative copy of each clip.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte) error
	Download(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	URL(key string) string
}

// HotStore is the fast, TTL-based cache tier checked before the durable
// tier. The expiry is fixed per store, not per key.
type HotStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Synthesizer turns text into raw MP3 bytes by calling the external
// speech capability. No retry happens at this boundary.
type Synthesizer interface {
	GenerateSpeech(ctx context.Context, req SynthesisRequest) ([]byte, error)
}
