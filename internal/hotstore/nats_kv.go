// Package hotstore provides a NATS JetStream KeyValue implementation of
// the hot cache tier.
package hotstore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NatsKeyValueStore implements core.HotStore on a JetStream KeyValue
// bucket. Expiry is bucket-level: every entry lives for the TTL the
// bucket was created with.
type NatsKeyValueStore struct {
	bucket string
	kv     nats.KeyValue
}

// New creates the KeyValue bucket with the given TTL, binding to it if it
// already exists.
func New(jetstreamContext nats.JetStreamContext, bucketName string, ttl time.Duration) (*NatsKeyValueStore, error) {
	kv, err := jetstreamContext.CreateKeyValue(&nats.KeyValueConfig{
		Bucket:       bucketName,
		Description:  fmt.Sprintf("Hot audio cache for the %s bucket.", bucketName),
		MaxValueSize: 0,
		History:      1,
		TTL:          ttl,
		MaxBytes:     0,
		Storage:      nats.FileStorage,
		Replicas:     1,
		Placement:    nil,
	})

	// A create rejected because the bucket already exists (possibly with
	// a different TTL) falls back to binding to it.
	if err != nil {
		kv, err = jetstreamContext.KeyValue(bucketName)
		if err != nil {
			return nil, fmt.Errorf("failed to create or bind key-value bucket '%s': %w", bucketName, err)
		}
	}

	return &NatsKeyValueStore{
		bucket: bucketName,
		kv:     kv,
	}, nil
}

// Get fetches a cached payload. A missing or expired key reports ok=false
// without an error.
func (s *NatsKeyValueStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	entry, err := s.kv.Get(encodeKey(key))
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return nil, false, nil
		}

		return nil, false, fmt.Errorf("failed to get key '%s' from bucket '%s': %w", key, s.bucket, err)
	}

	return entry.Value(), true, nil
}

// Set writes a payload under the bucket's TTL.
func (s *NatsKeyValueStore) Set(_ context.Context, key string, value []byte) error {
	_, err := s.kv.Put(encodeKey(key), value)
	if err != nil {
		return fmt.Errorf("failed to put key '%s' to bucket '%s': %w", key, s.bucket, err)
	}

	return nil
}

// encodeKey maps a composite cache key onto the restricted NATS key
// charset. base64url keeps the mapping invertible for cache tooling.
func encodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}
