// Package cache_test tests the tiered clip cache.
package cache_test

import (
	"context"
	"errors"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/narration-service/internal/cache"
	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errHotDown     = errors.New("hot tier down")
	errDurableDown = errors.New("durable tier down")
)

// fakeHotStore is an in-memory hot tier with call counting.
type fakeHotStore struct {
	entries  map[string][]byte
	getCalls int
	setCalls int
	failGets bool
	failSets bool
}

func newFakeHotStore() *fakeHotStore {
	return &fakeHotStore{entries: make(map[string][]byte)}
}

func (f *fakeHotStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.getCalls++

	if f.failGets {
		return nil, false, errHotDown
	}

	data, ok := f.entries[key]

	return data, ok, nil
}

func (f *fakeHotStore) Set(_ context.Context, key string, value []byte) error {
	f.setCalls++

	if f.failSets {
		return errHotDown
	}

	f.entries[key] = value

	return nil
}

// fakeObjectStore is an in-memory durable tier with call counting.
type fakeObjectStore struct {
	objects       map[string][]byte
	existsCalls   int
	downloadCalls int
	uploadCalls   int
	failAll       bool
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: make(map[string][]byte)}
}

func (f *fakeObjectStore) Upload(_ context.Context, key string, data []byte) error {
	f.uploadCalls++

	if f.failAll {
		return errDurableDown
	}

	f.objects[key] = data

	return nil
}

func (f *fakeObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	f.downloadCalls++

	if f.failAll {
		return nil, errDurableDown
	}

	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("missing object")
	}

	return data, nil
}

func (f *fakeObjectStore) Exists(_ context.Context, key string) (bool, error) {
	f.existsCalls++

	if f.failAll {
		return false, errDurableDown
	}

	_, ok := f.objects[key]

	return ok, nil
}

func (f *fakeObjectStore) URL(key string) string {
	return "https://cdn.test/" + key
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "cache-test.log")
	require.NoError(t, err)

	return log
}

func sampleRequest() core.SynthesisRequest {
	return core.SynthesisRequest{
		Text:     "The fox ran. It jumped high!",
		Provider: "openai",
		Voice:    "nova",
		Speed:    1,
		Model:    "tts-1",
		Category: core.CategoryQuiz,
	}
}

func TestLookup_MissOnEmptyTiers(t *testing.T) {
	t.Parallel()

	tiered := cache.New(newFakeHotStore(), newFakeObjectStore(), 0, testLogger(t))

	_, err := tiered.Lookup(context.Background(), sampleRequest())
	require.ErrorIs(t, err, core.ErrClipMiss)
	assert.True(t, cache.IsMiss(err))
}

func TestLookup_HotHitSkipsDurable(t *testing.T) {
	t.Parallel()

	hot := newFakeHotStore()
	durable := newFakeObjectStore()
	tiered := cache.New(hot, durable, 0, testLogger(t))

	req := sampleRequest()
	hot.entries[fingerprint.HotKey(req)] = []byte("cached-audio")

	result, err := tiered.Lookup(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, cache.TierHot, result.Tier)
	assert.Equal(t, []byte("cached-audio"), result.Audio)
	assert.Empty(t, result.URL)
	assert.Zero(t, durable.existsCalls, "hot hit must not touch the durable tier")
}

func TestLookup_DurableHitBackfillsHot(t *testing.T) {
	t.Parallel()

	hot := newFakeHotStore()
	durable := newFakeObjectStore()
	tiered := cache.New(hot, durable, 0, testLogger(t))

	req := sampleRequest()
	objectKey := fingerprint.ObjectKey(req)
	durable.objects[objectKey] = []byte("durable-audio")

	ctx := context.Background()

	first, err := tiered.Lookup(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, cache.TierDurable, first.Tier)
	assert.Equal(t, "https://cdn.test/"+objectKey, first.URL)
	assert.Equal(t, 1, hot.setCalls, "durable hit must backfill the hot tier")

	// Write-back: the second identical request is served hot, with no
	// further durable round trip.
	second, err := tiered.Lookup(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, cache.TierHot, second.Tier)
	assert.Equal(t, []byte("durable-audio"), second.Audio)
	assert.Equal(t, 1, durable.existsCalls)
	assert.Equal(t, 1, durable.downloadCalls)
}

func TestLookup_HotFailureDegradesToDurable(t *testing.T) {
	t.Parallel()

	hot := newFakeHotStore()
	hot.failGets = true
	hot.failSets = true

	durable := newFakeObjectStore()
	tiered := cache.New(hot, durable, 0, testLogger(t))

	req := sampleRequest()
	durable.objects[fingerprint.ObjectKey(req)] = []byte("durable-audio")

	result, err := tiered.Lookup(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, cache.TierDurable, result.Tier)
}

func TestLookup_DurableOutageIsAMiss(t *testing.T) {
	t.Parallel()

	durable := newFakeObjectStore()
	durable.failAll = true

	tiered := cache.New(nil, durable, 0, testLogger(t))

	_, err := tiered.Lookup(context.Background(), sampleRequest())
	require.ErrorIs(t, err, core.ErrClipMiss)
}

func TestLookup_NoHotTierConfigured(t *testing.T) {
	t.Parallel()

	durable := newFakeObjectStore()
	tiered := cache.New(nil, durable, 0, testLogger(t))

	assert.False(t, tiered.HotEnabled())

	req := sampleRequest()
	durable.objects[fingerprint.ObjectKey(req)] = []byte("durable-audio")

	result, err := tiered.Lookup(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, cache.TierDurable, result.Tier)
}

func TestStore_WritesBothTiers(t *testing.T) {
	t.Parallel()

	hot := newFakeHotStore()
	durable := newFakeObjectStore()
	tiered := cache.New(hot, durable, 0, testLogger(t))

	req := sampleRequest()

	url, err := tiered.Store(context.Background(), req, []byte("fresh-audio"))
	require.NoError(t, err)

	objectKey := fingerprint.ObjectKey(req)
	assert.Equal(t, "https://cdn.test/"+objectKey, url)
	assert.Equal(t, url, tiered.URLFor(req))
	assert.Equal(t, []byte("fresh-audio"), durable.objects[objectKey])
	assert.Equal(t, []byte("fresh-audio"), hot.entries[fingerprint.HotKey(req)])
}

func TestStore_OversizedPayloadSkipsHotTier(t *testing.T) {
	t.Parallel()

	hot := newFakeHotStore()
	durable := newFakeObjectStore()
	tiered := cache.New(hot, durable, 16, testLogger(t))

	req := sampleRequest()
	big := make([]byte, 64)

	url, err := tiered.Store(context.Background(), req, big)
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	assert.Zero(t, hot.setCalls, "oversized payloads must not enter the hot tier")
	assert.Equal(t, 1, durable.uploadCalls, "oversized payloads are still stored durably")
}

func TestStore_HotFailureDoesNotFailStore(t *testing.T) {
	t.Parallel()

	hot := newFakeHotStore()
	hot.failSets = true

	durable := newFakeObjectStore()
	tiered := cache.New(hot, durable, 0, testLogger(t))

	url, err := tiered.Store(context.Background(), sampleRequest(), []byte("fresh-audio"))
	require.NoError(t, err)
	assert.NotEmpty(t, url)
}

func TestStore_DurableFailurePropagates(t *testing.T) {
	t.Parallel()

	durable := newFakeObjectStore()
	durable.failAll = true

	tiered := cache.New(nil, durable, 0, testLogger(t))

	_, err := tiered.Store(context.Background(), sampleRequest(), []byte("fresh-audio"))
	require.ErrorIs(t, err, errDurableDown)
}
