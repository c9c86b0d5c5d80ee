package objectstore_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/book-expert/narration-service/internal/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zoneTestTimeout = 5 * time.Second

// fakeZone is an in-memory storage zone speaking the PUT/GET/HEAD
// protocol with access-key authentication.
type fakeZone struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeZone() *fakeZone {
	return &fakeZone{objects: make(map[string][]byte)}
}

func (f *fakeZone) handler(t *testing.T) http.Handler {
	t.Helper()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("AccessKey") != "zone-secret" {
			w.WriteHeader(http.StatusUnauthorized)

			return
		}

		f.mu.Lock()
		defer f.mu.Unlock()

		switch r.Method {
		case http.MethodPut:
			body, err := io.ReadAll(r.Body)
			require.NoError(t, err)

			f.objects[r.URL.Path] = body
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			data, ok := f.objects[r.URL.Path]
			if !ok {
				w.WriteHeader(http.StatusNotFound)

				return
			}

			_, _ = w.Write(data)
		case http.MethodHead:
			if _, ok := f.objects[r.URL.Path]; !ok {
				w.WriteHeader(http.StatusNotFound)

				return
			}

			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
}

func TestZoneClient_UploadDownloadExists(t *testing.T) {
	t.Parallel()

	zone := newFakeZone()
	server := httptest.NewServer(zone.handler(t))
	defer server.Close()

	client := objectstore.NewZoneClient(
		server.URL, "https://cdn.example.com", "reading-app", "zone-secret", zoneTestTimeout)

	ctx := context.Background()
	key := "audio/quizzes/deadbeef.mp3"
	data := []byte("mp3 clip bytes")

	exists, err := client.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)

	err = client.Upload(ctx, key, data)
	require.NoError(t, err)

	exists, err = client.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := client.Download(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, data, got)

	assert.Equal(t, "https://cdn.example.com/"+key, client.URL(key))
}

func TestZoneClient_RejectsBadAccessKey(t *testing.T) {
	t.Parallel()

	zone := newFakeZone()
	server := httptest.NewServer(zone.handler(t))
	defer server.Close()

	client := objectstore.NewZoneClient(
		server.URL, "https://cdn.example.com", "reading-app", "wrong-key", zoneTestTimeout)

	err := client.Upload(context.Background(), "audio/words/x.mp3", []byte("bytes"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestZoneClient_DownloadMissing(t *testing.T) {
	t.Parallel()

	zone := newFakeZone()
	server := httptest.NewServer(zone.handler(t))
	defer server.Close()

	client := objectstore.NewZoneClient(
		server.URL, "https://cdn.example.com", "reading-app", "zone-secret", zoneTestTimeout)

	_, err := client.Download(context.Background(), "audio/quizzes/absent.mp3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}
