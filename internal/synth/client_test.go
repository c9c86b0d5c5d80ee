// Package synth_test tests the speech HTTP adapter.
package synth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/book-expert/narration-service/internal/core"
	"github.com/book-expert/narration-service/internal/synth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 5 * time.Second

func sampleRequest() core.SynthesisRequest {
	return core.SynthesisRequest{
		Text:     "The fox ran.",
		Provider: "openai",
		Voice:    "nova",
		Speed:    1,
		Model:    "tts-1",
		Category: core.CategoryQuiz,
	}
}

func TestGenerateSpeech_Success(t *testing.T) {
	t.Parallel()

	wantAudio := []byte("mp3-bytes")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var payload map[string]any

		err := json.NewDecoder(r.Body).Decode(&payload)
		require.NoError(t, err)

		assert.Equal(t, "tts-1", payload["model"])
		assert.Equal(t, "The fox ran.", payload["input"])
		assert.Equal(t, "nova", payload["voice"])
		assert.Equal(t, "mp3", payload["response_format"])

		_, _ = w.Write(wantAudio)
	}))
	defer server.Close()

	client := synth.NewHTTPClient(server.URL, "test-key", testTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	audio, err := client.GenerateSpeech(ctx, sampleRequest())
	require.NoError(t, err)
	assert.Equal(t, wantAudio, audio)
}

func TestGenerateSpeech_ValidationBeforeIO(t *testing.T) {
	t.Parallel()

	called := false

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := synth.NewHTTPClient(server.URL, "", testTimeout)

	empty := sampleRequest()
	empty.Text = ""

	_, err := client.GenerateSpeech(context.Background(), empty)
	require.ErrorIs(t, err, core.ErrTextEmpty)

	tooFast := sampleRequest()
	tooFast.Speed = 9

	_, err = client.GenerateSpeech(context.Background(), tooFast)
	require.ErrorIs(t, err, core.ErrSpeedRange)

	assert.False(t, called, "no request should reach the service")
}

func TestGenerateSpeech_StructuredUpstreamError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"unknown voice 'kazoo'","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	client := synth.NewHTTPClient(server.URL, "", testTimeout)

	_, err := client.GenerateSpeech(context.Background(), sampleRequest())
	require.ErrorIs(t, err, core.ErrSynthesisFailed)
	assert.Contains(t, err.Error(), "unknown voice 'kazoo'")
	assert.Contains(t, err.Error(), "400")
}

func TestGenerateSpeech_RawUpstreamError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("upstream overloaded"))
	}))
	defer server.Close()

	client := synth.NewHTTPClient(server.URL, "", testTimeout)

	_, err := client.GenerateSpeech(context.Background(), sampleRequest())
	require.ErrorIs(t, err, core.ErrSynthesisFailed)
	assert.Contains(t, err.Error(), "upstream overloaded")
}

func TestGenerateSpeech_EmptyAudio(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := synth.NewHTTPClient(server.URL, "", testTimeout)

	_, err := client.GenerateSpeech(context.Background(), sampleRequest())
	require.ErrorIs(t, err, synth.ErrEmptyAudio)
}
