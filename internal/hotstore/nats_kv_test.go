// Package hotstore_test tests the NATS key-value hot tier.
package hotstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/book-expert/narration-service/internal/hotstore"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StartTestServer starts an in-memory NATS server for testing purposes.
func StartTestServer(t *testing.T) (*server.Server, *nats.Conn) {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1 // Use a random port
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	natsServer := test.RunServer(&opts)

	natsConnection, err := nats.Connect(natsServer.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	return natsServer, natsConnection
}

func TestNatsKeyValueStore_SetGet(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := StartTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := hotstore.New(jetstreamContext, "test-hot-cache", time.Hour)
	require.NoError(t, err)

	ctx := context.Background()

	// Composite keys contain characters NATS would reject raw.
	key := "tts:v2:tts-1:nova:1:quizzes:the fox ran. it jumped high!"
	payload := []byte("mp3-bytes")

	err = store.Set(ctx, key, payload)
	require.NoError(t, err)

	got, ok, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, payload, got)
}

func TestNatsKeyValueStore_MissingKey(t *testing.T) {
	t.Parallel()

	natsServer, natsConnection := StartTestServer(t)
	defer natsServer.Shutdown()
	defer natsConnection.Close()

	jetstreamContext, err := natsConnection.JetStream()
	require.NoError(t, err)

	store, err := hotstore.New(jetstreamContext, "test-hot-miss", time.Hour)
	require.NoError(t, err)

	got, ok, err := store.Get(context.Background(), "tts:v2:absent")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, got)
}
