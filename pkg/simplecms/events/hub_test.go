package events_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-cms/pkg/simplecms/events"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubBroadcast(t *testing.T) {
	hub := events.NewHub(nil)
	defer hub.Close()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)

	require.NoError(t, hub.Publish(context.Background(), "blog:created", map[string]string{"slug": "hello"}))

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		var env events.Envelope
		require.NoError(t, json.Unmarshal(msg, &env))
		assert.Equal(t, "blog:created", env.Event)
		assert.False(t, env.At.IsZero())

		payload, ok := env.Payload.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "hello", payload["slug"])
	}
}

func TestHubConcurrentPublish(t *testing.T) {
	hub := events.NewHub(nil)
	defer hub.Close()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	const publishers = 64
	payload := strings.Repeat("x", 64<<10)

	// Writes to one subscriber must be serialized even when mutations
	// publish from many goroutines at once, e.g. a deferred create
	// finishing in the background while a handler publishes an update.
	errs := make(chan error, publishers)
	var wg sync.WaitGroup
	for i := 0; i < publishers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- hub.Publish(context.Background(), "blog:updated", map[string]string{"data": payload})
		}()
	}

	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	for i := 0; i < publishers; i++ {
		_, msg, err := conn.ReadMessage()
		require.NoError(t, err)

		var env events.Envelope
		require.NoError(t, json.Unmarshal(msg, &env))
		assert.Equal(t, "blog:updated", env.Event)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestHubPublishWithoutSubscribers(t *testing.T) {
	hub := events.NewHub(nil)
	defer hub.Close()

	assert.NoError(t, hub.Publish(context.Background(), "blog:deleted", map[string]string{"id": "x"}))
}

func TestHubDropsClosedSubscribers(t *testing.T) {
	hub := events.NewHub(nil)
	defer hub.Close()
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	conn.Close()

	// The read loop notices the close and unregisters the connection;
	// publishing afterwards must not fail.
	assert.Eventually(t, func() bool {
		return hub.Publish(context.Background(), "tick", nil) == nil
	}, 5*time.Second, 10*time.Millisecond)
}
