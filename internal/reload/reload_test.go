package reload

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/assetgrid/internal/testutil"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()

	ctx, _ := testutil.NewContext(t)
	srv := NewServer(ctx)
	mux := http.NewServeMux()
	mux.Handle("/socket.io/", srv.Handler())
	ts := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return srv, ts.URL
}

func TestBroadcastReachesClient(t *testing.T) {
	srv, url := newTestServer(t)
	ctx, _ := testutil.NewContext(t)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan Event, 4)
	connected := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		errc <- Listen(ctx, url, ClientOptions{Connected: func() { close(connected) }}, func(ev Event) {
			events <- ev
		})
	}()

	select {
	case <-connected:
	case err := <-errc:
		t.Fatalf("listen failed: %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for connection")
	}
	require.Eventually(t, func() bool { return srv.Clients() == 1 }, 5*time.Second, 20*time.Millisecond)

	srv.Broadcast(ctx, KindStylesheet)

	select {
	case ev := <-events:
		assert.Equal(t, Event{Type: KindStylesheet}, ev)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload event")
	}

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestListenRejectsBadURL(t *testing.T) {
	ctx, _ := testutil.NewContext(t)

	err := Listen(ctx, "localhost:3000", ClientOptions{}, func(Event) {})

	assert.ErrorContains(t, err, "must include a scheme and a host")
}

func TestListenStopsWhenCanceledBeforeConnect(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	// Nothing listens on this port, so the connection never completes.
	err := Listen(ctx, "http://127.0.0.1:1", ClientOptions{}, func(Event) {})

	assert.Error(t, err)
}

func TestDecodeEvent(t *testing.T) {
	ev, ok := decodeEvent([]any{map[string]any{"type": "page"}})
	assert.True(t, ok)
	assert.Equal(t, Event{Type: KindPage}, ev)

	_, ok = decodeEvent(nil)
	assert.False(t, ok)
	_, ok = decodeEvent([]any{"page"})
	assert.False(t, ok)
	_, ok = decodeEvent([]any{map[string]any{"type": 1}})
	assert.False(t, ok)
}

func TestConnectErr(t *testing.T) {
	cause := errors.New("websocket error")
	assert.Same(t, cause, connectErr([]any{cause}))
	assert.EqualError(t, connectErr([]any{"xhr poll error"}), "xhr poll error")
	assert.EqualError(t, connectErr(nil), "connection refused without a reason")
	assert.EqualError(t, connectErr([]any{nil}), "connection refused without a reason")
}

func TestNotifyKeepsFirstOutcome(t *testing.T) {
	ch := make(chan error, 1)
	first := errors.New("first")

	notify(ch, first)
	done := make(chan struct{})
	go func() {
		notify(ch, nil)
		notify(ch, errors.New("late"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notify blocked on a full channel")
	}
	assert.Same(t, first, <-ch)
}
