package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	api "github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/azzam1122112-dot/school-display/testing/assert"
	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// setupSocketServer runs handler for every websocket upgrade and returns the
// ws:// URL plus a cumulative upgrade count. The handler receives the 1-based
// ordinal of its connection.
func setupSocketServer(t *testing.T, handler func(conn *websocket.Conn, n int64)) (string, *int64) {
	params.SetupTestConfigCleanup(t)
	params.OverrideDisplayConfig(agentTestConfig())

	var upgrades int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		handler(conn, atomic.AddInt64(&upgrades, 1))
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/display/?token=tok&dk=dev", &upgrades
}

func runSocket(t *testing.T, url string, events chan<- int64) (context.CancelFunc, chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		newSocket(url, events).run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("socket loop did not stop")
		}
	})
	return cancel, done
}

func TestSocket_ForwardsInvalidations(t *testing.T) {
	url, _ := setupSocketServer(t, func(conn *websocket.Conn, _ int64) {
		if err := conn.WriteJSON(&api.WSMessage{Type: api.MsgInvalidate, Revision: 7}); err != nil {
			t.Errorf("write failed: %v", err)
		}
		// Hold the connection so the client does not treat this as a drop.
		time.Sleep(time.Second)
		_ = conn.Close()
	})

	events := make(chan int64, 1)
	runSocket(t, url, events)

	select {
	case rev := <-events:
		assert.Equal(t, int64(7), rev)
	case <-time.After(2 * time.Second):
		t.Fatal("no invalidation forwarded")
	}
}

func TestSocket_SendsApplicationPings(t *testing.T) {
	got := make(chan string, 1)
	url, _ := setupSocketServer(t, func(conn *websocket.Conn, _ int64) {
		var msg api.WSMessage
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Errorf("read failed: %v", err)
			return
		}
		got <- msg.Type
		time.Sleep(time.Second)
		_ = conn.Close()
	})

	runSocket(t, url, make(chan int64, 1))

	select {
	case typ := <-got:
		assert.Equal(t, api.MsgPing, typ)
	case <-time.After(2 * time.Second):
		t.Fatal("no ping arrived at the server")
	}
}

func TestSocket_PermanentRefusalStopsRedialing(t *testing.T) {
	url, upgrades := setupSocketServer(t, func(conn *websocket.Conn, _ int64) {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(api.CloseUnknownScreen, "screen unknown"), deadline)
		// Leave closing the TCP side to the client.
		time.Sleep(500 * time.Millisecond)
		_ = conn.Close()
	})

	_, done := runSocket(t, url, make(chan int64, 1))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refused socket kept running")
	}
	// Reconnect backoff under test config is milliseconds, so any redial
	// would have landed by now.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(upgrades), "a refused handshake must not be retried")
}

func TestSocket_RedialsAfterDrop(t *testing.T) {
	url, upgrades := setupSocketServer(t, func(conn *websocket.Conn, n int64) {
		if n == 1 {
			_ = conn.Close()
			return
		}
		time.Sleep(time.Second)
		_ = conn.Close()
	})

	runSocket(t, url, make(chan int64, 1))

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt64(upgrades) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected a redial, saw %d connections", atomic.LoadInt64(upgrades))
		}
		time.Sleep(5 * time.Millisecond)
	}
}
