package client

import (
	"context"
	"net/http"
	"time"

	api "github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/gorilla/websocket"
)

// socket consumes the push plane and forwards invalidation revisions to the
// poll loop. It is an accelerator only: every failure path ends in "the poll
// loop keeps running", never in a stuck screen.
type socket struct {
	url    string
	events chan<- int64
}

func newSocket(url string, events chan<- int64) *socket {
	return &socket{url: url, events: events}
}

// run dials, consumes and redials until the context ends, the attempt budget
// is spent, or the node refuses the handshake permanently.
func (s *socket) run(ctx context.Context) {
	attempts := 0
	for ctx.Err() == nil {
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			attempts++
			if attempts > params.DisplayConfig().WSReconnectMaxAttempts {
				log.Warn("Push plane unreachable, continuing on polling alone")
				return
			}
			logDialFailure(err, resp, attempts)
			if !sleepCtx(ctx, reconnectDelay(attempts)) {
				return
			}
			continue
		}

		attempts = 0
		log.Info("Connected to push plane")
		err = s.consume(ctx, conn)
		if isPermanentRefusal(err) {
			log.WithError(err).Error("Push plane refused this screen, continuing on polling alone")
			return
		}
		if ctx.Err() == nil {
			log.WithError(err).Debug("Socket dropped, redialing")
			attempts = 1
			if !sleepCtx(ctx, reconnectDelay(attempts)) {
				return
			}
		}
	}
}

// consume reads frames until the connection dies. A side goroutine keeps the
// application level ping going; the server reaps silent connections.
func (s *socket) consume(ctx context.Context, conn *websocket.Conn) error {
	defer func() {
		_ = conn.Close()
	}()

	stop := make(chan struct{})
	defer close(stop)
	go pingLoop(ctx, conn, stop)

	for {
		var msg api.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		switch msg.Type {
		case api.MsgInvalidate:
			select {
			case s.events <- msg.Revision:
			default:
				// The poll loop is already waking up; a dropped duplicate
				// costs nothing.
			}
		case api.MsgPong:
		default:
			log.WithField("type", msg.Type).Debug("Ignoring unexpected socket message")
		}
	}
}

func pingLoop(ctx context.Context, conn *websocket.Conn, stop <-chan struct{}) {
	cfg := params.DisplayConfig()
	ticker := time.NewTicker(cfg.WSPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			deadline := time.Now().Add(cfg.WSWriteTimeout)
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "agent stopping"), deadline)
			_ = conn.Close()
			return
		case <-stop:
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(cfg.WSWriteTimeout))
			if err := conn.WriteJSON(&api.WSMessage{Type: api.MsgPing}); err != nil {
				// Unblock the read loop; run() owns the redial.
				_ = conn.Close()
				return
			}
		}
	}
}

// isPermanentRefusal recognizes the admission close codes. Redialing with the
// same token and device cannot change the answer.
func isPermanentRefusal(err error) bool {
	return websocket.IsCloseError(err,
		api.CloseMissingParams, api.CloseUnknownScreen, api.CloseScreenBound)
}

func logDialFailure(err error, resp *http.Response, attempt int) {
	entry := log.WithError(err).WithField("attempt", attempt)
	if resp != nil {
		entry = entry.WithField("status", resp.StatusCode)
	}
	entry.Debug("Socket dial failed")
}

// sleepCtx waits for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
