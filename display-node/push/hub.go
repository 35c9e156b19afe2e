// Package push is the WebSocket invalidation plane. Screens connect once,
// are placed in their school's group, and receive a tiny invalidate message
// whenever the school's revision moves; the snapshot itself still travels
// over HTTP. Polling remains the source of truth, so everything here fails
// toward "the screen polls a little longer".
package push

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/monitoring/wsstats"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "push")

// event is one invalidation to fan out to a school group.
type event struct {
	school   int64
	revision int64
}

// Hub tracks connected clients per school and fans invalidations out to
// them. The group map is owned by the Run loop; handlers talk to it through
// the register, unregister and events channels only.
type Hub struct {
	stats *wsstats.Tracker

	register   chan *Client
	unregister chan *Client
	events     chan event

	groups map[int64]map[*Client]bool
	size   int64
	done   chan struct{}
}

// NewHub builds a hub around the shared connection tracker.
func NewHub(stats *wsstats.Tracker) *Hub {
	return &Hub{
		stats:      stats,
		register:   make(chan *Client, 16),
		unregister: make(chan *Client, 16),
		events:     make(chan event, 64),
		groups:     make(map[int64]map[*Client]bool),
		done:       make(chan struct{}),
	}
}

// Len is the current connection count. Handshakes read it against the
// capacity cap before upgrading.
func (h *Hub) Len() int64 {
	return atomic.LoadInt64(&h.size)
}

// Invalidate queues a fan-out to one school's group.
func (h *Hub) Invalidate(school, revision int64) {
	select {
	case h.events <- event{school: school, revision: revision}:
	default:
		// The hub is wedged or drowning; the poll loop covers the miss.
		log.WithField("school", school).Warn("Invalidate queue full, dropping fan-out")
	}
}

// Run owns the group map until ctx is done. Pending channel traffic is
// drained on the way out so handler goroutines never block on a dead hub.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, group := range h.groups {
				for c := range group {
					h.drop(c)
				}
			}
			atomic.StoreInt64(&h.size, 0)
			h.drain()
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case ev := <-h.events:
			h.flush(ev)
		}
	}
}

// Wait blocks until the run loop has fully stopped.
func (h *Hub) Wait() {
	<-h.done
}

func (h *Hub) add(c *Client) {
	group, ok := h.groups[c.school]
	if !ok {
		group = make(map[*Client]bool)
		h.groups[c.school] = group
	}
	group[c] = true
	atomic.AddInt64(&h.size, 1)
	h.stats.ConnOpened()
}

func (h *Hub) remove(c *Client) {
	group, ok := h.groups[c.school]
	if !ok || !group[c] {
		return
	}
	delete(group, c)
	if len(group) == 0 {
		delete(h.groups, c.school)
	}
	atomic.AddInt64(&h.size, -1)
	h.stats.ConnClosed()
	h.drop(c)
}

// drop closes the client's queue, which ends its write pump.
func (h *Hub) drop(c *Client) {
	close(c.send)
}

func (h *Hub) flush(ev event) {
	group := h.groups[ev.school]
	if len(group) == 0 {
		return
	}
	msg, err := json.Marshal(&display.WSMessage{Type: display.MsgInvalidate, Revision: ev.revision})
	if err != nil {
		log.WithError(err).Error("Could not encode invalidate message")
		return
	}
	start := time.Now()
	for c := range group {
		select {
		case c.send <- msg:
			h.stats.BroadcastSent(time.Since(start))
		default:
			// A slow client must not stall its whole school.
			h.stats.BroadcastFailed()
			h.remove(c)
		}
	}
	log.WithFields(logrus.Fields{
		"school":   ev.school,
		"revision": ev.revision,
		"clients":  len(group),
	}).Debug("Invalidation fanned out")
}

func (h *Hub) drain() {
	for {
		select {
		case c := <-h.register:
			close(c.send)
		case <-h.unregister:
		case <-h.events:
		default:
			return
		}
	}
}
