package push

import (
	"context"
	"net/http"
	"time"

	"github.com/azzam1122112-dot/school-display/api/display"
	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/azzam1122112-dot/school-display/display-node/binding"
	"github.com/azzam1122112-dot/school-display/display-node/store"
	"github.com/azzam1122112-dot/school-display/monitoring/wsstats"
	"github.com/azzam1122112-dot/school-display/network/httputil"
	"github.com/azzam1122112-dot/school-display/runtime"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/kevinms/leakybucket-go"
	"github.com/pkg/errors"
)

var _ runtime.Service = (*Service)(nil)

// Binder makes the admission decision for a connecting screen.
type Binder interface {
	Authorize(ctx context.Context, token, device string) (*binding.Identity, error)
}

// InvalidationSource streams revision invalidations for every school.
type InvalidationSource interface {
	SubscribeInvalidate(ctx context.Context) (<-chan store.Invalidation, func() error)
}

// Config options for the push plane.
type Config struct {
	Screens Binder
	Source  InvalidationSource
	Stats   *wsstats.Tracker
	// StatsLogInterval is the cadence of the health summary log line.
	// Zero disables it.
	StatsLogInterval time.Duration
}

// Service owns the hub, the handshake route and the Redis invalidation
// consumer that feeds it.
type Service struct {
	ctx      context.Context
	cancel   context.CancelFunc
	cfg      *Config
	hub      *Hub
	buckets  *leakybucket.Collector
	upgrader websocket.Upgrader
}

// NewService wires the push plane. Routes attach via RegisterRoutes and the
// goroutines start on Start.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	p := params.DisplayConfig()
	return &Service{
		ctx:     ctx,
		cancel:  cancel,
		cfg:     cfg,
		hub:     NewHub(cfg.Stats),
		buckets: leakybucket.NewCollector(float64(p.WSHandshakeRate), p.WSHandshakeCapacity, true),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The screen token is the whole trust model; origins are not.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// RegisterRoutes attaches the handshake endpoint.
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws/display/", s.Handshake).Methods(http.MethodGet)
}

// Hub exposes the fan-out side so the node can bridge local bumps directly.
func (s *Service) Hub() *Hub {
	return s.hub
}

// Start launches the hub loop and the invalidation consumer.
func (s *Service) Start() {
	log.Info("Starting push plane")
	go s.hub.Run(s.ctx)
	go s.consume()
	if s.cfg.StatsLogInterval > 0 {
		go s.cfg.Stats.LogPeriodically(s.ctx, s.cfg.StatsLogInterval)
	}
}

func (s *Service) consume() {
	events, closeSub := s.cfg.Source.SubscribeInvalidate(s.ctx)
	defer func() {
		if err := closeSub(); err != nil {
			log.WithError(err).Debug("Could not close invalidation subscription")
		}
	}()
	for ev := range events {
		s.hub.Invalidate(ev.SchoolID, ev.Revision)
	}
}

// Stop tears down the hub; connected clients get a going-away close.
func (s *Service) Stop() error {
	log.Info("Stopping push plane")
	s.cancel()
	s.hub.Wait()
	return nil
}

// Status reports saturation: a full plane still serves connected screens but
// refuses new ones, which operators should see.
func (s *Service) Status() error {
	if s.hub.Len() >= int64(params.DisplayConfig().WSChannelCapacity) {
		return errors.New("socket capacity reached")
	}
	return nil
}

// Handshake upgrades a screen connection. Throttle and capacity answer in
// plain HTTP before the upgrade; everything after it speaks close codes so
// the client can tell permanent rejections from transient ones.
func (s *Service) Handshake(w http.ResponseWriter, r *http.Request) {
	p := params.DisplayConfig()

	if s.buckets.Add(httputil.ClientIP(r), 1) == 0 {
		s.cfg.Stats.ConnFailed()
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
		return
	}
	if s.hub.Len() >= int64(p.WSChannelCapacity) {
		s.cfg.Stats.ConnFailed()
		httputil.HandleError(w, "socket capacity reached", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	token, device := q.Get("token"), q.Get("dk")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already answered the client.
		s.cfg.Stats.ConnFailed()
		log.WithError(err).Debug("Socket upgrade failed")
		return
	}

	if token == "" || device == "" {
		s.refuse(conn, display.CloseMissingParams, "missing token or dk")
		return
	}

	id, err := s.cfg.Screens.Authorize(s.ctx, token, device)
	if err != nil {
		switch {
		case errors.Is(err, binding.ErrScreenUnknown):
			s.refuse(conn, display.CloseUnknownScreen, "unknown screen")
		case errors.Is(err, binding.ErrScreenBound):
			s.refuse(conn, display.CloseScreenBound, "screen bound elsewhere")
		case errors.Is(err, binding.ErrDeviceRequired):
			s.refuse(conn, display.CloseMissingParams, "missing device key")
		default:
			log.WithError(err).Error("Socket authorization failed")
			s.refuse(conn, display.CloseInternalError, "authorization unavailable")
		}
		return
	}

	c := newClient(s.hub, conn, id.SchoolID)
	s.hub.register <- c
	go c.writePump()
	go c.readPump()

	log.WithField("school", id.SchoolID).Info("Screen connected to push plane")
}

// refuse closes a just-upgraded socket with a protocol close code.
func (s *Service) refuse(conn *websocket.Conn, code int, reason string) {
	s.cfg.Stats.ConnFailed()
	deadline := time.Now().Add(params.DisplayConfig().WSWriteTimeout)
	msg := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		log.WithError(err).Debug("Could not write refusal close")
	}
	if err := conn.Close(); err != nil {
		log.WithError(err).Debug("Could not close refused socket")
	}
	log.WithField("code", code).Debug("Socket handshake refused")
}
