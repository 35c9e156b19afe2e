// Package rpc hosts the display node's public HTTP surface: the display API
// routes behind CORS and request logging.
package rpc

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/azzam1122112-dot/school-display/display-node/rpc/display"
	"github.com/azzam1122112-dot/school-display/network/httputil"
	"github.com/azzam1122112-dot/school-display/runtime"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "rpc")

var _ runtime.Service = (*Service)(nil)

// Config options for the display HTTP server.
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string
	Display        *display.Server
}

// Service serves the display API over plain HTTP.
type Service struct {
	ctx          context.Context
	cancel       context.CancelFunc
	cfg          *Config
	router       *mux.Router
	server       *http.Server
	startFailure error
}

// NewService wires routes and middleware. Listening starts on Start.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	router := mux.NewRouter()
	router.Use(requestLogger)
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.HandleError(w, "route not found", http.StatusNotFound)
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.HandleError(w, "method not allowed", http.StatusMethodNotAllowed)
	})
	cfg.Display.RegisterRoutes(router)

	s := &Service{ctx: ctx, cancel: cancel, cfg: cfg, router: router}
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(router),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Router exposes the underlying mux so the push plane can attach its
// handshake route before Start.
func (s *Service) Router() *mux.Router {
	return s.router
}

// Start begins serving in the background.
func (s *Service) Start() {
	go func() {
		log.WithField("address", s.server.Addr).Info("Starting display API")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Could not serve display API")
			s.startFailure = err
		}
	}()
}

// Stop drains in-flight requests with a short grace window.
func (s *Service) Stop() error {
	if s.server != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(s.ctx, 2*time.Second)
		defer shutdownCancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				log.Warn("Existing connections terminated")
			} else {
				log.WithError(err).Error("Could not gracefully shut down display API")
			}
		}
	}
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// Status returns the startup failure, if any.
func (s *Service) Status() error {
	return s.startFailure
}

func (s *Service) corsMiddleware(h http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodPost, http.MethodGet, http.MethodOptions},
		AllowCredentials: true,
		MaxAge:           600,
		AllowedHeaders:   []string{"*"},
	})
	return c.Handler(h)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack keeps WebSocket upgrades working through the logging wrapper.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return hj.Hijack()
}

// requestLogger logs the matched route template rather than the raw path so
// screen tokens never reach the logs.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		log.WithFields(logrus.Fields{
			"method":   r.Method,
			"route":    route,
			"status":   rec.status,
			"duration": time.Since(start),
		}).Debug("Served display request")
	})
}
