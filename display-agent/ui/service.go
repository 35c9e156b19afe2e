package ui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/azzam1122112-dot/school-display/display-agent/client"
	"github.com/azzam1122112-dot/school-display/time/serverclock"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "ui")

// Config holds the renderer wiring.
type Config struct {
	Updates <-chan *client.Update
	// Headless skips painting entirely; derived frames are logged at debug.
	Headless bool
	// Lite halves the frame rate for weak kiosk hardware.
	Lite     bool
	NoColors bool
	// Out overrides the default ANSI stdout writer. Tests paint into buffers.
	Out io.Writer
}

// Service drives the paint loop. It consumes runtime updates and repaints at
// the configured frame rate; a failing paint never propagates anywhere.
type Service struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    *Config

	r       *renderer
	ann     *rotator
	exc     *rotator
	started time.Time

	current *client.Update
	loc     *time.Location
	locName string
	alert   string
}

// NewService builds the ui service around a runtime update stream.
func NewService(ctx context.Context, cfg *Config) *Service {
	ctx, cancel := context.WithCancel(ctx)
	s := &Service{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
		ann:    newRotator(params.DisplayConfig().AnnouncementRotation),
		exc:    newRotator(params.DisplayConfig().ExcellenceRotation),
	}
	if !cfg.Headless {
		s.r = newRenderer(cfg.Out, !cfg.NoColors)
	}
	return s
}

// Start launches the paint loop.
func (s *Service) Start() {
	go s.run()
}

// Stop ends the paint loop.
func (s *Service) Stop() error {
	s.cancel()
	return nil
}

// Status is always healthy: paint failures degrade to an alert line instead
// of failing the node.
func (s *Service) Status() error {
	return nil
}

func (s *Service) run() {
	cfg := params.DisplayConfig()
	fps := cfg.RenderFPS
	if s.cfg.Lite {
		fps = cfg.LiteRenderFPS
	}
	if s.cfg.Headless || fps <= 0 {
		fps = 1
	}
	s.started = time.Now()

	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	if s.r != nil {
		s.r.paintBoot()
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		case u := <-s.cfg.Updates:
			s.apply(u)
		case <-ticker.C:
			s.renderOnce()
		}
	}
}

func (s *Service) apply(u *client.Update) {
	s.current = u
	if u.Blocked != nil {
		log.WithField("code", u.Blocked.Code).Error("Screen blocked, showing operator notice")
		return
	}
	s.syncLocation(u.Doc.Settings.TimezoneName)
	log.WithFields(logrus.Fields{
		"revision": u.Revision,
		"source":   u.Source,
		"stale":    u.Stale,
	}).Debug("Applied document to the screen")
}

// syncLocation resolves the school timezone once per change instead of on
// every frame.
func (s *Service) syncLocation(name string) {
	if name == s.locName {
		return
	}
	s.locName = name
	if name == "" {
		s.loc = time.Local
		return
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		log.WithError(err).WithField("tz", name).Warn("Unknown school timezone, using local")
		s.loc = time.Local
		return
	}
	s.loc = loc
}

// renderOnce derives and paints a single frame. Panics are caught here: a
// render failure surfaces as an alert line on the next frame and the loop
// keeps ticking.
func (s *Service) renderOnce() {
	defer func() {
		if rec := recover(); rec != nil {
			if msg := fmt.Sprintf("render failure: %v", rec); msg != s.alert {
				s.alert = msg
				log.WithField("panic", rec).Error("Render failed, screen continues on the next frame")
			}
		}
	}()

	u := s.current
	switch {
	case u == nil:
		return
	case u.Blocked != nil:
		if s.r != nil {
			s.r.paintBlocked(u.Blocked)
		}
		return
	}

	wall := time.Now()
	f := Derive(u.Doc, DeriveOpts{
		Now:      serverclock.Now(),
		Loc:      s.loc,
		AnnIndex: s.ann.index(wall, len(u.Doc.Announcements)),
		ExcIndex: s.exc.index(wall, len(u.Doc.Excellence)),
	})
	f.Alert = s.alert

	if s.cfg.Headless {
		log.WithFields(logrus.Fields{
			"state":     f.StateType,
			"headline":  f.Headline,
			"countdown": f.Countdown,
			"period":    f.PeriodIndex,
		}).Debug("Frame")
		return
	}
	s.r.paint(f, wall.Sub(s.started))
}
