// Package binding authorizes display requests. It resolves screen tokens to
// school identities through an in-process memo so the steady-state polling
// path never touches SQL, and arbitrates the single-device claim on first
// contact. Claim losers are told the screen is taken; that answer is terminal
// for them.
package binding

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/azzam1122112-dot/school-display/config/features"
	"github.com/azzam1122112-dot/school-display/config/params"
	"github.com/azzam1122112-dot/school-display/crypto/hash"
	"github.com/azzam1122112-dot/school-display/display-node/db"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("prefix", "binding")

var (
	// ErrScreenUnknown covers both unknown and deactivated tokens.
	ErrScreenUnknown = errors.New("screen token unknown or inactive")
	// ErrScreenBound means the screen is claimed by a different device.
	ErrScreenBound = errors.New("screen is active on another device")
	// ErrDeviceRequired means the request carried no device key.
	ErrDeviceRequired = errors.New("device key required")
)

var (
	tokenCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "display_token_cache_hits_total",
		Help: "Token authorizations answered from the in-process memo.",
	})
	tokenCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "display_token_cache_misses_total",
		Help: "Token authorizations that had to read the database.",
	})
	screenClaims = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "display_screen_claims_total",
		Help: "Atomic device claim attempts by outcome.",
	}, []string{"result"})
)

// AuthStore is the slice of the database the binding service needs.
type AuthStore interface {
	ScreenByToken(ctx context.Context, token string) (*db.Screen, error)
	ClaimScreen(ctx context.Context, screenID int64, device string) (bool, error)
	TouchScreen(ctx context.Context, screenID int64) error
	UnbindScreen(ctx context.Context, token string) (bool, error)
}

// Identity is the resolved, authorization-checked view of a screen token.
type Identity struct {
	ScreenID    int64
	SchoolID    int64
	BoundDevice string
}

// Service memoizes token resolutions and binding state. Memo keys are hashes
// so raw tokens never appear in process memory dumps of the cache.
type Service struct {
	store AuthStore
	memo  *gocache.Cache
}

// NewService builds a binding service over the given store.
func NewService(store AuthStore) *Service {
	ttl := params.DisplayConfig().TokenCacheTTL
	return &Service{
		store: store,
		memo:  gocache.New(ttl, 2*ttl),
	}
}

func tokenKey(token string) string {
	h := hash.Hash256([]byte(token))
	return "tok:" + hex.EncodeToString(h[:])
}

func negKey(token string) string {
	h := hash.Hash256([]byte(token))
	return "neg:" + hex.EncodeToString(h[:])
}

// Authorize resolves the token and enforces the device binding. The device
// key is required even when multi-device mode is on; it keys the rate
// limiter. The first device to present an unbound screen claims it.
func (s *Service) Authorize(ctx context.Context, token, device string) (*Identity, error) {
	if token == "" {
		return nil, ErrScreenUnknown
	}
	if device == "" {
		return nil, ErrDeviceRequired
	}
	if _, known := s.memo.Get(negKey(token)); known {
		tokenCacheHits.Inc()
		return nil, ErrScreenUnknown
	}
	if v, ok := s.memo.Get(tokenKey(token)); ok {
		tokenCacheHits.Inc()
		id := v.(Identity)
		return s.enforce(ctx, token, id, device)
	}
	tokenCacheMisses.Inc()

	screen, err := s.store.ScreenByToken(ctx, token)
	if errors.Is(err, db.ErrNotFound) {
		s.memo.Set(negKey(token), true, params.DisplayConfig().TokenNegativeCacheTTL)
		return nil, ErrScreenUnknown
	}
	if err != nil {
		return nil, err
	}
	id := Identity{ScreenID: screen.ID, SchoolID: screen.SchoolID}
	if screen.BoundDeviceID.Valid {
		id.BoundDevice = screen.BoundDeviceID.String
	}
	s.memo.Set(tokenKey(token), id, gocache.DefaultExpiration)
	return s.enforce(ctx, token, id, device)
}

func (s *Service) enforce(ctx context.Context, token string, id Identity, device string) (*Identity, error) {
	if features.Get().AllowMultiDevice {
		out := id
		return &out, nil
	}
	switch id.BoundDevice {
	case device:
		out := id
		return &out, nil
	case "":
		return s.claim(ctx, token, id, device)
	default:
		return nil, ErrScreenBound
	}
}

// claim runs the conditional UPDATE. On a lost race the screen is re-read so
// the memo learns the winner; a same-device race still authorizes.
func (s *Service) claim(ctx context.Context, token string, id Identity, device string) (*Identity, error) {
	won, err := s.store.ClaimScreen(ctx, id.ScreenID, device)
	if err != nil {
		return nil, err
	}
	if won {
		screenClaims.WithLabelValues("won").Inc()
		claimed := Identity{ScreenID: id.ScreenID, SchoolID: id.SchoolID, BoundDevice: device}
		s.memo.Set(tokenKey(token), claimed, gocache.DefaultExpiration)
		log.WithFields(logrus.Fields{
			"screen": id.ScreenID,
			"school": id.SchoolID,
		}).Info("Screen bound to device")
		out := claimed
		return &out, nil
	}

	screen, err := s.store.ScreenByToken(ctx, token)
	if err != nil {
		return nil, errors.Wrap(err, "could not re-read screen after lost claim")
	}
	current := Identity{ScreenID: screen.ID, SchoolID: screen.SchoolID}
	if screen.BoundDeviceID.Valid {
		current.BoundDevice = screen.BoundDeviceID.String
	}
	s.memo.Set(tokenKey(token), current, gocache.DefaultExpiration)
	if current.BoundDevice == device {
		screenClaims.WithLabelValues("won").Inc()
		out := current
		return &out, nil
	}
	screenClaims.WithLabelValues("lost").Inc()
	return nil, ErrScreenBound
}

// MarkSeen records screen liveness at most once per minute per screen.
// Never gates a response; failures are logged and dropped.
func (s *Service) MarkSeen(ctx context.Context, id *Identity) {
	k := fmt.Sprintf("seen:%d", id.ScreenID)
	if _, ok := s.memo.Get(k); ok {
		return
	}
	s.memo.Set(k, true, time.Minute)
	if err := s.store.TouchScreen(ctx, id.ScreenID); err != nil {
		log.WithError(err).Debug("Could not update screen liveness")
	}
}

// Unbind clears the device binding and drops the local memo so the next
// authorization re-reads the database.
func (s *Service) Unbind(ctx context.Context, token string) (bool, error) {
	ok, err := s.store.UnbindScreen(ctx, token)
	if err != nil {
		return false, err
	}
	s.memo.Delete(tokenKey(token))
	s.memo.Delete(negKey(token))
	return ok, nil
}
