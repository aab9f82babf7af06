// Package grant holds the per-user feature grant state, the sliding access
// log backing the circuit breakers, and the breaker loop itself. All state
// is process-local and guarded by one mutex; every operation is O(small),
// so reads stay fast even though they serialize.
package grant

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	v1 "github.com/verdict-lab/project-verdict/internal/api/v1"
	"github.com/verdict-lab/project-verdict/internal/core/feature"
	"github.com/verdict-lab/project-verdict/internal/observability"
)

// Breaker defaults.
const (
	DefaultWindow          = 10 * time.Minute
	DefaultInterval        = 15 * time.Second
	DefaultDenialThreshold = 0.05
)

// Notifier receives grant-transition envelopes. Implementations must not
// block: grant mutations run on the event-processing path.
type Notifier interface {
	Publish(envelope v1.EventEnvelope)
}

// Config tunes the circuit breaker.
type Config struct {
	// Window is how far back access checks count toward the denial rate.
	Window time.Duration

	// Interval is how often circuits are re-evaluated.
	Interval time.Duration

	// DenialThreshold opens a circuit when the denial rate exceeds it
	// (strictly greater).
	DenialThreshold float64
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.DenialThreshold <= 0 {
		c.DenialThreshold = DefaultDenialThreshold
	}
	return c
}

// Service tracks which users hold which feature grants.
//
// Users default to fully granted: a user with no stored state reads true
// for every feature, and per-user state materializes only on the first
// mutation. Circuits fail open: while a feature's breaker is open, every
// access check answers true, but the access log keeps recording the true
// grant so the breaker sees through its own override.
type Service struct {
	mu       sync.Mutex
	features []*feature.Feature
	grants   map[string]map[string]bool // userID → feature name → granted
	circuits map[string]bool            // feature name → open (failing open)
	logs     map[string]*accessLog      // feature name → sliding window

	notifier Notifier
	metrics  *observability.Metrics
	cfg      Config

	nowFn func() time.Time // injectable clock
}

// NewService creates the grant service over a frozen feature registry.
func NewService(features *feature.Registry, notifier Notifier, cfg Config, metrics *observability.Metrics) *Service {
	if features == nil {
		panic("grant: feature registry is required")
	}
	if notifier == nil {
		panic("grant: notifier is required")
	}
	if metrics == nil {
		panic("grant: metrics are required")
	}

	list := features.List()
	logs := make(map[string]*accessLog, len(list))
	for _, f := range list {
		logs[f.Name] = newAccessLog()
	}

	return &Service{
		features: list,
		grants:   make(map[string]map[string]bool),
		circuits: make(map[string]bool),
		logs:     logs,
		notifier: notifier,
		metrics:  metrics,
		cfg:      cfg.withDefaults(),
		nowFn:    time.Now,
	}
}

// Grant sets the user's grant for a feature to true. Granting an already
// granted (or never-touched, hence default-true) user is a silent no-op;
// an actual transition emits an access_granted notification.
func (s *Service) Grant(userID string, f *feature.Feature) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.grantState(userID, f.Name) {
		return
	}
	s.ensureUser(userID)[f.Name] = true
	s.notifyLocked(userID, f.Name, true)
}

// Revoke sets the user's grant for a feature to false. Because grants
// default to true, the first revoke of a never-touched user is a real
// transition and notifies. Revoking an already revoked user is a no-op.
func (s *Service) Revoke(userID string, f *feature.Feature) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.grantState(userID, f.Name) {
		return
	}
	s.ensureUser(userID)[f.Name] = false
	s.notifyLocked(userID, f.Name, false)
}

// HasGrant answers an access check. The served answer is the true grant
// OR'd with the feature's circuit state; the access log records the true
// grant only, so denials stay visible to the breaker while it fails open.
func (s *Service) HasGrant(userID string, f *feature.Feature) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	trueGrant := s.grantState(userID, f.Name)
	s.logs[f.Name].observe(s.nowFn(), userID, trueGrant, s.cfg.Window)

	allowed := s.circuits[f.Name] || trueGrant
	s.metrics.RecordAccessCheck(context.Background(), f.Name, allowed)
	return allowed
}

// grantState reads the user's stored grant, or the default true when the
// user was never touched. It never materializes state.
func (s *Service) grantState(userID, featureName string) bool {
	if m, ok := s.grants[userID]; ok {
		return m[featureName]
	}
	return true
}

// ensureUser materializes the user's grant map, all features defaulting to
// true, from the registry list frozen at construction.
func (s *Service) ensureUser(userID string) map[string]bool {
	m, ok := s.grants[userID]
	if !ok {
		m = make(map[string]bool, len(s.features))
		for _, f := range s.features {
			m[f.Name] = true
		}
		s.grants[userID] = m
	}
	return m
}

func (s *Service) notifyLocked(userID, featureName string, granted bool) {
	name := v1.EventAccessRevoked
	if granted {
		name = v1.EventAccessGranted
	}

	slog.Info("Feature grant changed",
		"user_id", userID,
		"feature", featureName,
		"granted", granted,
	)
	s.metrics.RecordGrantTransition(context.Background(), featureName, granted)

	s.notifier.Publish(v1.EventEnvelope{
		UUID:      uuid.New(),
		Name:      name,
		Timestamp: s.nowFn(),
		EventProperties: map[string]interface{}{
			v1.PropertyUserID:  userID,
			v1.PropertyFeature: featureName,
		},
	})
}
