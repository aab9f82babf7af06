package grant

import (
	"context"
	"log/slog"
	"time"
)

// EvaluateCircuitBreakersOnce recomputes every feature's circuit from its
// current access window: the circuit is open iff the denial rate among
// distinct in-window users exceeds the threshold (strictly greater).
// Features with no users in the window are skipped so an open circuit is
// not closed on a quiet feature with nothing to prove recovery.
func (s *Service) EvaluateCircuitBreakersOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.features {
		log := s.logs[f.Name]
		users := log.distinctUsers()
		if users == 0 {
			continue
		}

		rate := float64(log.distinctDenied()) / float64(users)
		open := rate > s.cfg.DenialThreshold
		if open != s.circuits[f.Name] {
			if open {
				slog.Warn("Circuit opened, failing open",
					"feature", f.Name,
					"denial_rate", rate,
					"users_in_window", users,
				)
			} else {
				slog.Info("Circuit closed",
					"feature", f.Name,
					"denial_rate", rate,
					"users_in_window", users,
				)
			}
			s.metrics.RecordCircuitTransition(context.Background(), f.Name, open)
		}
		s.circuits[f.Name] = open
	}
}

// RunBreakerLoop evaluates the circuit breakers immediately, then on every
// interval tick, until the context is cancelled.
func (s *Service) RunBreakerLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	slog.Info("Circuit breaker loop started",
		"interval", s.cfg.Interval,
		"window", s.cfg.Window,
		"denial_threshold", s.cfg.DenialThreshold,
	)

	s.EvaluateCircuitBreakersOnce()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Circuit breaker loop stopped")
			return nil
		case <-ticker.C:
			s.EvaluateCircuitBreakersOnce()
		}
	}
}
