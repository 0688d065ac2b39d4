// Package health aggregates component health checks behind a single HTTP
// endpoint for liveness and readiness probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CheckStatus represents the result of a health check.
type CheckStatus int

const (
	StatusHealthy CheckStatus = iota
	StatusDegraded
	StatusUnhealthy
)

func (s CheckStatus) String() string {
	switch s {
	case StatusHealthy:
		return "healthy"
	case StatusDegraded:
		return "degraded"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// MarshalJSON renders the status as its string form.
func (s CheckStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON parses the string form.
func (s *CheckStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	switch str {
	case "healthy":
		*s = StatusHealthy
	case "degraded":
		*s = StatusDegraded
	default:
		*s = StatusUnhealthy
	}
	return nil
}

// CheckResult contains the result of a single component check.
type CheckResult struct {
	Status    CheckStatus   `json:"status"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
	Timestamp time.Time     `json:"timestamp"`
	Component string        `json:"component"`
	Critical  bool          `json:"critical"`
}

// CheckFunc probes one component. A nil error means healthy.
type CheckFunc func(ctx context.Context) error

type checker struct {
	name     string
	critical bool
	check    CheckFunc
}

// Registry holds the registered component checks.
type Registry struct {
	mu       sync.RWMutex
	checkers []checker
	timeout  time.Duration
	logger   *zap.Logger
}

// NewRegistry returns an empty health check registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		timeout: 5 * time.Second,
		logger:  logger,
	}
}

// Register adds a component check. Critical check failures mark the whole
// service unhealthy; non-critical failures only degrade it.
func (r *Registry) Register(name string, critical bool, check CheckFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers = append(r.checkers, checker{name: name, critical: critical, check: check})
}

// Report runs every check and aggregates the results.
type Report struct {
	Status     CheckStatus            `json:"status"`
	Timestamp  time.Time              `json:"timestamp"`
	Components map[string]CheckResult `json:"components"`
}

// Check runs all registered checks with a per-check timeout.
func (r *Registry) Check(ctx context.Context) Report {
	r.mu.RLock()
	checkers := make([]checker, len(r.checkers))
	copy(checkers, r.checkers)
	r.mu.RUnlock()

	report := Report{
		Status:     StatusHealthy,
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]CheckResult, len(checkers)),
	}
	for _, c := range checkers {
		cctx, cancel := context.WithTimeout(ctx, r.timeout)
		start := time.Now()
		err := c.check(cctx)
		cancel()

		result := CheckResult{
			Status:    StatusHealthy,
			Duration:  time.Since(start),
			Timestamp: time.Now().UTC(),
			Component: c.name,
			Critical:  c.critical,
		}
		if err != nil {
			result.Error = err.Error()
			if c.critical {
				result.Status = StatusUnhealthy
				report.Status = StatusUnhealthy
			} else {
				result.Status = StatusDegraded
				if report.Status == StatusHealthy {
					report.Status = StatusDegraded
				}
			}
			r.logger.Warn("Health check failed",
				zap.String("component", c.name),
				zap.Bool("critical", c.critical),
				zap.Error(err),
			)
		}
		report.Components[c.name] = result
	}
	return report
}

// Handler serves the aggregated report. Unhealthy maps to 503; healthy and
// degraded both serve 200 so load balancers keep routing during partial
// outages.
func (r *Registry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		report := r.Check(req.Context())
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	})
}
