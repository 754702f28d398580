// Package health provides Kubernetes-style liveness and readiness probe
// support. Registered checks run periodically in a single background
// poll loop; probe endpoints report the last observed results and never
// execute checks inline.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc is a health check function. It returns nil when the checked
// component is healthy.
type CheckFunc func(ctx context.Context) error

type probeKind int

const (
	liveness probeKind = iota
	readiness
)

type check struct {
	name    string
	kind    probeKind
	timeout time.Duration
	fn      CheckFunc
}

// Service runs health checks and serves probe endpoints.
type Service struct {
	ready  atomic.Bool
	cancel context.CancelFunc

	mu      sync.RWMutex
	checks  []check
	results map[string]error
}

// New creates a Service. It starts not ready; call SetReady(true) once
// initialization completes.
func New() *Service {
	return &Service{results: make(map[string]error)}
}

// AddLivenessCheck registers a check that gates the /livez probe.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.add(check{name: name, kind: liveness, timeout: timeout, fn: fn})
}

// AddReadinessCheck registers a check that gates the /readyz probe.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.add(check{name: name, kind: readiness, timeout: timeout, fn: fn})
}

func (s *Service) add(c check) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checks = append(s.checks, c)
}

// Start launches the background poll loop. Register every check before
// calling Start.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		s.runAll(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runAll(ctx)
			}
		}
	}()
}

// Stop cancels the poll loop. Safe to call more than once.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Service) runAll(ctx context.Context) {
	s.mu.RLock()
	checks := s.checks
	s.mu.RUnlock()

	results := make(map[string]error, len(checks))
	for _, c := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		results[c.name] = c.fn(checkCtx)
		cancel()
	}

	s.mu.Lock()
	for name, err := range results {
		s.results[name] = err
	}
	s.mu.Unlock()
}

// SetReady sets the manual readiness gate. Graceful shutdown flips it to
// false before draining so load balancers stop routing new traffic.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the manual gate is open and every readiness
// check last passed.
func (s *Service) IsReady() bool {
	return s.ready.Load() && len(s.failures(readiness)) == 0
}

func (s *Service) failures(kind probeKind) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	failed := make(map[string]string)
	for _, c := range s.checks {
		if c.kind != kind {
			continue
		}
		if err, ok := s.results[c.name]; ok && err != nil {
			failed[c.name] = err.Error()
		}
	}
	return failed
}

type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves the /livez probe: 200 while every liveness check
// passes, 503 with per-check failures otherwise.
func (s *Service) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeResponse(w, s.failures(liveness))
}

// ReadyEndpoint serves the /readyz probe: 200 while the service is
// marked ready and every readiness check passes.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	failed := s.failures(readiness)
	if !s.ready.Load() {
		failed["_readiness"] = "service is not ready"
	}
	writeResponse(w, failed)
}

func writeResponse(w http.ResponseWriter, failed map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	status := http.StatusOK
	if len(failed) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failed
		status = http.StatusServiceUnavailable
	}

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
