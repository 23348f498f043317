// Package health exposes /livez and /readyz style probes backed by
// periodically executed checks. A check flips to unhealthy only after
// failing three times in a row, and recovers on the first success, so a
// single slow spreadsheet read does not bounce the service out of the
// load balancer.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc probes one dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

const (
	failAfter    = 3
	recoverAfter = 1
)

// check carries the probe function plus its sliding pass/fail state.
// All state is guarded by mu; run is only ever called from the
// supervisor goroutine, the getters from HTTP handlers.
type check struct {
	name    string
	timeout time.Duration
	fn      CheckFunc

	mu      sync.Mutex
	healthy bool
	lastErr error
	fails   int
	passes  int
}

func newCheck(name string, timeout time.Duration, fn CheckFunc) *check {
	// Healthy until the probe says otherwise, so a freshly started
	// service is not marked down before the first tick completes.
	return &check{name: name, timeout: timeout, fn: fn, healthy: true}
}

func (c *check) run(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	err := c.fn(probeCtx)
	cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastErr = err
	if err != nil {
		c.passes = 0
		if c.fails++; c.fails >= failAfter {
			c.healthy = false
		}
		return
	}
	c.fails = 0
	if c.passes++; c.passes >= recoverAfter {
		c.healthy = true
	}
}

// status returns the current health flag and, when unhealthy, a message.
func (c *check) status() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.healthy {
		return true, ""
	}
	if c.lastErr != nil {
		return false, c.lastErr.Error()
	}
	return false, "check is unhealthy"
}

// Health aggregates liveness and readiness checks for one service.
type Health struct {
	mu        sync.RWMutex
	liveness  []*check
	readiness []*check
	ready     bool
	cancel    context.CancelFunc
}

// New returns a Health with no checks registered and readiness off.
// Call SetReady(true) once startup is complete.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a probe for /livez. Liveness answers "is the
// process itself wedged" — goroutine leaks, GC stalls.
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, newCheck(name, timeout, fn))
}

// AddReadinessCheck registers a probe for /readyz. Readiness answers "can
// this instance serve traffic right now" — the row store being reachable,
// mostly.
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, newCheck(name, timeout, fn))
}

// Start launches a single supervisor goroutine that runs every registered
// check once immediately and then on each interval tick. Register all
// checks before calling Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	checks := make([]*check, 0, len(h.liveness)+len(h.readiness))
	checks = append(checks, h.liveness...)
	checks = append(checks, h.readiness...)
	h.mu.Unlock()

	go func() {
		runAll := func() {
			for _, c := range checks {
				c.run(ctx)
			}
		}
		runAll()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runAll()
			}
		}
	}()
}

// Stop cancels the supervisor goroutine. Safe to call twice.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Startup sets it to true once
// wiring is done; graceful shutdown sets it to false to drain traffic.
func (h *Health) SetReady(ready bool) {
	h.mu.Lock()
	h.ready = ready
	h.mu.Unlock()
}

// IsReady reports whether the manual gate is open and every readiness
// check is currently passing.
func (h *Health) IsReady() bool {
	h.mu.RLock()
	ready, checks := h.ready, h.readiness
	h.mu.RUnlock()

	if !ready {
		return false
	}
	for _, c := range checks {
		if ok, _ := c.status(); !ok {
			return false
		}
	}
	return true
}

type report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 while all liveness checks pass,
// 503 with per-check messages otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	checks := h.liveness
	h.mu.RUnlock()

	respond(w, failing(checks))
}

// ReadyEndpoint serves /readyz: 200 only when the manual gate is open and
// all readiness checks pass.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	h.mu.RLock()
	ready, checks := h.ready, h.readiness
	h.mu.RUnlock()

	failures := failing(checks)
	if !ready {
		failures["ready"] = "service is not ready"
	}
	respond(w, failures)
}

func failing(checks []*check) map[string]string {
	failures := make(map[string]string)
	for _, c := range checks {
		if ok, msg := c.status(); !ok {
			failures[c.name] = msg
		}
	}
	return failures
}

func respond(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	rep := report{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		rep = report{Status: "unhealthy", Checks: failures}
		code = http.StatusServiceUnavailable
	}

	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(rep)
}
