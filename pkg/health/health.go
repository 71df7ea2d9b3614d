package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"
)

// Checker probes one dependency.
type Checker func(ctx context.Context) error

// Status of a component or of the whole service.
type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

const checkTimeout = 5 * time.Second

// Response is the body of both health endpoints.
type Response struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one probe.
type CheckResult struct {
	Status   Status `json:"status"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
}

type check struct {
	fn       Checker
	critical bool
}

// Handler serves liveness and readiness. A failing critical check makes the
// service not ready (503); a failing non-critical one only degrades it.
type Handler struct {
	mu     sync.RWMutex
	checks map[string]check
}

func NewHandler() *Handler {
	return &Handler{checks: make(map[string]check)}
}

// RegisterCritical adds a check whose failure takes the service out of rotation.
func (h *Handler) RegisterCritical(name string, fn Checker) {
	h.register(name, fn, true)
}

// RegisterNonCritical adds a check whose failure is reported but tolerated.
func (h *Handler) RegisterNonCritical(name string, fn Checker) {
	h.register(name, fn, false)
}

func (h *Handler) register(name string, fn Checker, critical bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check{fn: fn, critical: critical}
}

// LivenessHandler always answers 200 while the process runs.
func (h *Handler) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeResponse(w, http.StatusOK, Response{Status: StatusUp, Timestamp: time.Now().UTC()})
	}
}

// ReadinessHandler runs every check concurrently.
func (h *Handler) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		resp := h.Check(ctx)
		status := http.StatusOK
		if resp.Status == StatusDown {
			status = http.StatusServiceUnavailable
		}
		writeResponse(w, status, resp)
	}
}

// Check runs all registered checks and folds them into one Response.
func (h *Handler) Check(ctx context.Context) Response {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	checks := make(map[string]check, len(h.checks))
	for name, c := range h.checks {
		names = append(names, name)
		checks[name] = c
	}
	h.mu.RUnlock()
	sort.Strings(names)

	results := make([]CheckResult, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, c check) {
			defer wg.Done()
			res := CheckResult{Status: StatusUp, Critical: c.critical}
			if err := c.fn(ctx); err != nil {
				res.Status = StatusDown
				res.Error = err.Error()
			}
			results[i] = res
		}(i, checks[name])
	}
	wg.Wait()

	resp := Response{
		Status:    StatusUp,
		Timestamp: time.Now().UTC(),
		Checks:    make(map[string]CheckResult, len(names)),
	}
	for i, name := range names {
		res := results[i]
		resp.Checks[name] = res
		if res.Status != StatusDown {
			continue
		}
		if res.Critical {
			resp.Status = StatusDown
		} else if resp.Status == StatusUp {
			resp.Status = StatusDegraded
		}
	}
	return resp
}

func writeResponse(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}
