package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/speedwagon-io/wastemon/internal/lib/logger/sl"
	"github.com/speedwagon-io/wastemon/internal/monitor"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

type ComponentHealth struct {
	Name    string `json:"name"`
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status     Status            `json:"status"`
	Components []ComponentHealth `json:"components"`
	Timestamp  time.Time         `json:"timestamp"`
}

type HealthChecker interface {
	Name() string
	Check(ctx context.Context) (Status, string)
}

type Handler struct {
	log      *slog.Logger
	checkers []HealthChecker
	mu       sync.RWMutex
}

func NewHandler(log *slog.Logger) *Handler {
	return &Handler{
		log:      log,
		checkers: make([]HealthChecker, 0),
	}
}

func (h *Handler) AddChecker(checker HealthChecker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, checker)
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/health", h.handleHealth)
	r.Get("/ready", h.handleReady)
	r.Get("/live", h.handleLive)
}

// Evaluate runs every checker; the overall status is the worst component.
func (h *Handler) Evaluate(ctx context.Context) HealthResponse {
	h.mu.RLock()
	checkers := make([]HealthChecker, len(h.checkers))
	copy(checkers, h.checkers)
	h.mu.RUnlock()

	response := HealthResponse{
		Status:     StatusHealthy,
		Components: make([]ComponentHealth, 0, len(checkers)),
		Timestamp:  time.Now().UTC(),
	}

	for _, checker := range checkers {
		status, message := checker.Check(ctx)
		response.Components = append(response.Components, ComponentHealth{
			Name:    checker.Name(),
			Status:  status,
			Message: message,
		})
		response.Status = worse(response.Status, status)
	}

	return response
}

func worse(a, b Status) Status {
	rank := map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

func httpStatus(s Status) int {
	if s == StatusUnhealthy {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := h.Evaluate(ctx)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus(response.Status))
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error("failed to encode health response", sl.Err(err))
	}
}

// handleReady answers 503 while any component is unhealthy. A degraded
// poller still serves the last snapshot, so it stays ready.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Evaluate(ctx).Status
	writeText(w, httpStatus(status), string(status))
}

func (h *Handler) handleLive(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "OK")
}

func writeText(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	w.Write([]byte(body))
}

// PollerHealthChecker reports stale or failing polls as degraded. Fetch
// failures never make the service unhealthy.
type PollerHealthChecker struct {
	statusFunc func() monitor.Status
	now        func() time.Time
}

func NewPollerHealthChecker(statusFunc func() monitor.Status) *PollerHealthChecker {
	return &PollerHealthChecker{statusFunc: statusFunc, now: time.Now}
}

func (c *PollerHealthChecker) Name() string {
	return "poller"
}

func (c *PollerHealthChecker) Check(ctx context.Context) (Status, string) {
	st := c.statusFunc()

	if st.LastSuccess.IsZero() {
		if st.LastError != nil {
			return StatusDegraded, st.LastError.Error()
		}
		return StatusDegraded, "no data yet"
	}
	if st.LastError != nil {
		return StatusDegraded, st.LastError.Error()
	}

	if st.Interval > 0 {
		age := c.now().Sub(st.LastSuccess)
		if age > 3*st.Interval {
			return StatusDegraded, fmt.Sprintf("last successful poll %s ago", age.Round(time.Second))
		}
	}

	return StatusHealthy, ""
}
