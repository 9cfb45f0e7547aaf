package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

var startTime = time.Now()

// maxRecentErrors bounds the error list kept for the health endpoint
const maxRecentErrors = 20

type HealthChecker struct {
	mu         sync.RWMutex
	lastReport time.Time
	source     string
	errors     []string
}

type HealthStatus struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	LastReport time.Time `json:"last_report"`
	Source     string    `json:"source"`
	Uptime     string    `json:"uptime"`
	Errors     []string  `json:"errors,omitempty"`
}

func NewHealthChecker(source string) *HealthChecker {
	return &HealthChecker{
		source: source,
		errors: make([]string, 0),
	}
}

// MarkReport records a successfully assembled report
func (h *HealthChecker) MarkReport(at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastReport = at
}

// RecordError keeps the most recent errors for inspection
func (h *HealthChecker) RecordError(err error) {
	if err == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.errors = append(h.errors, err.Error())
	if len(h.errors) > maxRecentErrors {
		h.errors = h.errors[len(h.errors)-maxRecentErrors:]
	}
}

// Status returns the current health snapshot
func (h *HealthChecker) Status() HealthStatus {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	if h.lastReport.IsZero() {
		status = "starting"
	}
	if len(h.errors) > 0 {
		status = "degraded"
	}

	errs := make([]string, len(h.errors))
	copy(errs, h.errors)

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now(),
		LastReport: h.lastReport,
		Source:     h.source,
		Uptime:     time.Since(startTime).String(),
		Errors:     errs,
	}
}

func (h *HealthChecker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	health := h.Status()

	w.Header().Set("Content-Type", "application/json")
	if health.Status == "degraded" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(health)
}
