package adapters

import (
	"encoding/json"
	"net/http"
	"time"
)

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

type (
	// QueueStatusProvider reports the connection state of every configured queue.
	QueueStatusProvider interface {
		Status() map[string]bool
	}

	HealthHandler struct {
		queues    QueueStatusProvider
		version   string
		startedAt time.Time
	}

	healthResponse struct {
		Status  string          `json:"status"`
		Version string          `json:"version"`
		Uptime  string          `json:"uptime"`
		Queues  map[string]bool `json:"queues,omitempty"`
	}
)

func NewHealthHandler(queues QueueStatusProvider, version string) *HealthHandler {
	return &HealthHandler{
		queues:    queues,
		version:   version,
		startedAt: time.Now(),
	}
}

// Live answers as long as the process serves HTTP.
func (h *HealthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	h.write(w, http.StatusOK, healthResponse{Status: StatusOK})
}

// Ready lists the queue connections. Queues connect lazily, so a disconnected queue only degrades
// the report while at least one queue is configured.
func (h *HealthHandler) Ready(w http.ResponseWriter, _ *http.Request) {
	status := h.queues.Status()
	if len(status) == 0 {
		h.write(w, http.StatusServiceUnavailable, healthResponse{Status: StatusDegraded})

		return
	}

	resp := healthResponse{Status: StatusOK, Queues: status}
	for _, connected := range status {
		if !connected {
			resp.Status = StatusDegraded
		}
	}

	h.write(w, http.StatusOK, resp)
}

func (h *HealthHandler) write(w http.ResponseWriter, code int, resp healthResponse) {
	resp.Version = h.version
	resp.Uptime = time.Since(h.startedAt).Truncate(time.Second).String()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	_ = json.NewEncoder(w).Encode(resp)
}
