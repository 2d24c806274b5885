package api

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/parlor-network/parlor/internal/domain"
)

// ─── Live Audit Feed ────────────────────────────────────────────────────────
// Best-effort delivery of committed audit events. The durable record is the
// audit_events table; a dropped message here is recoverable via
// GET /api/events?after=<seq>.

// AuditHub fans committed audit events out to SSE subscribers.
type AuditHub struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewAuditHub creates a new audit broadcast hub.
func NewAuditHub() *AuditHub {
	return &AuditHub{
		clients: make(map[chan []byte]struct{}),
	}
}

// Broadcast sends an audit event to all connected clients. Safe for
// concurrent use; slow clients drop messages rather than block settlement.
func (h *AuditHub) Broadcast(event domain.AuditEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
			// Client too slow — drop message
		}
	}
}

// Subscribe registers a new client. Returns the channel and an unsubscribe func.
func (h *AuditHub) Subscribe() (chan []byte, func()) {
	ch := make(chan []byte, 32)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
		close(ch)
	}
}

// ClientCount returns the number of connected clients.
func (h *AuditHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleSSE serves the live audit feed via Server-Sent Events.
// GET /api/events/live
func (h *AuditHub) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	flusher.Flush()

	ch, unsub := h.Subscribe()
	defer unsub()

	for {
		select {
		case <-r.Context().Done():
			return
		case data := <-ch:
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
