package server

import (
	"bufio"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/nbtoc/internal/refresh"
)

// HeartbeatInterval is the SSE keep-alive comment period.
const HeartbeatInterval = 30 * time.Second

// Hub manages SSE clients for fingerprint-change broadcasts. It implements
// refresh.Observer.
type Hub struct {
	mu              sync.RWMutex
	nextID          int
	clients         map[int]*sseClient
	closed          bool
	lastFingerprint string
	heartbeat       time.Duration
}

type sseClient struct {
	id   int
	ch   chan string
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{clients: map[int]*sseClient{}, heartbeat: HeartbeatInterval}
}

func (h *Hub) Name() string { return "sse" }

// Notify broadcasts the outcome's fingerprint.
func (h *Hub) Notify(_ context.Context, o *refresh.Outcome) error {
	h.Broadcast(o.Fingerprint)
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP implements the SSE endpoint.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	client := &sseClient{ch: make(chan string, 8), done: make(chan struct{})}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, "event stream shutting down", http.StatusServiceUnavailable)
		return
	}
	client.id = h.nextID
	h.nextID++
	h.clients[client.id] = client
	current := h.lastFingerprint
	heartbeat := h.heartbeat
	h.mu.Unlock()
	defer h.removeClient(client.id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	bw := bufio.NewWriter(w)
	send := func(s string) bool {
		if _, err := bw.WriteString(s); err != nil {
			slog.Debug("event stream write", "error", err)
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	// The current fingerprint lets clients set a baseline without reacting.
	msg := ": connected\n\n"
	if current != "" {
		msg += event(current)
	}
	if !send(msg) {
		return
	}

	hb := time.NewTicker(heartbeat)
	defer hb.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.done:
			return
		case <-hb.C:
			if !send(": ping\n\n") {
				return
			}
		case fp := <-client.ch:
			if !send(event(fp)) {
				return
			}
		}
	}
}

func event(fingerprint string) string {
	return "data: {\"fingerprint\":\"" + fingerprint + "\"}\n\n"
}

func (h *Hub) removeClient(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
	}
}

// Broadcast sends fingerprint to all clients. Repeated fingerprints are
// ignored; clients whose buffers are full are dropped.
func (h *Hub) Broadcast(fingerprint string) {
	h.mu.Lock()
	if h.closed || fingerprint == "" || fingerprint == h.lastFingerprint {
		h.mu.Unlock()
		return
	}
	h.lastFingerprint = fingerprint
	snapshot := make([]*sseClient, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- fingerprint:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	slog.Debug("event stream broadcast", "fingerprint", fingerprint, "clients", len(snapshot), "dropped", dropped)
}

// Shutdown closes all clients and prevents future broadcasts.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*sseClient{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
}
