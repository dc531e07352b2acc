package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/readmeai/readmectl/internal/notify"
)

// SSEHub manages event-stream subscribers and fans broadcast events out to
// all of them.
type SSEHub struct {
	clients    map[chan *notify.Event]bool
	broadcast  chan *notify.Event
	register   chan chan *notify.Event
	unregister chan chan *notify.Event
	done       chan struct{}
	mu         sync.RWMutex
}

// NewSSEHub creates a new SSE hub.
func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients:    make(map[chan *notify.Event]bool),
		broadcast:  make(chan *notify.Event, 100),
		register:   make(chan chan *notify.Event),
		unregister: make(chan chan *notify.Event),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop until ctx is cancelled.
func (h *SSEHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client)
				delete(h.clients, client)
			}
			h.mu.Unlock()

			// Nobody drains register/unregister after this point;
			// handlers must stop waiting on them.
			close(h.done)

			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			log.Printf("event subscriber connected (total: %d)", h.ClientCount())

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
			}
			h.mu.Unlock()
			log.Printf("event subscriber disconnected (total: %d)", h.ClientCount())

		case event := <-h.broadcast:
			h.mu.RLock()
			for client := range h.clients {
				select {
				case client <- event:
				default:
					// Subscriber buffer full, skip
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues an event for all subscribers.
func (h *SSEHub) Broadcast(event *notify.Event) {
	select {
	case h.broadcast <- event:
	default:
		log.Printf("event broadcast channel full, dropping: %s", event.Name)
	}
}

// ClientCount returns the number of connected subscribers.
func (h *SSEHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Send implements notify.Sender so the hub can hang off the dispatcher.
func (h *SSEHub) Send(_ context.Context, event *notify.Event) error {
	h.Broadcast(event)

	return nil
}

// Name implements notify.Sender.
func (h *SSEHub) Name() string { return "sse" }

// handleSSE serves one subscriber connection.
func (h *SSEHub) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	client := make(chan *notify.Event, 10)

	select {
	case h.register <- client:
	case <-h.done:
		http.Error(w, "shutting down", http.StatusServiceUnavailable)

		return
	}

	defer func() {
		select {
		case h.unregister <- client:
		case <-h.done:
		}
	}()

	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return

		case event, ok := <-client:
			if !ok {
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				log.Printf("marshal event: %v", err)

				continue
			}

			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data); err != nil {
				return
			}

			flusher.Flush()
		}
	}
}
