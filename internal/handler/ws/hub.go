package ws

import (
	"context"
	"encoding/json"

	"BreakCheck/internal/domain/models"
)

// Hub fans validation progress out to connected dashboard sockets. Slow
// clients are dropped rather than allowed to stall the broadcast loop.
type Hub struct {
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	clients    map[*client]struct{}
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, 1024),
		clients:    make(map[*client]struct{}),
		done:       make(chan struct{}),
	}
}

// Run owns the client set. All registration and broadcast goes through this
// loop; nothing else touches the map. done is closed when the loop exits so
// add and drop never block on a hub that has stopped.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		case b := <-h.broadcast:
			for c := range h.clients {
				select {
				case c.send <- b:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
		}
	}
}

// Broadcast queues a progress event for all clients. Never blocks; when the
// buffer is full the event is dropped, progress is advisory.
func (h *Hub) Broadcast(ev models.ProgressEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case h.broadcast <- b:
	default:
	}
}

// add attaches a client. Returns false when the hub has already stopped, in
// which case the caller owns the client's send channel.
func (h *Hub) add(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// drop detaches a client. Safe to call during or after shutdown; when the
// loop has exited it already closed every registered client's send channel.
func (h *Hub) drop(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

type client struct {
	send chan []byte
}
