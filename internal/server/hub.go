package server

import (
	"encoding/json"
	"sync"
)

// Message is one server-sent event.
type Message struct {
	Event string
	Data  []byte
}

// Hub fans progress messages out to every connected SSE client.
type Hub struct {
	mu      sync.Mutex
	clients map[chan Message]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan Message]struct{})}
}

func (h *Hub) Subscribe() chan Message {
	ch := make(chan Message, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan Message) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Publish sends v as JSON under the given event name.
func (h *Hub) Publish(event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	msg := Message{Event: event, Data: data}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- msg:
		default:
			//drop if slow
		}
	}
	return nil
}

// Close disconnects every client so open event streams end.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
}
