// file: internal/realtime/events.go
// version: 2.0.0
// guid: 02f8a241-1de7-4fc9-bfc7-52a6bd1a285c

package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// EventType names a catalog event
type EventType string

const (
	EventScanCompleted   EventType = "scan.completed"
	EventCommitCompleted EventType = "commit.completed"
	EventRecordCreated   EventType = "record.created"
	EventRecordUpdated   EventType = "record.updated"
	EventRecordDeleted   EventType = "record.deleted"
	EventLibraryStale    EventType = "library.stale"
)

// Event is one message on the stream. ID is the record id for record
// events and empty otherwise.
type Event struct {
	Type      EventType      `json:"type"`
	ID        string         `json:"id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Client is one connected stream consumer
type Client struct {
	ID      string
	Channel chan *Event

	mu    sync.RWMutex
	types map[EventType]bool
}

// NewClient creates a client that receives every event type
func NewClient(id string) *Client {
	return &Client{
		ID:      id,
		Channel: make(chan *Event, 100),
		types:   make(map[EventType]bool),
	}
}

// Subscribe narrows the client to the given event types
func (c *Client) Subscribe(types ...EventType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range types {
		c.types[t] = true
	}
}

// Wants reports whether the client should receive events of type t
func (c *Client) Wants(t EventType) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types) == 0 || c.types[t]
}

// Hub fans catalog events out to connected clients
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	nextID  atomic.Uint64
	now     func() time.Time
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		now:     time.Now,
	}
}

// Register adds a client
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client.ID] = client
	log.Printf("[DEBUG] realtime: client %s connected (%d total)", client.ID, len(h.clients))
}

// Unregister removes a client and closes its channel
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Channel)
		delete(h.clients, clientID)
		log.Printf("[DEBUG] realtime: client %s disconnected (%d remaining)", clientID, len(h.clients))
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish delivers an event to every interested client. Slow clients with
// a full buffer miss the event.
func (h *Hub) Publish(t EventType, id string, data map[string]any) {
	if h == nil {
		return
	}
	event := &Event{Type: t, ID: id, Timestamp: h.now(), Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if !client.Wants(t) {
			continue
		}
		select {
		case client.Channel <- event:
		default:
			log.Printf("[WARN] realtime: client %s buffer full, dropping %s", client.ID, t)
		}
	}
}

// HandleSSE streams events as Server-Sent Events. The optional "types"
// query parameter is a comma-separated list of event types.
func (h *Hub) HandleSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache, no-transform")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	client := NewClient(fmt.Sprintf("client-%d", h.nextID.Add(1)))
	for _, t := range strings.Split(c.Query("types"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			client.Subscribe(EventType(t))
		}
	}
	h.Register(client)
	defer h.Unregister(client.ID)

	write := func(name string, v any) bool {
		data, err := json.Marshal(v)
		if err != nil {
			log.Printf("[ERROR] realtime: marshal %s: %v", name, err)
			return true
		}
		if _, err := fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", name, data); err != nil {
			return false
		}
		c.Writer.Flush()
		return true
	}

	if !write("connected", map[string]string{"client_id": client.ID}) {
		return
	}

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case event, ok := <-client.Channel:
			if !ok || !write(string(event.Type), event) {
				return
			}
		case <-ticker.C:
			if _, err := fmt.Fprint(c.Writer, ": heartbeat\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}
