package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Event types published by the container.
const (
	EventReady        = "ready"
	EventServiceState = "serviceState"
	EventAdvertising  = "advertising"
	EventConnection   = "connection"
	EventPairing      = "pairing"
	EventFault        = "fault"
)

// Event represents a telemetry event with SSE formatting.
type Event struct {
	ID   int64                  `json:"id,omitempty"`
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// Client represents an SSE client connection.
type Client struct {
	ID      string
	Writer  http.ResponseWriter
	Context context.Context
	Cancel  context.CancelFunc
	LastID  int64
	Events  chan Event
	once    sync.Once
	mu      sync.Mutex // Protect Writer access
}

// Hub manages SSE telemetry distribution for the single link stream.
//
// LOCK ORDERING:
// 1. h.mu (Hub's RWMutex) - protects the clients map
// 2. buffer.mu (ring buffer mutex) - protects buffered events
// 3. Client.mu / Client.once - per-client writer and channel close
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	buffer  *eventBuffer
	done    chan struct{}
	closed  sync.Once
}

// eventBuffer maintains a bounded ring of events for Last-Event-ID resume.
type eventBuffer struct {
	mu        sync.RWMutex
	events    []bufferedEvent
	capacity  int
	retention time.Duration
	nextID    int64
}

type bufferedEvent struct {
	event Event
	at    time.Time
}

// NewHub creates a new telemetry hub with the given replay buffer sizing.
func NewHub(bufferSize int, retention time.Duration) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		buffer: &eventBuffer{
			capacity:  bufferSize,
			retention: retention,
			nextID:    1,
		},
		done: make(chan struct{}),
	}
}

// Subscribe handles SSE client subscription with Last-Event-ID resume
// support. Blocks until the client disconnects or ctx is cancelled.
func (h *Hub) Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	clientCtx, cancel := context.WithCancel(ctx)

	lastEventID := int64(0)
	if lastIDStr := r.Header.Get("Last-Event-ID"); lastIDStr != "" {
		if id, err := strconv.ParseInt(lastIDStr, 10, 64); err == nil {
			lastEventID = id
		}
	}

	client := &Client{
		ID:      fmt.Sprintf("client_%d", time.Now().UnixNano()),
		Writer:  w,
		Context: clientCtx,
		Cancel:  cancel,
		LastID:  lastEventID,
		Events:  make(chan Event, 100),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	if err := h.sendEventToClient(client, Event{
		ID:   h.buffer.peekNextID(),
		Type: EventReady,
		Data: map[string]interface{}{"resume": lastEventID > 0},
	}); err != nil {
		h.unregisterClient(client.ID)
		return fmt.Errorf("failed to send ready event: %w", err)
	}

	if lastEventID > 0 {
		for _, event := range h.buffer.eventsAfter(lastEventID) {
			if err := h.sendEventToClient(client, event); err != nil {
				h.unregisterClient(client.ID)
				return fmt.Errorf("failed to replay events: %w", err)
			}
		}
	}

	h.handleClient(client)
	return nil
}

// Publish assigns an ID to the event, buffers it for resume, and fans it
// out to connected clients. Slow clients drop events rather than block
// the publisher.
func (h *Hub) Publish(event Event) error {
	if h == nil {
		return nil
	}

	event.ID = h.buffer.add(event)

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		select {
		case <-client.Context.Done():
			continue
		case <-h.done:
			return nil
		case client.Events <- event:
		case <-time.After(100 * time.Millisecond):
			// Drop event if client is slow to prevent blocking
		}
	}

	return nil
}

// Buffered returns a copy of the currently retained events, oldest first.
func (h *Hub) Buffered() []Event {
	return h.buffer.eventsAfter(0)
}

// Shutdown cancels all client connections and stops event delivery.
func (h *Hub) Shutdown() {
	h.closed.Do(func() {
		close(h.done)
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	for id, client := range h.clients {
		client.Cancel()
		delete(h.clients, id)
	}
}

// sendEventToClient sends a single event to a client via SSE.
func (h *Hub) sendEventToClient(client *Client, event Event) error {
	client.mu.Lock()
	defer client.mu.Unlock()

	if event.ID > 0 {
		if _, err := fmt.Fprintf(client.Writer, "id: %d\n", event.ID); err != nil {
			return fmt.Errorf("failed to write event ID: %w", err)
		}
	}
	if _, err := fmt.Fprintf(client.Writer, "event: %s\n", event.Type); err != nil {
		return fmt.Errorf("failed to write event type: %w", err)
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	if _, err := fmt.Fprintf(client.Writer, "data: %s\n\n", string(data)); err != nil {
		return fmt.Errorf("failed to write event data: %w", err)
	}

	if flusher, ok := client.Writer.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}

// handleClient delivers events until the client context ends.
func (h *Hub) handleClient(client *Client) {
	defer func() {
		client.once.Do(func() {
			close(client.Events)
		})
		h.unregisterClient(client.ID)
	}()

	for {
		select {
		case <-client.Context.Done():
			return
		case <-h.done:
			return
		case event, ok := <-client.Events:
			if !ok {
				return
			}
			if err := h.sendEventToClient(client, event); err != nil {
				return
			}
		}
	}
}

// unregisterClient removes a client from the hub.
func (h *Hub) unregisterClient(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client, exists := h.clients[clientID]; exists {
		client.Cancel()
		delete(h.clients, clientID)
	}
}

// add assigns the next ID, stamps a timestamp if absent, and retains the
// event within capacity and retention bounds.
func (b *eventBuffer) add(event Event) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	event.ID = b.nextID
	b.nextID++

	if event.Data == nil {
		event.Data = map[string]interface{}{}
	}
	now := time.Now()
	if _, ok := event.Data["ts"]; !ok {
		event.Data["ts"] = now.UTC().Format(time.RFC3339)
	}

	b.events = append(b.events, bufferedEvent{event: event, at: now})
	b.evictLocked(now)

	return event.ID
}

// evictLocked drops events beyond capacity or older than the retention
// window. Callers must hold b.mu.
func (b *eventBuffer) evictLocked(now time.Time) {
	if len(b.events) > b.capacity {
		b.events = b.events[len(b.events)-b.capacity:]
	}

	cutoff := now.Add(-b.retention)
	firstFresh := 0
	for firstFresh < len(b.events) && b.events[firstFresh].at.Before(cutoff) {
		firstFresh++
	}
	if firstFresh > 0 {
		b.events = b.events[firstFresh:]
	}
}

// eventsAfter returns retained events with ID greater than lastID.
func (b *eventBuffer) eventsAfter(lastID int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var out []Event
	for _, buffered := range b.events {
		if buffered.event.ID > lastID {
			out = append(out, buffered.event)
		}
	}
	return out
}

// peekNextID returns the ID the next published event will receive.
func (b *eventBuffer) peekNextID() int64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextID
}
