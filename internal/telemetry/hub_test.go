package telemetry

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// syncWriter is a concurrency-safe ResponseWriter for streaming tests.
type syncWriter struct {
	mu     sync.Mutex
	buf    bytes.Buffer
	header http.Header
}

func newSyncWriter() *syncWriter {
	return &syncWriter{header: make(http.Header)}
}

func (w *syncWriter) Header() http.Header { return w.header }

func (w *syncWriter) WriteHeader(statusCode int) {}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func (w *syncWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func TestPublishAssignsMonotonicIDs(t *testing.T) {
	hub := NewHub(50, time.Hour)
	defer hub.Shutdown()

	for i := 0; i < 3; i++ {
		if err := hub.Publish(Event{Type: EventAdvertising, Data: map[string]interface{}{"n": i}}); err != nil {
			t.Fatalf("Publish() failed: %v", err)
		}
	}

	events := hub.Buffered()
	if len(events) != 3 {
		t.Fatalf("Expected 3 buffered events, got %d", len(events))
	}
	for i, event := range events {
		if event.ID != int64(i+1) {
			t.Errorf("Expected event ID %d, got %d", i+1, event.ID)
		}
	}
}

func TestBufferEvictsOldestBeyondCapacity(t *testing.T) {
	hub := NewHub(2, time.Hour)
	defer hub.Shutdown()

	for i := 0; i < 5; i++ {
		_ = hub.Publish(Event{Type: EventConnection})
	}

	events := hub.Buffered()
	if len(events) != 2 {
		t.Fatalf("Expected 2 retained events, got %d", len(events))
	}
	if events[0].ID != 4 || events[1].ID != 5 {
		t.Errorf("Expected IDs [4 5], got [%d %d]", events[0].ID, events[1].ID)
	}
}

func TestSubscribeDeliversPublishedEvents(t *testing.T) {
	hub := NewHub(50, time.Hour)
	defer hub.Shutdown()

	writer := newSyncWriter()
	request := httptest.NewRequest("GET", "/api/v1/telemetry", nil)
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = hub.Subscribe(ctx, writer, request)
	}()

	// Wait for the client to register before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		hub.mu.RLock()
		registered := len(hub.clients) == 1
		hub.mu.RUnlock()
		if registered {
			break
		}
		time.Sleep(time.Millisecond)
	}

	_ = hub.Publish(Event{Type: EventPairing, Data: map[string]interface{}{"passkey": "000042"}})

	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(writer.String(), "event: pairing") {
			break
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	wg.Wait()

	body := writer.String()
	if !strings.Contains(body, "event: ready") {
		t.Errorf("Expected ready event in stream, got %q", body)
	}
	if !strings.Contains(body, "event: pairing") {
		t.Errorf("Expected pairing event in stream, got %q", body)
	}
	if !strings.Contains(body, `"passkey":"000042"`) {
		t.Errorf("Expected passkey payload in stream, got %q", body)
	}
}

func TestSubscribeReplaysAfterLastEventID(t *testing.T) {
	hub := NewHub(50, time.Hour)
	defer hub.Shutdown()

	for i := 0; i < 3; i++ {
		_ = hub.Publish(Event{Type: EventServiceState})
	}

	writer := newSyncWriter()
	request := httptest.NewRequest("GET", "/api/v1/telemetry", nil)
	request.Header.Set("Last-Event-ID", "1")
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = hub.Subscribe(ctx, writer, request)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(writer.String(), "id: 3") {
			break
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	wg.Wait()

	body := writer.String()
	if !strings.Contains(body, "id: 2") || !strings.Contains(body, "id: 3") {
		t.Errorf("Expected replay of events 2 and 3, got %q", body)
	}
}

func TestPublishOnNilHubIsSafe(t *testing.T) {
	var hub *Hub
	if err := hub.Publish(Event{Type: EventFault}); err != nil {
		t.Errorf("Expected nil hub publish to be a no-op, got %v", err)
	}
}
