package display

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/link-control/blc/internal/telemetry"
)

func testLog() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}

func TestShowPublishesCode(t *testing.T) {
	hub := telemetry.NewHub(10, time.Hour)
	defer hub.Shutdown()
	d := NewTelemetry(hub, testLog())

	if err := d.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	d.SetCode("000042")
	d.Show()

	if !d.Visible() {
		t.Error("Expected display visible after Show")
	}

	events := hub.Buffered()
	if len(events) != 1 {
		t.Fatalf("Expected one event, got %d", len(events))
	}
	if events[0].Type != telemetry.EventPairing {
		t.Errorf("Expected pairing event, got %s", events[0].Type)
	}
	if events[0].Data["passkey"] != "000042" || events[0].Data["status"] != "code-visible" {
		t.Errorf("Unexpected event data %v", events[0].Data)
	}
}

func TestHidePublishesOnceWhileVisible(t *testing.T) {
	hub := telemetry.NewHub(10, time.Hour)
	defer hub.Shutdown()
	d := NewTelemetry(hub, testLog())

	d.SetCode("123456")
	d.Show()
	d.Hide()
	d.Hide()

	if d.Visible() {
		t.Error("Expected display hidden")
	}

	events := hub.Buffered()
	if len(events) != 2 {
		t.Fatalf("Expected show+hide events only, got %d", len(events))
	}
	if events[1].Data["status"] != "code-hidden" {
		t.Errorf("Unexpected final event %v", events[1].Data)
	}
}

func TestHideWithoutShowIsNoop(t *testing.T) {
	hub := telemetry.NewHub(10, time.Hour)
	defer hub.Shutdown()
	d := NewTelemetry(hub, testLog())

	d.Hide()

	if got := len(hub.Buffered()); got != 0 {
		t.Errorf("Expected no events, got %d", got)
	}
}
