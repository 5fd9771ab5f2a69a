package state

import (
	"sync"
	"testing"
)

func TestNewLink(t *testing.T) {
	link := NewLink()

	snap := link.Snapshot()
	if snap.StackPowered || snap.ServicesActive || snap.Advertising {
		t.Errorf("Expected all flags off at construction, got %+v", snap)
	}
}

func TestReady(t *testing.T) {
	link := NewLink()

	if link.Ready() {
		t.Error("Expected Ready() false with everything off")
	}

	link.MarkStackPowered()
	if link.Ready() {
		t.Error("Expected Ready() false with services inactive")
	}

	link.SetServicesActive(true)
	if !link.Ready() {
		t.Error("Expected Ready() true with stack powered and services active")
	}

	link.SetServicesActive(false)
	if link.Ready() {
		t.Error("Expected Ready() false after services deactivated")
	}
}

func TestSnapshotReflectsFlags(t *testing.T) {
	link := NewLink()
	link.MarkStackPowered()
	link.SetServicesActive(true)
	link.SetAdvertising(true)

	snap := link.Snapshot()
	if !snap.StackPowered || !snap.ServicesActive || !snap.Advertising {
		t.Errorf("Expected all flags on, got %+v", snap)
	}
}

func TestConcurrentTogglesDoNotRace(t *testing.T) {
	link := NewLink()
	link.MarkStackPowered()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				link.SetServicesActive(j%2 == 0)
				link.SetAdvertising(j%2 == 1)
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_ = link.Ready()
				_ = link.Snapshot()
			}
		}()
	}
	wg.Wait()

	if !link.StackPowered() {
		t.Error("StackPowered must never reset")
	}
}
