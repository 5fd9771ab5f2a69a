package advertise

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/link-control/blc/internal/config"
	"github.com/link-control/blc/internal/stack"
	"github.com/link-control/blc/internal/state"
	"github.com/link-control/blc/internal/telemetry"
)

// Phase is the scheduler's position in its Idle -> Scheduled -> Running
// state machine.
type Phase int

const (
	// PhaseIdle means no job is pending and no broadcast is attributed
	// to the scheduler.
	PhaseIdle Phase = iota

	// PhaseScheduled means the deferred job is armed.
	PhaseScheduled

	// PhaseRunning means the broadcast started successfully.
	PhaseRunning
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseScheduled:
		return "scheduled"
	case PhaseRunning:
		return "running"
	default:
		return "unknown"
	}
}

// Broadcaster is the slice of the stack contract the scheduler needs.
type Broadcaster interface {
	StartAdvertising(ctx context.Context, adv stack.Advertisement) error
	StopAdvertising(ctx context.Context) error
}

// Scheduler drives the single deferred advertising job. At most one job
// is ever pending; requests arriving while one is armed coalesce. The job
// body runs on the timer goroutine, re-validates the shared flags before
// acting, and re-arms itself on start failure for as long as services
// remain active.
type Scheduler struct {
	mu    sync.Mutex
	phase Phase
	timer Timer
	gen   uint64 // invalidates jobs armed before the last Stop or re-arm

	flags   *state.Link
	stack   Broadcaster
	clock   Clock
	cfg     *config.Timing
	payload stack.Advertisement
	hub     *telemetry.Hub
	log     *logrus.Entry
}

// NewScheduler creates the advertising job owner. The payload is fixed at
// construction from the configured device name.
func NewScheduler(flags *state.Link, broadcaster Broadcaster, clock Clock, cfg *config.Timing, hub *telemetry.Hub, log *logrus.Entry) *Scheduler {
	return &Scheduler{
		flags:   flags,
		stack:   broadcaster,
		clock:   clock,
		cfg:     cfg,
		payload: Payload(cfg.DeviceName),
		hub:     hub,
		log:     log,
	}
}

// RequestStart arms the deferred job after the settle delay. No-op unless
// the stack is powered and services are active; re-requesting while a job
// is armed or a broadcast is running coalesces instead of duplicating.
func (s *Scheduler) RequestStart() {
	// Direct flag read; the job body re-validates under current state.
	if !s.flags.Ready() {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseIdle {
		return
	}

	s.armLocked(s.cfg.AdvSettleDelay)
}

// Stop cancels any pending job and stops a running broadcast. Stop
// failures are logged only; the advertising flag is cleared regardless so
// the next request starts from a known state.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.disarmLocked()

	if s.flags.Advertising() {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CommandTimeoutAdvStop)
		err := s.stack.StopAdvertising(ctx)
		cancel()
		if err != nil {
			s.log.WithError(err).Error("Advertising failed to stop")
		} else {
			s.log.Info("Advertising stopped")
		}
		s.flags.SetAdvertising(false)
		s.publish("stopped", nil)
	}

	s.phase = PhaseIdle
}

// Phase returns the scheduler's current phase.
func (s *Scheduler) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// armLocked schedules the job body after d. Callers must hold s.mu.
func (s *Scheduler) armLocked(d time.Duration) {
	gen := s.gen
	s.timer = s.clock.AfterFunc(d, func() { s.run(gen) })
	s.phase = PhaseScheduled
}

// disarmLocked cancels a pending job and invalidates any job that
// already fired but has not yet entered the critical section. Callers
// must hold s.mu.
func (s *Scheduler) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

// run is the job body. It executes on the deferred-work context, never
// concurrently with itself, and exits without side effects when a stale
// job fires after a disable/enable cycle.
func (s *Scheduler) run(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}
	s.timer = nil

	if !s.flags.Ready() || s.flags.Advertising() {
		s.phase = PhaseIdle
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.CommandTimeoutAdvStart)
	err := s.stack.StartAdvertising(ctx, s.payload)
	cancel()

	if err != nil {
		s.log.WithError(err).Error("Advertising failed to start")
		// Re-arm only while the preconditions still hold; retries are
		// unbounded until success or disable.
		if s.flags.Ready() {
			s.armLocked(s.cfg.AdvRetryBackoff)
			s.publish("retry-scheduled", err)
		} else {
			s.phase = PhaseIdle
		}
		return
	}

	s.flags.SetAdvertising(true)
	s.phase = PhaseRunning
	s.log.Info("Advertising started successfully")
	s.publish("started", nil)
}

// publish sends a telemetry advertising event; nil hubs are tolerated.
func (s *Scheduler) publish(status string, err error) {
	data := map[string]interface{}{"status": status}
	if err != nil {
		data["error"] = err.Error()
	}
	_ = s.hub.Publish(telemetry.Event{Type: telemetry.EventAdvertising, Data: data})
}
