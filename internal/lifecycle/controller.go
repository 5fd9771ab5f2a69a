package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/link-control/blc/internal/config"
	"github.com/link-control/blc/internal/stack"
	"github.com/link-control/blc/internal/state"
	"github.com/link-control/blc/internal/telemetry"
)

// Scheduler is the advertising job contract the controller drives.
type Scheduler interface {
	RequestStart()
	Stop()
}

// Watchdog receives liveness kicks around blocking checkpoints.
type Watchdog interface {
	Kick()
}

// AuditLogger interface for writing audit records.
type AuditLogger interface {
	LogAction(ctx context.Context, action string, result string, latency time.Duration)
}

// Controller serializes service lifecycle transitions over the shared
// link flags. Enable and Disable are idempotent; callers on the
// notification context observe the flags lock-free through IsActive.
type Controller struct {
	flags *state.Link
	links stack.Stack
	sched Scheduler

	connHandler stack.ConnectionHandler
	pairHandler stack.PairingHandler

	cfg      *config.Timing
	hub      *telemetry.Hub
	watchdog Watchdog
	log      *logrus.Entry

	auditLogger AuditLogger

	// Serializes Enable and Disable. Callback-context readers never
	// take this lock.
	transitions chan struct{}
}

// New creates the lifecycle controller. It must run before any other
// call; the controller starts with services inactive and the stack
// unpowered.
func New(flags *state.Link, links stack.Stack, sched Scheduler, connHandler stack.ConnectionHandler, pairHandler stack.PairingHandler, cfg *config.Timing, hub *telemetry.Hub, watchdog Watchdog, log *logrus.Entry) *Controller {
	c := &Controller{
		flags:       flags,
		links:       links,
		sched:       sched,
		connHandler: connHandler,
		pairHandler: pairHandler,
		cfg:         cfg,
		hub:         hub,
		watchdog:    watchdog,
		log:         log,
		transitions: make(chan struct{}, 1),
	}
	c.transitions <- struct{}{}
	return c
}

// SetAuditLogger sets the audit logger.
func (c *Controller) SetAuditLogger(logger AuditLogger) {
	c.auditLogger = logger
}

// IsActive reports whether services are active. Lock-free; safe from
// any context.
func (c *Controller) IsActive() bool {
	return c.flags.ServicesActive()
}

// Status returns a consistent-enough snapshot of the link flags.
func (c *Controller) Status() state.Snapshot {
	return c.flags.Snapshot()
}

// Enable brings radio services up: one-time stack power-on, bond clear,
// optional settings load, callback registration, then service activation
// and an advertising request. Idempotent; a second call while active is
// a no-op. Power-on and registration failures are fatal and leave
// services inactive.
func (c *Controller) Enable(ctx context.Context) error {
	start := time.Now()

	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	if c.flags.ServicesActive() {
		c.log.Debug("Enable requested while already active")
		c.logAudit(ctx, "enable", "NOOP", time.Since(start))
		return nil
	}

	c.kick()

	if !c.flags.StackPowered() {
		if err := c.powerOn(ctx); err != nil {
			c.logAudit(ctx, "enable", "UNAVAILABLE", time.Since(start))
			return err
		}
	}

	c.kick()
	c.clearBonds(ctx)

	if c.cfg.LoadSettings {
		c.loadSettings(ctx)
	}

	c.kick()
	if err := c.registerHandlers(); err != nil {
		c.logAudit(ctx, "enable", "INTERNAL", time.Since(start))
		return err
	}

	c.flags.SetServicesActive(true)
	c.publishServiceState(true)
	c.sched.RequestStart()

	c.log.Info("Radio services enabled")
	c.logAudit(ctx, "enable", "OK", time.Since(start))
	return nil
}

// Disable brings radio services down without powering the stack off.
// Services are marked inactive before anything else so callback-context
// policy checks reject new work immediately. Idempotent.
func (c *Controller) Disable(ctx context.Context) error {
	start := time.Now()

	if err := c.acquire(ctx); err != nil {
		return err
	}
	defer c.release()

	if !c.flags.ServicesActive() {
		c.log.Debug("Disable requested while already inactive")
		c.logAudit(ctx, "disable", "NOOP", time.Since(start))
		return nil
	}

	c.flags.SetServicesActive(false)
	c.publishServiceState(false)

	c.kick()
	c.sched.Stop()
	c.kick()

	// Linger briefly so peers observe the advertising stop and in-flight
	// callbacks drain against the cleared flag. Existing links are left
	// to time out rather than force-disconnected.
	c.linger(ctx)
	c.kick()

	c.log.Info("Radio services disabled")
	c.logAudit(ctx, "disable", "OK", time.Since(start))
	return nil
}

// acquire takes the transition slot, honoring context cancellation.
func (c *Controller) acquire(ctx context.Context) error {
	select {
	case <-c.transitions:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) release() {
	c.transitions <- struct{}{}
}

// powerOn initializes the stack. The powered flag transitions false to
// true at most once per process.
func (c *Controller) powerOn(ctx context.Context) error {
	powerCtx, cancel := context.WithTimeout(ctx, c.cfg.CommandTimeoutPowerOn)
	defer cancel()

	if err := c.links.PowerOn(powerCtx); err != nil {
		c.log.WithError(err).Error("Stack power-on failed")
		c.publishFault("power-on", err)
		return fmt.Errorf("stack power-on: %w", err)
	}

	c.flags.MarkStackPowered()
	c.log.Info("Protocol stack powered on")
	return nil
}

// clearBonds removes stale pairing credentials. Failures are logged
// only; a peer with mismatched bonds re-pairs on next contact.
func (c *Controller) clearBonds(ctx context.Context) {
	if err := c.links.ClearBonds(ctx); err != nil {
		c.log.WithError(err).Warn("Failed to clear stored bonds")
		return
	}
	c.log.Debug("Stored bonds cleared")
}

// loadSettings loads stack-persisted settings. Failures are logged only.
func (c *Controller) loadSettings(ctx context.Context) {
	if err := c.links.LoadSettings(ctx); err != nil {
		c.log.WithError(err).Warn("Failed to load stack settings")
		return
	}
	c.log.Debug("Stack settings loaded")
}

// registerHandlers installs both callback tables, unwinding the first
// when the second fails so the stack never holds a partial set.
func (c *Controller) registerHandlers() error {
	if err := c.links.RegisterConnectionHandler(c.connHandler); err != nil {
		c.log.WithError(err).Error("Connection handler registration failed")
		c.publishFault("register-connection", err)
		return fmt.Errorf("register connection handler: %w", err)
	}
	if err := c.links.RegisterPairingHandler(c.pairHandler); err != nil {
		c.links.UnregisterConnectionHandler()
		c.log.WithError(err).Error("Pairing handler registration failed")
		c.publishFault("register-pairing", err)
		return fmt.Errorf("register pairing handler: %w", err)
	}
	return nil
}

func (c *Controller) linger(ctx context.Context) {
	if c.cfg.TeardownLinger <= 0 {
		return
	}
	t := time.NewTimer(c.cfg.TeardownLinger)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func (c *Controller) kick() {
	if c.watchdog != nil {
		c.watchdog.Kick()
	}
}

func (c *Controller) publishServiceState(active bool) {
	_ = c.hub.Publish(telemetry.Event{
		Type: telemetry.EventServiceState,
		Data: map[string]interface{}{"active": active},
	})
}

func (c *Controller) publishFault(stage string, err error) {
	_ = c.hub.Publish(telemetry.Event{
		Type: telemetry.EventFault,
		Data: map[string]interface{}{
			"stage": stage,
			"error": err.Error(),
			"ts":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// logAudit logs an audit record for a lifecycle action.
func (c *Controller) logAudit(ctx context.Context, action, result string, latency time.Duration) {
	if c.auditLogger != nil {
		c.auditLogger.LogAction(ctx, action, result, latency)
	}
}
