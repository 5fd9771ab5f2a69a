// Package main implements the Bluetooth Link Container entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/link-control/blc/internal/advertise"
	"github.com/link-control/blc/internal/api"
	"github.com/link-control/blc/internal/audit"
	"github.com/link-control/blc/internal/auth"
	"github.com/link-control/blc/internal/config"
	"github.com/link-control/blc/internal/connevt"
	"github.com/link-control/blc/internal/display"
	"github.com/link-control/blc/internal/lifecycle"
	"github.com/link-control/blc/internal/pairing"
	"github.com/link-control/blc/internal/stack"
	"github.com/link-control/blc/internal/stack/bluez"
	"github.com/link-control/blc/internal/stack/fake"
	"github.com/link-control/blc/internal/state"
	"github.com/link-control/blc/internal/telemetry"
	"github.com/link-control/blc/internal/watchdog"
)

const (
	DefaultAddr = ":8000"
	Version     = "1.0.0"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(os.Getenv("BLC_LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}
	log := logger.WithField("service", "blc")

	log.WithField("version", Version).Info("Starting Bluetooth Link Container")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}

	hub := telemetry.NewHub(cfg.EventBufferSize, cfg.EventBufferRetention)
	defer hub.Shutdown()

	auditLogger, err := audit.NewLogger(envOr("BLC_LOG_DIR", "logs"))
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize audit logger")
	}
	defer auditLogger.Close()

	links, err := buildStack(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize protocol stack")
	}

	flags := state.NewLink()
	dog := watchdog.NewSystemd(log.WithField("component", "watchdog"))
	stopKeeper := startWatchdogKeeper(dog)
	defer stopKeeper()

	sched := advertise.NewScheduler(flags, links, advertise.SystemClock(), cfg, hub,
		log.WithField("component", "advertise"))
	connProc := connevt.NewProcessor(flags, sched, links, cfg, hub,
		log.WithField("component", "connevt"))
	pairDisplay := display.NewTelemetry(hub, log.WithField("component", "display"))
	pairCoord, err := pairing.NewCoordinator(flags, pairDisplay, links, cfg, hub,
		log.WithField("component", "pairing"))
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize pairing coordinator")
	}

	controller := lifecycle.New(flags, links, sched, connProc, pairCoord, cfg, hub, dog,
		log.WithField("component", "lifecycle"))
	controller.SetAuditLogger(auditLogger)

	server := api.NewServer(controller, hub, buildAuth(log))

	addr := envOr("BLC_ADDR", DefaultAddr)
	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(addr); err != nil {
			serverErr <- fmt.Errorf("HTTP server failed: %w", err)
		}
	}()
	log.WithField("addr", addr).Info("HTTP server started")

	bootCtx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	if err := controller.Enable(bootCtx); err != nil {
		cancelBoot()
		log.WithError(err).Fatal("Failed to enable radio services at boot")
	}
	cancelBoot()
	log.Info("Radio services enabled")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		log.WithField("signal", sig.String()).Info("Initiating graceful shutdown")
	case err := <-serverErr:
		log.WithError(err).Error("Server error")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := controller.Disable(ctx); err != nil {
		log.WithError(err).Error("Error disabling radio services")
	}
	if err := server.Stop(ctx); err != nil {
		log.WithError(err).Error("Error stopping HTTP server")
	}

	log.Info("Shutdown complete")
}

// buildStack selects the protocol stack implementation. BLC_STACK=fake
// runs fully in-memory for development; anything else binds to BlueZ.
func buildStack(cfg *config.Timing, log *logrus.Entry) (stack.Stack, error) {
	if os.Getenv("BLC_STACK") == "fake" {
		log.Warn("Using fake protocol stack")
		return fake.NewFakeStack(), nil
	}
	return bluez.New(envOr("BLC_ADAPTER", "hci0"), cfg.DeviceName,
		log.WithField("component", "bluez"))
}

// buildAuth wires bearer auth when a secret is configured. Without one
// the API runs open, intended for local development only.
func buildAuth(log *logrus.Entry) *auth.Middleware {
	secret := os.Getenv("BLC_JWT_SECRET")
	if secret == "" {
		log.Warn("BLC_JWT_SECRET not set, API authentication disabled")
		return nil
	}
	verifier, err := auth.NewVerifier(secret)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize token verifier")
	}
	return auth.NewMiddleware(verifier)
}

// startWatchdogKeeper kicks the watchdog on the recommended period so
// liveness holds while the process idles between lifecycle transitions.
func startWatchdogKeeper(dog watchdog.Watchdog) func() {
	interval := watchdog.Interval()
	if interval <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				dog.Kick()
			}
		}
	}()
	return func() { close(done) }
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
