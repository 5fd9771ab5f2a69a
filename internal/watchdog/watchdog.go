// Package watchdog provides the liveness kick the lifecycle controller
// issues around blocking checkpoints. Under systemd the kick maps to a
// WATCHDOG=1 notification; everywhere else it is a no-op.
package watchdog

import (
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/sirupsen/logrus"
)

// Watchdog receives liveness kicks.
type Watchdog interface {
	Kick()
}

// Systemd notifies the systemd watchdog.
type Systemd struct {
	log *logrus.Entry
}

// NewSystemd returns a systemd-backed watchdog when the process runs
// under systemd with WatchdogSec configured, and a Noop otherwise.
func NewSystemd(log *logrus.Entry) Watchdog {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		log.Debug("Systemd watchdog not configured, kicks are no-ops")
		return Noop{}
	}
	log.WithField("interval", interval.String()).Info("Systemd watchdog enabled")
	return &Systemd{log: log}
}

// Kick sends a WATCHDOG=1 notification. Failures are logged only; a
// missed kick surfaces through systemd's own timeout.
func (s *Systemd) Kick() {
	if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
		s.log.WithError(err).Warn("Watchdog notify failed")
	}
}

// Interval returns half the configured watchdog timeout, the
// recommended kick period for a background keeper.
func Interval() time.Duration {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return 0
	}
	return interval / 2
}

// Noop discards kicks.
type Noop struct{}

// Kick does nothing.
func (Noop) Kick() {}
