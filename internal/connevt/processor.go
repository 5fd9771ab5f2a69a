package connevt

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/link-control/blc/internal/config"
	"github.com/link-control/blc/internal/stack"
	"github.com/link-control/blc/internal/state"
	"github.com/link-control/blc/internal/telemetry"
)

// AdvertisingScheduler is the slice of the scheduler contract the
// processor drives.
type AdvertisingScheduler interface {
	RequestStart()
	Stop()
}

// Disconnector terminates a link with a reason code.
type Disconnector interface {
	Disconnect(ctx context.Context, peer stack.Peer, reason stack.DisconnectReason) error
}

// Compile-time assertion that Processor implements the callback table
var _ stack.ConnectionHandler = (*Processor)(nil)

// Processor implements stack.ConnectionHandler. It runs on the stack's
// notification context, reads the shared flags without locking, and
// never blocks beyond the configured disconnect timeout.
type Processor struct {
	flags *state.Link
	sched AdvertisingScheduler
	links Disconnector
	cfg   *config.Timing
	hub   *telemetry.Hub
	log   *logrus.Entry
}

// NewProcessor creates the connection event processor.
func NewProcessor(flags *state.Link, sched AdvertisingScheduler, links Disconnector, cfg *config.Timing, hub *telemetry.Hub, log *logrus.Entry) *Processor {
	return &Processor{
		flags: flags,
		sched: sched,
		links: links,
		cfg:   cfg,
		hub:   hub,
		log:   log,
	}
}

// Connected handles a new link or a failed connection attempt.
func (p *Processor) Connected(peer stack.Peer, connErr error) {
	if connErr != nil {
		p.log.WithError(connErr).WithField("peer", peer.String()).Warn("Connection attempt failed")
		p.publish("connect-failed", peer, map[string]interface{}{"error": connErr.Error()})
		// The broadcast stops on any connection attempt; re-request so the
		// device stays discoverable.
		p.sched.RequestStart()
		return
	}

	if !p.flags.ServicesActive() {
		p.log.WithField("peer", peer.String()).Warn("Rejecting connection while services inactive")
		p.publish("rejected", peer, nil)
		ctx, cancel := context.WithTimeout(context.Background(), p.cfg.CommandTimeoutDisconnect)
		defer cancel()
		if err := p.links.Disconnect(ctx, peer, stack.ReasonRemoteUserTerminated); err != nil {
			p.log.WithError(err).WithField("peer", peer.String()).Error("Failed to disconnect rejected peer")
		}
		return
	}

	p.log.WithField("peer", peer.String()).Info("Peer connected")
	p.publish("connected", peer, nil)
	p.sched.Stop()
}

// Disconnected handles a lost link and resumes advertising while the
// controller is still powered and active.
func (p *Processor) Disconnected(peer stack.Peer, reason stack.DisconnectReason) {
	p.log.WithFields(logrus.Fields{
		"peer":   peer.String(),
		"reason": reason.String(),
	}).Info("Peer disconnected")
	p.publish("disconnected", peer, map[string]interface{}{"reason": reason.String()})

	if p.flags.Ready() {
		p.sched.RequestStart()
	}
}

// ParamRequest accepts parameter negotiation only while services are
// active.
func (p *Processor) ParamRequest(peer stack.Peer, params stack.ConnParams) bool {
	if !p.flags.ServicesActive() {
		p.log.WithField("peer", peer.String()).Warn("Rejecting parameter request while services inactive")
		return false
	}
	p.log.WithFields(logrus.Fields{
		"peer":        peer.String(),
		"intervalMin": params.IntervalMin,
		"intervalMax": params.IntervalMax,
		"latency":     params.Latency,
		"timeout":     params.Timeout,
	}).Debug("Accepting parameter request")
	return true
}

// ParamUpdated records the parameters now in effect.
func (p *Processor) ParamUpdated(peer stack.Peer, interval, latency, timeout uint16) {
	p.log.WithFields(logrus.Fields{
		"peer":     peer.String(),
		"interval": interval,
		"latency":  latency,
		"timeout":  timeout,
	}).Debug("Connection parameters updated")
}

// Recycled resumes advertising once the stack has reclaimed connection
// resources, while the controller is still powered and active.
func (p *Processor) Recycled() {
	p.log.Debug("Connection object recycled")
	if p.flags.Ready() {
		p.sched.RequestStart()
	}
}

func (p *Processor) publish(status string, peer stack.Peer, extra map[string]interface{}) {
	data := map[string]interface{}{
		"status": status,
		"peer":   peer.String(),
	}
	for k, v := range extra {
		data[k] = v
	}
	_ = p.hub.Publish(telemetry.Event{Type: telemetry.EventConnection, Data: data})
}
