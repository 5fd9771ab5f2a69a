package api

import (
	"context"
	"net/http"

	"github.com/link-control/blc/internal/state"
)

// ControllerPort is the lifecycle surface the API depends on.
type ControllerPort interface {
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	IsActive() bool
	Status() state.Snapshot
}

// TelemetryPort is the event stream surface the API depends on.
type TelemetryPort interface {
	Subscribe(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}
