package core

import (
	"context"

	"github.com/ClusterM/google-assistant-smart-home/internal/models"
)

// Driver talks to one physical (or virtual) device. The customData argument
// is the device's opaque customData echoed back by the platform.
//
// Implementations must honor ctx cancellation; the dispatcher bounds every
// call with a deadline.
type Driver interface {
	// Query reports the device's current state.
	Query(ctx context.Context, customData map[string]any) (models.DeviceState, error)

	// Action applies a single command. A command the device cannot run is
	// reported through the result's status and error code, not the error.
	Action(
		ctx context.Context,
		customData map[string]any,
		command string,
		params map[string]any,
	) (models.ActionResult, error)
}
