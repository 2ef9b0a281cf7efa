package drivers

import (
	"context"
	"sync"

	"github.com/ClusterM/google-assistant-smart-home/internal/core"
	"github.com/ClusterM/google-assistant-smart-home/internal/models"

	"go.uber.org/zap"
)

var _ core.Driver = (*VirtualDriver)(nil)

// VirtualDriver is an in-memory on/off switch with no hardware behind it.
type VirtualDriver struct {
	mu  sync.Mutex
	on  bool
	log *zap.Logger
}

func newVirtualDriver(_ string, cfg models.DriverConfig, log *zap.Logger) (core.Driver, error) {
	return &VirtualDriver{on: cfg.InitialOn, log: log}, nil
}

func (d *VirtualDriver) Query(ctx context.Context, _ map[string]any) (models.DeviceState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return onOffState(d.on), nil
}

func (d *VirtualDriver) Action(
	ctx context.Context,
	_ map[string]any,
	command string,
	params map[string]any,
) (models.ActionResult, error) {
	if command != models.CommandOnOff {
		return errorResult(models.ErrorCodeFunctionNotSupported), nil
	}
	on, ok := onOffParam(params)
	if !ok {
		return errorResult(models.ErrorCodeProtocolError), nil
	}

	d.mu.Lock()
	d.on = on
	d.mu.Unlock()
	d.log.Debug("virtual switch toggled", zap.Bool("on", on))

	return models.ActionResult{Status: models.StatusSuccess, States: onOffState(on)}, nil
}
