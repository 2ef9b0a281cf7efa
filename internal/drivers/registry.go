package drivers

import (
	"errors"
	"fmt"

	"github.com/ClusterM/google-assistant-smart-home/internal/core"
	"github.com/ClusterM/google-assistant-smart-home/internal/models"

	"go.uber.org/zap"
)

// Driver kinds understood out of the box
const (
	KindCommand = "command"
	KindVirtual = "virtual"
)

var (
	ErrUnknownDriver = errors.New("unknown driver type")
	ErrInvalidConfig = errors.New("invalid driver configuration")
)

// Factory builds the driver for one device from its configuration block.
type Factory func(deviceID string, cfg models.DriverConfig, log *zap.Logger) (core.Driver, error)

// factories maps driver kinds to their constructors
var factories = map[string]Factory{
	KindCommand: newCommandDriver,
	KindVirtual: newVirtualDriver,
}

// New returns the driver for deviceID as selected by cfg.Type
func New(deviceID string, cfg models.DriverConfig, log *zap.Logger) (core.Driver, error) {
	factory, exists := factories[cfg.Type]
	if !exists {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Type)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return factory(deviceID, cfg, log.With(zap.String("device_id", deviceID)))
}

// Register allows adding custom driver kinds. It is not safe to call
// concurrently with New and is meant for init-time use.
func Register(kind string, factory Factory) {
	factories[kind] = factory
}

// onOffParam extracts the "on" parameter of an OnOff execution.
func onOffParam(params map[string]any) (bool, bool) {
	v, ok := params["on"]
	if !ok {
		return false, false
	}
	on, ok := v.(bool)
	return on, ok
}

func errorResult(code string) models.ActionResult {
	return models.ActionResult{Status: models.StatusError, ErrorCode: code}
}

func onOffState(on bool) models.DeviceState {
	return models.DeviceState{"on": on, "online": true}
}
