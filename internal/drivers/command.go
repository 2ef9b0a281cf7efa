package drivers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	"github.com/ClusterM/google-assistant-smart-home/internal/core"
	"github.com/ClusterM/google-assistant-smart-home/internal/models"

	"go.uber.org/zap"
)

var _ core.Driver = (*CommandDriver)(nil)

// waitDelay bounds how long a killed command may hold its output pipes.
const waitDelay = time.Second

// CommandDriver controls a device by running local commands: a probe whose
// exit status tells whether the device is on, and one command each for
// switching it on and off (for example wake-on-LAN and a remote shutdown).
type CommandDriver struct {
	query []string
	on    []string
	off   []string
	log   *zap.Logger

	// last commanded state, reported when no probe is configured
	mu   sync.Mutex
	last bool
}

func newCommandDriver(deviceID string, cfg models.DriverConfig, log *zap.Logger) (core.Driver, error) {
	if len(cfg.On) == 0 && len(cfg.Off) == 0 && len(cfg.Query) == 0 {
		return nil, fmt.Errorf("%w: device %s: command driver needs query, on or off", ErrInvalidConfig, deviceID)
	}
	return &CommandDriver{
		query: cfg.Query,
		on:    cfg.On,
		off:   cfg.Off,
		log:   log,
		last:  cfg.InitialOn,
	}, nil
}

// Query runs the probe command. Exit status 0 means on, any other exit
// status means off. Failing to run the probe at all is an error.
func (d *CommandDriver) Query(ctx context.Context, _ map[string]any) (models.DeviceState, error) {
	if len(d.query) == 0 {
		d.mu.Lock()
		defer d.mu.Unlock()
		return onOffState(d.last), nil
	}

	err := d.run(ctx, d.query)
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return onOffState(true), nil
	case errors.As(err, &exitErr) && ctx.Err() == nil:
		return onOffState(false), nil
	default:
		return nil, err
	}
}

// Action handles OnOff. Anything else is reported as functionNotSupported.
func (d *CommandDriver) Action(
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

	argv := d.off
	if on {
		argv = d.on
	}
	if len(argv) == 0 {
		return errorResult(models.ErrorCodeFunctionNotSupported), nil
	}
	if err := d.run(ctx, argv); err != nil {
		return models.ActionResult{}, err
	}

	d.mu.Lock()
	d.last = on
	d.mu.Unlock()

	return models.ActionResult{Status: models.StatusSuccess, States: onOffState(on)}, nil
}

func (d *CommandDriver) run(ctx context.Context, argv []string) error {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...) //nolint:gosec // argv comes from operator-provided device records
	cmd.Stdout = &out
	cmd.Stderr = &out
	cmd.WaitDelay = waitDelay

	err := cmd.Run()
	d.log.Debug("command finished",
		zap.Strings("argv", argv),
		zap.ByteString("output", bytes.TrimSpace(out.Bytes())),
		zap.Error(err),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", argv[0], ctxErr)
		}
		return fmt.Errorf("%s: %w", argv[0], err)
	}
	return nil
}
