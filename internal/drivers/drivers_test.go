package drivers

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/ClusterM/google-assistant-smart-home/internal/core"
	"github.com/ClusterM/google-assistant-smart-home/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New("lamp", models.DriverConfig{Type: "zigbee"}, nil)
	assert.ErrorIs(t, err, ErrUnknownDriver)
}

func TestNew_CommandDriverNeedsCommands(t *testing.T) {
	_, err := New("pc", models.DriverConfig{Type: KindCommand}, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRegister(t *testing.T) {
	Register("test-kind", newVirtualDriver)
	t.Cleanup(func() { delete(factories, "test-kind") })

	d, err := New("lamp", models.DriverConfig{Type: "test-kind"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &VirtualDriver{}, d)
}

func TestVirtualDriver(t *testing.T) {
	ctx := context.Background()
	d, err := New("lamp", models.DriverConfig{Type: KindVirtual}, nil)
	require.NoError(t, err)

	state, err := d.Query(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, models.DeviceState{"on": false, "online": true}, state)

	res, err := d.Action(ctx, nil, models.CommandOnOff, map[string]any{"on": true})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Equal(t, models.DeviceState{"on": true, "online": true}, res.States)

	state, err = d.Query(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, true, state["on"])
}

func TestDrivers_UnsupportedCommand(t *testing.T) {
	requireShell(t)
	ctx := context.Background()

	for _, cfg := range []models.DriverConfig{
		{Type: KindVirtual},
		{Type: KindCommand, On: []string{"true"}, Off: []string{"true"}},
	} {
		t.Run(cfg.Type, func(t *testing.T) {
			d, err := New("dev", cfg, nil)
			require.NoError(t, err)

			res, err := d.Action(ctx, nil, "action.devices.commands.BrightnessAbsolute", map[string]any{"brightness": 50})
			require.NoError(t, err, "unsupported commands are not driver failures")
			assert.Equal(t, models.StatusError, res.Status)
			assert.Equal(t, models.ErrorCodeFunctionNotSupported, res.ErrorCode)
		})
	}
}

func TestDrivers_BadOnParam(t *testing.T) {
	ctx := context.Background()
	d, err := New("lamp", models.DriverConfig{Type: KindVirtual}, nil)
	require.NoError(t, err)

	for _, params := range []map[string]any{nil, {"on": "yes"}} {
		res, err := d.Action(ctx, nil, models.CommandOnOff, params)
		require.NoError(t, err)
		assert.Equal(t, models.StatusError, res.Status)
		assert.Equal(t, models.ErrorCodeProtocolError, res.ErrorCode)
	}
}

func newCommand(t *testing.T, cfg models.DriverConfig) core.Driver {
	t.Helper()
	requireShell(t)
	cfg.Type = KindCommand
	d, err := New("pc", cfg, nil)
	require.NoError(t, err)
	return d
}

func TestCommandDriver_QueryExitStatus(t *testing.T) {
	ctx := context.Background()

	up := newCommand(t, models.DriverConfig{Query: []string{"sh", "-c", "exit 0"}})
	state, err := up.Query(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, models.DeviceState{"on": true, "online": true}, state)

	down := newCommand(t, models.DriverConfig{Query: []string{"sh", "-c", "exit 1"}})
	state, err = down.Query(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, models.DeviceState{"on": false, "online": true}, state)
}

func TestCommandDriver_QueryMissingBinary(t *testing.T) {
	d := newCommand(t, models.DriverConfig{Query: []string{"/nonexistent/probe"}})
	_, err := d.Query(context.Background(), nil)
	assert.Error(t, err)
}

func TestCommandDriver_QueryTimeout(t *testing.T) {
	d := newCommand(t, models.DriverConfig{Query: []string{"sh", "-c", "exec sleep 5"}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := d.Query(ctx, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCommandDriver_OnOff(t *testing.T) {
	ctx := context.Background()
	d := newCommand(t, models.DriverConfig{
		On:  []string{"sh", "-c", "exit 0"},
		Off: []string{"sh", "-c", "exit 0"},
	})

	res, err := d.Action(ctx, nil, models.CommandOnOff, map[string]any{"on": true})
	require.NoError(t, err)
	assert.Equal(t, models.ActionResult{
		Status: models.StatusSuccess,
		States: models.DeviceState{"on": true, "online": true},
	}, res)

	// Without a probe the last commanded state is reported.
	state, err := d.Query(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, true, state["on"])

	res, err = d.Action(ctx, nil, models.CommandOnOff, map[string]any{"on": false})
	require.NoError(t, err)
	assert.Equal(t, false, res.States["on"])
}

func TestCommandDriver_ActionFailure(t *testing.T) {
	d := newCommand(t, models.DriverConfig{On: []string{"sh", "-c", "exit 3"}})

	_, err := d.Action(context.Background(), nil, models.CommandOnOff, map[string]any{"on": true})
	assert.Error(t, err)
}

func TestCommandDriver_MissingDirection(t *testing.T) {
	d := newCommand(t, models.DriverConfig{On: []string{"true"}})

	res, err := d.Action(context.Background(), nil, models.CommandOnOff, map[string]any{"on": false})
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, res.Status)
	assert.Equal(t, models.ErrorCodeFunctionNotSupported, res.ErrorCode)
}
