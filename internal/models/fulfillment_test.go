package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFulfillmentResponse_Encoding(t *testing.T) {
	tests := []struct {
		name string
		resp *FulfillmentResponse
		want string
	}{
		{"disconnect", EmptyFulfillmentResponse(), `{}`},
		{"empty request id kept", &FulfillmentResponse{Payload: map[string]any{"x": 1}}, `{"requestId":"","payload":{"x":1}}`},
		{"request id mirrored", &FulfillmentResponse{RequestID: "ff36a3cc"}, `{"requestId":"ff36a3cc"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := json.Marshal(tt.resp)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(out))
		})
	}
}

func TestFulfillmentRequest_DecodesExecute(t *testing.T) {
	body := `{
	  "requestId": "ff36a3cc",
	  "inputs": [{
	    "intent": "action.devices.EXECUTE",
	    "payload": {"commands": [{
	      "devices": [{"id": "pc", "customData": {"mac": "00:11:22:33:44:55"}}],
	      "execution": [{"command": "action.devices.commands.OnOff", "params": {"on": true}}]
	    }]}
	  }]
	}`

	var req FulfillmentRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	require.Len(t, req.Inputs, 1)
	assert.Equal(t, IntentExecute, req.Inputs[0].Intent)

	var payload ExecutePayload
	require.NoError(t, json.Unmarshal(req.Inputs[0].Payload, &payload))
	require.Len(t, payload.Commands, 1)
	assert.Equal(t, "pc", payload.Commands[0].Devices[0].ID)
	assert.Equal(t, "00:11:22:33:44:55", payload.Commands[0].Devices[0].CustomData["mac"])
	assert.Equal(t, true, payload.Commands[0].Execution[0].Params["on"])
}

func TestDeviceDescriptor_SyncEncoding(t *testing.T) {
	d := DeviceDescriptor{
		ID:     "pc",
		Type:   DeviceTypeSwitch,
		Traits: []string{TraitOnOff},
		Name:   DeviceName{Name: "PC"},
	}

	out, err := json.Marshal(d)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "roomHint")
	assert.Contains(t, string(out), `"id":"pc"`)
	assert.Contains(t, string(out), `"willReportState":false`)
}
