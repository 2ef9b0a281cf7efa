package models

import "encoding/json"

// Fulfillment intents
const (
	IntentSync       = "action.devices.SYNC"
	IntentQuery      = "action.devices.QUERY"
	IntentExecute    = "action.devices.EXECUTE"
	IntentDisconnect = "action.devices.DISCONNECT"
)

// CommandOnOff is the only command the built-in drivers understand.
const CommandOnOff = "action.devices.commands.OnOff"

// Per-item status values
const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// Error codes reported inside QUERY and EXECUTE payloads
const (
	ErrorCodeDeviceNotFound       = "deviceNotFound"
	ErrorCodeDeviceOffline        = "deviceOffline"
	ErrorCodeFunctionNotSupported = "functionNotSupported"
	ErrorCodeProtocolError        = "protocolError"
	ErrorCodeHardError            = "hardError"
)

// FulfillmentRequest is the body the platform POSTs to the fulfillment URL.
type FulfillmentRequest struct {
	RequestID string  `json:"requestId"`
	Inputs    []Input `json:"inputs"`
}

// Input is one intent of a fulfillment request. Payload is decoded lazily
// because its shape depends on the intent.
type Input struct {
	Intent  string          `json:"intent"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// DeviceRef names a device in QUERY and EXECUTE payloads.
type DeviceRef struct {
	ID         string         `json:"id"`
	CustomData map[string]any `json:"customData,omitempty"`
}

// QueryPayload is the payload of a QUERY intent.
type QueryPayload struct {
	Devices []DeviceRef `json:"devices"`
}

// Execution is one command to run against every device of a Command.
type Execution struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params,omitempty"`
}

// Command groups devices with the executions to apply to them.
type Command struct {
	Devices   []DeviceRef `json:"devices"`
	Execution []Execution `json:"execution"`
}

// ExecutePayload is the payload of an EXECUTE intent.
type ExecutePayload struct {
	Commands []Command `json:"commands"`
}

// DeviceState is the state map reported for a device, e.g.
// {"on": true, "online": true}. Error entries carry "status" and
// "errorCode" instead.
type DeviceState map[string]any

// ActionResult is what a driver returns for one execution.
type ActionResult struct {
	Status    string      `json:"status"`
	States    DeviceState `json:"states,omitempty"`
	ErrorCode string      `json:"errorCode,omitempty"`
}

// CommandResult is one entry of an EXECUTE response.
type CommandResult struct {
	IDs       []string    `json:"ids"`
	Status    string      `json:"status"`
	States    DeviceState `json:"states,omitempty"`
	ErrorCode string      `json:"errorCode,omitempty"`
}

// FulfillmentResponse mirrors the request id, empty or not, and carries
// the merged payload of all handled intents.
type FulfillmentResponse struct {
	RequestID string         `json:"requestId"`
	Payload   map[string]any `json:"payload,omitempty"`

	empty bool
}

// EmptyFulfillmentResponse is the DISCONNECT reply. It encodes as {}.
func EmptyFulfillmentResponse() *FulfillmentResponse {
	return &FulfillmentResponse{empty: true}
}

func (r FulfillmentResponse) MarshalJSON() ([]byte, error) {
	if r.empty {
		return []byte("{}"), nil
	}
	type wire FulfillmentResponse
	return json.Marshal(wire(r))
}
