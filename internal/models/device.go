package models

// Device types and traits used by the built-in drivers
const (
	DeviceTypeSwitch = "action.devices.types.SWITCH"
	TraitOnOff       = "action.devices.traits.OnOff"
)

// DeviceName is the naming block of a SYNC device.
type DeviceName struct {
	DefaultNames []string `json:"defaultNames,omitempty" yaml:"defaultNames,omitempty"`
	Name         string   `json:"name,omitempty"         yaml:"name,omitempty"`
	Nicknames    []string `json:"nicknames,omitempty"    yaml:"nicknames,omitempty"`
}

// DeviceInfo describes the hardware behind a device.
type DeviceInfo struct {
	Manufacturer string `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"        yaml:"model,omitempty"`
	HwVersion    string `json:"hwVersion,omitempty"    yaml:"hwVersion,omitempty"`
	SwVersion    string `json:"swVersion,omitempty"    yaml:"swVersion,omitempty"`
}

// DriverConfig selects and configures the driver behind a device. It is
// never sent to the platform.
type DriverConfig struct {
	Type string `json:"type" yaml:"type"`

	// command driver
	Query []string `json:"query,omitempty" yaml:"query,omitempty"`
	On    []string `json:"on,omitempty"    yaml:"on,omitempty"`
	Off   []string `json:"off,omitempty"   yaml:"off,omitempty"`

	// virtual driver
	InitialOn bool `json:"initial_on,omitempty" yaml:"initial_on,omitempty"`
}

// DeviceDescriptor is the static description of a device as reported by
// SYNC. The ID doubles as the driver registry key.
type DeviceDescriptor struct {
	ID              string         `json:"id"                       yaml:"-"`
	Type            string         `json:"type"                     yaml:"type"`
	Traits          []string       `json:"traits"                   yaml:"traits"`
	Name            DeviceName     `json:"name"                     yaml:"name"`
	WillReportState bool           `json:"willReportState"          yaml:"willReportState"`
	RoomHint        string         `json:"roomHint,omitempty"       yaml:"roomHint,omitempty"`
	DeviceInfo      *DeviceInfo    `json:"deviceInfo,omitempty"     yaml:"deviceInfo,omitempty"`
	Attributes      map[string]any `json:"attributes,omitempty"     yaml:"attributes,omitempty"`
	CustomData      map[string]any `json:"customData,omitempty"     yaml:"customData,omitempty"`
	OtherDeviceIDs  []OtherID      `json:"otherDeviceIds,omitempty" yaml:"otherDeviceIds,omitempty"`
}

// OtherID maps the device to an identifier used by local execution.
type OtherID struct {
	DeviceID string `json:"deviceId" yaml:"deviceId"`
}
