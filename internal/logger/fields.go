package logger

import "go.uber.org/zap"

// RemoteAddr is the caller's address as seen by the server.
func RemoteAddr(v string) zap.Field { return zap.String("remote_addr", v) }

// User is the acting user identifier, "-" when unknown.
func User(v string) zap.Field {
	if v == "" {
		v = "-"
	}
	return zap.String("user", v)
}

// DeviceID identifies the device a driver call targets.
func DeviceID(v string) zap.Field { return zap.String("device_id", v) }

// Intent is the fulfillment intent name.
func Intent(v string) zap.Field { return zap.String("intent", v) }

// RequestID is the platform-assigned fulfillment request id.
func RequestID(v string) zap.Field { return zap.String("request_id", v) }
