package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditDetails_ValueScan(t *testing.T) {
	details := AuditDetails{"device_id": "pc", "command": CommandOnOff}

	v, err := details.Value()
	require.NoError(t, err)

	var fromBytes AuditDetails
	require.NoError(t, fromBytes.Scan(v))
	assert.Equal(t, "pc", fromBytes["device_id"])

	var fromString AuditDetails
	require.NoError(t, fromString.Scan(string(v.([]byte))))
	assert.Equal(t, CommandOnOff, fromString["command"])
}

func TestAuditDetails_Nil(t *testing.T) {
	var details AuditDetails
	v, err := details.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	scanned := AuditDetails{"x": 1}
	require.NoError(t, scanned.Scan(nil))
	assert.Nil(t, scanned)
}

func TestAuditDetails_ScanRejectsUnknownType(t *testing.T) {
	var details AuditDetails
	assert.Error(t, details.Scan(42))
}
