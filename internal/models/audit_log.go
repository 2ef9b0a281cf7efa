package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of audit event
type EventType string

const (
	// Authorization code events
	EventAuthCodeIssued      EventType = "AUTH_CODE_ISSUED"
	EventAuthRequestInvalid  EventType = "AUTH_REQUEST_INVALID"
	EventLoginFailed         EventType = "LOGIN_FAILED"
	EventTokenExchangeFailed EventType = "TOKEN_EXCHANGE_FAILED" //nolint:gosec // G101: event name, not a credential
	EventAccessTokenIssued   EventType = "ACCESS_TOKEN_ISSUED"   //nolint:gosec // G101: event name, not a credential
	EventAccessDenied        EventType = "ACCESS_DENIED"
	EventTokenRevoked        EventType = "TOKEN_REVOKED"
	EventDeviceCommand       EventType = "DEVICE_COMMAND"
	EventFulfillmentRejected EventType = "FULFILLMENT_REJECTED"
)

// EventSeverity represents the severity level of an audit event
type EventSeverity string

const (
	SeverityInfo     EventSeverity = "INFO"
	SeverityWarning  EventSeverity = "WARNING"
	SeverityError    EventSeverity = "ERROR"
	SeverityCritical EventSeverity = "CRITICAL"
)

// ResourceType represents the type of resource being operated on
type ResourceType string

const (
	ResourceUser     ResourceType = "USER"
	ResourceToken    ResourceType = "TOKEN"
	ResourceAuthCode ResourceType = "AUTH_CODE"
	ResourceDevice   ResourceType = "DEVICE"
	ResourceRequest  ResourceType = "REQUEST"
)

// AuditDetails stores additional event-specific information as JSON
type AuditDetails map[string]any

// Value implements the driver.Valuer interface for database storage
func (a AuditDetails) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil //nolint:nilnil // nil driver.Value represents SQL NULL
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface for database retrieval
func (a *AuditDetails) Scan(value any) error {
	if value == nil {
		*a = nil
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("failed to unmarshal AuditDetails value: %v", value)
	}

	result := make(AuditDetails)
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}

	*a = result
	return nil
}

// AuditLog is an immutable record of a security-relevant event.
type AuditLog struct {
	ID string `gorm:"primaryKey;type:varchar(36)" json:"id"`

	EventType EventType     `gorm:"type:varchar(50);index;not null" json:"event_type"`
	EventTime time.Time     `gorm:"index;not null"                  json:"event_time"`
	Severity  EventSeverity `gorm:"type:varchar(20);not null"       json:"severity"`

	ActorUserID string `gorm:"type:varchar(100);index" json:"actor_user_id"`
	ActorIP     string `gorm:"type:varchar(45);index"  json:"actor_ip"`

	ResourceType ResourceType `gorm:"type:varchar(50);index"  json:"resource_type"`
	ResourceID   string       `gorm:"type:varchar(100);index" json:"resource_id"`

	Action       string       `gorm:"type:varchar(255);not null" json:"action"`
	Details      AuditDetails `gorm:"type:json"                  json:"details"`
	Success      bool         `gorm:"index;not null"             json:"success"`
	ErrorMessage string       `gorm:"type:text"                  json:"error_message,omitempty"`

	UserAgent     string `gorm:"type:varchar(500)" json:"user_agent,omitempty"`
	RequestPath   string `gorm:"type:varchar(500)" json:"request_path,omitempty"`
	RequestMethod string `gorm:"type:varchar(10)"  json:"request_method,omitempty"`

	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

// TableName specifies the table name for GORM
func (AuditLog) TableName() string {
	return "audit_logs"
}
