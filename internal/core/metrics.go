package core

import (
	"context"
	"time"
)

// Recorder defines the interface for recording application metrics.
// Implementations include Metrics (Prometheus-based) and NoopMetrics (no-op).
type Recorder interface {
	// Authorization
	RecordAuthCodeIssued(success bool)
	RecordCodeExchange(result string)
	RecordLogin(success bool)

	// Token Operations
	RecordTokenIssued()
	RecordTokenValidation(result string, duration time.Duration)
	RecordTokenRevoked(reason string)

	// Fulfillment
	RecordIntent(intent string, success bool, duration time.Duration)
	RecordDriverCall(driverType, operation, status string, duration time.Duration)

	// Home Graph
	RecordRequestSync(success bool)

	// Gauge Setters (for periodic updates)
	SetActiveTokensCount(count int)

	// Database Operations
	RecordDatabaseQueryError(operation string)
}

// MetricsStore defines the DB operations needed by the gauge updater.
type MetricsStore interface {
	CountAccessTokens(ctx context.Context) (int64, error)
}
