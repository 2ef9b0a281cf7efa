package metrics

import "time"

// NoopMetrics is a no-operation implementation of Recorder
// All methods are empty and do nothing, providing zero overhead when metrics are disabled
type NoopMetrics struct{}

// Ensure NoopMetrics implements Recorder interface at compile time
var _ Recorder = (*NoopMetrics)(nil)

// NewNoopMetrics creates a new no-operation metrics recorder
func NewNoopMetrics() Recorder {
	return &NoopMetrics{}
}

func (n *NoopMetrics) RecordAuthCodeIssued(success bool) {}
func (n *NoopMetrics) RecordCodeExchange(result string)  {}
func (n *NoopMetrics) RecordLogin(success bool)          {}

func (n *NoopMetrics) RecordTokenIssued()                                          {}
func (n *NoopMetrics) RecordTokenValidation(result string, duration time.Duration) {}
func (n *NoopMetrics) RecordTokenRevoked(reason string)                            {}

func (n *NoopMetrics) RecordIntent(intent string, success bool, duration time.Duration) {}

func (n *NoopMetrics) RecordDriverCall(
	driverType, operation, status string,
	duration time.Duration,
) {
}

func (n *NoopMetrics) RecordRequestSync(success bool) {}

func (n *NoopMetrics) SetActiveTokensCount(count int)            {}
func (n *NoopMetrics) RecordDatabaseQueryError(operation string) {}
