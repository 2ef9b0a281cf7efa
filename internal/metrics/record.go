package metrics

import "time"

const (
	resultSuccess = "success"
	resultError   = "error"
	resultFailure = "failure"
)

func successLabel(success bool, failure string) string {
	if success {
		return resultSuccess
	}
	return failure
}

// RecordAuthCodeIssued records authorization code generation
func (m *Metrics) RecordAuthCodeIssued(success bool) {
	m.AuthCodesIssuedTotal.WithLabelValues(successLabel(success, resultError)).Inc()
}

// RecordCodeExchange records the outcome of a code-for-token exchange
func (m *Metrics) RecordCodeExchange(result string) {
	m.CodeExchangesTotal.WithLabelValues(result).Inc()
}

// RecordLogin records a login attempt on the authorization page
func (m *Metrics) RecordLogin(success bool) {
	m.LoginAttemptsTotal.WithLabelValues(successLabel(success, resultFailure)).Inc()
}

// RecordTokenIssued records token issuance
func (m *Metrics) RecordTokenIssued() {
	m.TokensIssuedTotal.Inc()
	m.TokensActive.Inc()
}

// RecordTokenValidation records token validation
func (m *Metrics) RecordTokenValidation(result string, duration time.Duration) {
	m.TokenValidationTotal.WithLabelValues(result).Inc()
	m.TokenValidationSeconds.Observe(duration.Seconds())
}

// RecordTokenRevoked records token revocation
func (m *Metrics) RecordTokenRevoked(reason string) {
	m.TokensRevokedTotal.WithLabelValues(reason).Inc()
	m.TokensActive.Dec()
}

// RecordIntent records one handled intent
func (m *Metrics) RecordIntent(intent string, success bool, duration time.Duration) {
	m.IntentsTotal.WithLabelValues(intent, successLabel(success, resultError)).Inc()
	m.IntentDuration.WithLabelValues(intent).Observe(duration.Seconds())
}

// RecordDriverCall records a single driver query or action
func (m *Metrics) RecordDriverCall(
	driverType, operation, status string,
	duration time.Duration,
) {
	m.DriverCallsTotal.WithLabelValues(driverType, operation, status).Inc()
	m.DriverCallDuration.WithLabelValues(driverType, operation).Observe(duration.Seconds())
}

// RecordRequestSync records a Home Graph request-sync call
func (m *Metrics) RecordRequestSync(success bool) {
	m.RequestSyncCallsTotal.WithLabelValues(successLabel(success, resultError)).Inc()
}

// SetActiveTokensCount sets the current count of stored tokens (for periodic updates)
func (m *Metrics) SetActiveTokensCount(count int) {
	m.TokensActive.Set(float64(count))
}

// RecordDatabaseQueryError records a database query error during metric collection
func (m *Metrics) RecordDatabaseQueryError(operation string) {
	m.DatabaseQueryErrorsTotal.WithLabelValues(operation).Inc()
}
