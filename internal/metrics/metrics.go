package metrics

import (
	"sync"

	"github.com/ClusterM/google-assistant-smart-home/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the metrics interface used throughout the application.
type Recorder = core.Recorder

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Authorization Metrics
	AuthCodesIssuedTotal   *prometheus.CounterVec
	CodeExchangesTotal     *prometheus.CounterVec
	LoginAttemptsTotal     *prometheus.CounterVec
	TokensIssuedTotal      prometheus.Counter
	TokensRevokedTotal     *prometheus.CounterVec
	TokenValidationTotal   *prometheus.CounterVec
	TokenValidationSeconds prometheus.Histogram
	TokensActive           prometheus.Gauge

	// Fulfillment Metrics
	IntentsTotal          *prometheus.CounterVec
	IntentDuration        *prometheus.HistogramVec
	DriverCallsTotal      *prometheus.CounterVec
	DriverCallDuration    *prometheus.HistogramVec
	RequestSyncCallsTotal *prometheus.CounterVec

	// HTTP Request Metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge
	WebhookRequestsTotal *prometheus.CounterVec

	// Database Query Metrics
	DatabaseQueryErrorsTotal *prometheus.CounterVec
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init initializes metrics based on enabled flag
// If enabled=true, returns Prometheus-based Metrics
// If enabled=false, returns NoopMetrics (zero overhead)
// Uses sync.Once to ensure Prometheus metrics are only registered once
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = initMetrics()
	})
	return defaultMetrics
}

var driverBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15}

// initMetrics creates and registers all Prometheus metrics
func initMetrics() *Metrics {
	return &Metrics{
		AuthCodesIssuedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_auth_codes_issued_total",
				Help: "Total number of authorization codes issued",
			},
			[]string{"result"}, // success, error
		),
		CodeExchangesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_code_exchanges_total",
				Help: "Total number of authorization code exchanges",
			},
			[]string{"result"}, // success, invalid_client, invalid_code, expired, error
		),
		LoginAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_login_total",
				Help: "Total number of login attempts on the authorization page",
			},
			[]string{"result"}, // success, failure
		),
		TokensIssuedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "oauth_tokens_issued_total",
				Help: "Total number of access tokens issued",
			},
		),
		TokensRevokedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_tokens_revoked_total",
				Help: "Total number of access tokens revoked",
			},
			[]string{"reason"}, // disconnect
		),
		TokenValidationTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "oauth_token_validation_total",
				Help: "Total number of token validations",
			},
			[]string{"result"}, // valid, invalid, error
		),
		TokenValidationSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "oauth_token_validation_duration_seconds",
				Help:    "Time taken to validate tokens",
				Buckets: prometheus.DefBuckets,
			},
		),
		TokensActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "oauth_tokens_active",
				Help: "Current number of stored access tokens",
			},
		),

		IntentsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulfillment_intents_total",
				Help: "Total number of fulfillment intents handled",
			},
			[]string{"intent", "result"},
		),
		IntentDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fulfillment_intent_duration_seconds",
				Help:    "Time taken to handle a fulfillment intent",
				Buckets: driverBuckets,
			},
			[]string{"intent"},
		),
		DriverCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "driver_calls_total",
				Help: "Total number of device driver calls",
			},
			[]string{"driver", "operation", "status"}, // status: SUCCESS, ERROR, timeout
		),
		DriverCallDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "driver_call_duration_seconds",
				Help:    "Time taken by device driver calls",
				Buckets: driverBuckets,
			},
			[]string{"driver", "operation"},
		),
		RequestSyncCallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "homegraph_request_sync_total",
				Help: "Total number of Home Graph request-sync calls",
			},
			[]string{"result"},
		),

		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "http_request_duration_seconds",
				Help: "HTTP request latency in seconds",
				Buckets: []float64{
					0.001,
					0.005,
					0.010,
					0.025,
					0.050,
					0.100,
					0.250,
					0.500,
					1.0,
					2.5,
					5.0,
					10.0,
				},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Current number of HTTP requests being served",
			},
		),
		WebhookRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fulfillment_webhook_requests_total",
				Help: "Total number of fulfillment webhook calls by leading intent",
			},
			[]string{"intent", "status"},
		),

		DatabaseQueryErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "database_query_errors_total",
				Help: "Total number of database query errors during metric collection",
			},
			[]string{"operation"},
		),
	}
}
