package observability

import (
	"net/http"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EncodeOperationsTotal counts Encode calls by outcome.
	EncodeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cratespec_encode_operations_total",
			Help: "Total number of package encode operations by outcome",
		},
		[]string{"status"}, // success, failure
	)

	// EncodeDuration tracks Encode call duration in seconds.
	EncodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cratespec_encode_duration_seconds",
			Help:    "Package encode duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to 16s
		},
		[]string{"status"},
	)

	// DecodeOperationsTotal counts Decode calls by outcome.
	DecodeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cratespec_decode_operations_total",
			Help: "Total number of package decode operations by outcome",
		},
		[]string{"status"},
	)

	// DecodeDuration tracks Decode call duration in seconds.
	DecodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cratespec_decode_duration_seconds",
			Help:    "Package decode duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"status"},
	)

	// SignatureVerificationsTotal counts signature verification outcomes by
	// SigType and error kind (or "valid").
	SignatureVerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cratespec_signature_verifications_total",
			Help: "Total number of per-signature verification outcomes",
		},
		[]string{"sig_type", "result"},
	)

	// ManifestIngestErrorsTotal counts manifest ingest failures by reason.
	ManifestIngestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cratespec_manifest_ingest_errors_total",
			Help: "Total number of manifest ingest failures by reason",
		},
		[]string{"reason"}, // schema, parse, missing_field
	)

	// RemoteSignRequestsTotal counts remote-PKI signing RPCs by outcome.
	RemoteSignRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cratespec_remote_sign_requests_total",
			Help: "Total number of remote signing RPCs by outcome",
		},
		[]string{"status"}, // success, failure, retried
	)

	// RemoteSignDuration tracks remote signing RPC duration in seconds.
	RemoteSignDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cratespec_remote_sign_duration_seconds",
			Help:    "Remote signing RPC duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~41s
		},
		[]string{"status"},
	)

	// CircuitBreakerState tracks the remote-PKI circuit breaker's state by host.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cratespec_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"host"},
	)

	// CircuitBreakerFailures counts circuit breaker failures by host.
	CircuitBreakerFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cratespec_circuit_breaker_failures_total",
			Help: "Total number of circuit breaker failures by host",
		},
		[]string{"host"},
	)

	// KeypairCacheHitsTotal and KeypairCacheMissesTotal track the local
	// fetch-or-cache store the remote-PKI adapter keeps for signer keypairs.
	KeypairCacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cratespec_keypair_cache_hits_total",
			Help: "Total number of local keypair cache hits",
		},
	)
	KeypairCacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cratespec_keypair_cache_misses_total",
			Help: "Total number of local keypair cache misses",
		},
	)
)

// MetricsHandler returns an HTTP handler exposing metrics in Prometheus
// exposition format.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer starts an HTTP server exposing Prometheus metrics at
// /metrics on addr. Intended for the front end's long-running remote-PKI
// client mode; a one-shot encode/decode invocation has no use for it.
func StartMetricsServer(addr string) error {
	http.Handle("/metrics", MetricsHandler())
	return http.ListenAndServe(addr, nil)
}

// GetCounterValue reads the current value of a labeled counter, for tests.
func GetCounterValue(counter *prometheus.CounterVec, labels ...string) (float64, error) {
	metric, err := counter.GetMetricWithLabelValues(labels...)
	if err != nil {
		return 0, err
	}

	var pb dto.Metric
	if err := metric.Write(&pb); err != nil {
		return 0, err
	}
	if pb.Counter != nil {
		return pb.Counter.GetValue(), nil
	}
	return 0, nil
}
