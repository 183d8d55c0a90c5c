package metricsTypes

import "time"

type IMetricsClient interface {
	Incr(name string, labels []MetricsLabel, value float64) error
	Gauge(name string, value float64, labels []MetricsLabel) error
	Timing(name string, value time.Duration, labels []MetricsLabel) error
}

type MetricsLabel struct {
	Name  string
	Value string
}

type MetricsType string

var (
	MetricsType_Incr   MetricsType = "incr"
	MetricsType_Gauge  MetricsType = "gauge"
	MetricsType_Timing MetricsType = "timing"
)

type MetricsTypeConfig struct {
	Name   string
	Labels []string
}

var (
	Metric_Incr_ClaimAttempt       = "claim.attempt"
	Metric_Incr_ClaimOutcome       = "claim.outcome"
	Metric_Incr_AttestationReading = "attestation.reading"
	Metric_Incr_HttpRequest        = "rpc.http.request"

	Metric_Gauge_StoredClaims = "claims.stored"

	Metric_Timing_LedgerCall   = "ledger.call.duration"
	Metric_Timing_HttpDuration = "rpc.http.duration"
)

// MetricTypes declares every metric up front; prometheus needs the label names at registration.
var MetricTypes = map[MetricsType][]MetricsTypeConfig{
	MetricsType_Incr: {
		MetricsTypeConfig{
			Name:   Metric_Incr_ClaimAttempt,
			Labels: []string{},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_ClaimOutcome,
			Labels: []string{"outcome"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_AttestationReading,
			Labels: []string{"degraded"},
		},
		MetricsTypeConfig{
			Name:   Metric_Incr_HttpRequest,
			Labels: []string{"path", "status"},
		},
	},
	MetricsType_Gauge: {
		MetricsTypeConfig{
			Name:   Metric_Gauge_StoredClaims,
			Labels: []string{},
		},
	},
	MetricsType_Timing: {
		MetricsTypeConfig{
			Name:   Metric_Timing_LedgerCall,
			Labels: []string{"method", "mode"},
		},
		MetricsTypeConfig{
			Name:   Metric_Timing_HttpDuration,
			Labels: []string{"path", "status"},
		},
	},
}
