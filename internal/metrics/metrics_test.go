package metrics

import (
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/vibe-labs/vibe-rewards/internal/metrics/metricsTypes"
	"github.com/vibe-labs/vibe-rewards/internal/metrics/prometheus"
	"go.uber.org/zap"
)

func Test_MetricsSink(t *testing.T) {
	l := zap.NewNop()

	t.Run("Should fan out to the prometheus client", func(t *testing.T) {
		registry := prom.NewRegistry()
		pm, err := prometheus.NewPrometheusMetricsClient(&prometheus.PrometheusMetricsConfig{
			Metrics:    metricsTypes.MetricTypes,
			Registerer: registry,
		}, l)
		assert.Nil(t, err)

		sink, err := NewMetricsSink(&MetricsSinkConfig{}, []metricsTypes.IMetricsClient{pm})
		assert.Nil(t, err)

		assert.Nil(t, sink.Incr(metricsTypes.Metric_Incr_ClaimAttempt, nil, 1))
		assert.Nil(t, sink.Incr(metricsTypes.Metric_Incr_ClaimOutcome, []metricsTypes.MetricsLabel{{Name: "outcome", Value: "success"}}, 1))
		assert.Nil(t, sink.Gauge(metricsTypes.Metric_Gauge_StoredClaims, 3, nil))
		assert.Nil(t, sink.Timing(metricsTypes.Metric_Timing_LedgerCall, 20*time.Millisecond, []metricsTypes.MetricsLabel{
			{Name: "method", Value: "claimTokens"},
			{Name: "mode", Value: "simulated"},
		}))

		count, err := testutil.GatherAndCount(registry, "vibe_rewards_claim_attempt", "vibe_rewards_claim_outcome")
		assert.Nil(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("Should reject labels that were not declared", func(t *testing.T) {
		pm, err := prometheus.NewPrometheusMetricsClient(&prometheus.PrometheusMetricsConfig{
			Metrics:    metricsTypes.MetricTypes,
			Registerer: prom.NewRegistry(),
		}, l)
		assert.Nil(t, err)

		err = pm.Incr(metricsTypes.Metric_Incr_ClaimOutcome, []metricsTypes.MetricsLabel{{Name: "unknown", Value: "x"}}, 1)
		assert.NotNil(t, err)
	})

	t.Run("Should be a no-op without clients", func(t *testing.T) {
		sink := NewNoopSink()
		assert.Nil(t, sink.Incr(metricsTypes.Metric_Incr_ClaimAttempt, nil, 1))
	})
}
