package exporter

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/luongdev/rtcqos/pkg/calculator"
)

func metrics(t *testing.T, s string) *calculator.MetricsResult {
	t.Helper()
	m := calculator.NewMetricsResult()
	require.NoError(t, json.Unmarshal([]byte(s), m))
	return m
}

func newExporter(t *testing.T) *PrometheusExporter {
	t.Helper()
	e, err := NewPrometheusExporter("", prometheus.NewRegistry())
	require.NoError(t, err)
	require.NoError(t, e.Start(context.Background()))
	return e
}

func TestMetricName(t *testing.T) {
	tests := map[string]string{
		calculator.KeyAvgSentBitrate:       "avg_sent_bitrate_bps",
		calculator.KeyCurrentRoundTripTime: "current_round_trip_time_ms",
		calculator.KeyTotalBytesReceived:   "total_bytes_received_bytes",
		calculator.KeyAudioPacketsLoss:     "audio_packets_loss_ratio",
		calculator.KeyAudioJitter:          "audio_jitter_ms",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			require.Equal(t, want, MetricName(in))
		})
	}
}

func TestExportMetrics(t *testing.T) {
	ctx := context.Background()
	e := newExporter(t)

	err := e.ExportMetrics(ctx, "s1", "localPC", metrics(t, `{"avgSentBitrate (bps)":"12000","currentRoundTripTime (ms)":""}`))
	require.NoError(t, err)

	require.Equal(t, 12000.0, testutil.ToFloat64(e.quality.WithLabelValues("s1", "localPC", "avg_sent_bitrate_bps")))
	require.Equal(t, 1, testutil.CollectAndCount(e.quality))
	require.Equal(t, 1.0, testutil.ToFloat64(e.undefined.WithLabelValues("current_round_trip_time_ms")))
	require.Equal(t, 1.0, testutil.ToFloat64(e.reports))

	// a metric that becomes undefined drops its stale series
	err = e.ExportMetrics(ctx, "s1", "localPC", metrics(t, `{"avgSentBitrate (bps)":""}`))
	require.NoError(t, err)
	require.Equal(t, 0, testutil.CollectAndCount(e.quality))
}

func TestExportNonNumeric(t *testing.T) {
	e := newExporter(t)
	err := e.ExportMetrics(context.Background(), "s1", "remotePC[0]", metrics(t, `{"audioJitter (ms)":"abc","audioPacketsLoss (%)":"0.03"}`))
	require.Error(t, err)
	require.Contains(t, err.Error(), "audioJitter (ms)")
	require.Equal(t, 0.03, testutil.ToFloat64(e.quality.WithLabelValues("s1", "remotePC[0]", "audio_packets_loss_ratio")))
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	e := newExporter(t)
	m := metrics(t, `{"totalBytesSent (Bytes)":"100"}`)

	require.NoError(t, e.ExportMetrics(ctx, "s1", "localPC", m))
	require.NoError(t, e.ExportMetrics(ctx, "s1", "remotePC[0]", m))
	require.NoError(t, e.ExportMetrics(ctx, "s2", "localPC", m))
	require.Equal(t, 3, testutil.CollectAndCount(e.quality))

	require.NoError(t, e.Forget(ctx, "s1"))
	require.Equal(t, 1, testutil.CollectAndCount(e.quality))
}

func TestStopped(t *testing.T) {
	ctx := context.Background()
	e := newExporter(t)
	require.NoError(t, e.ExportMetrics(ctx, "s1", "localPC", metrics(t, `{"totalBytesSent (Bytes)":"1"}`)))

	require.NoError(t, e.Stop(ctx))
	require.NoError(t, e.Stop(ctx))
	require.Equal(t, 0, testutil.CollectAndCount(e.quality))
	require.ErrorIs(t, e.ExportMetrics(ctx, "s1", "localPC", metrics(t, `{}`)), ErrStopped)
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPrometheusExporter("rtcqos", reg)
	require.NoError(t, err)
	_, err = NewPrometheusExporter("rtcqos", reg)
	require.Error(t, err)
}

func TestNopExporter(t *testing.T) {
	e := NewNopExporter()
	require.NoError(t, e.Start(context.Background()))
	require.NoError(t, e.ExportMetrics(context.Background(), "s", "p", nil))
}
