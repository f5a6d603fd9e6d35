package exporter

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/luongdev/rtcqos/pkg/calculator"
	"github.com/luongdev/rtcqos/pkg/logger"
)

const DefaultNamespace = "rtcqos"

// PrometheusExporter exposes session metrics as gauges labelled by session,
// peer and metric. Metrics without a value are counted, not published.
type PrometheusExporter struct {
	quality   *prometheus.GaugeVec
	undefined *prometheus.CounterVec
	reports   prometheus.Counter

	mu      sync.RWMutex
	running bool
}

// NewPrometheusExporter creates the collectors and registers them with reg
func NewPrometheusExporter(namespace string, reg prometheus.Registerer) (*PrometheusExporter, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	e := &PrometheusExporter{
		quality: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "quality",
			Help:      "Derived media quality metric of a session peer",
		}, []string{"session", "peer", "metric"}),
		undefined: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "undefined_metrics_total",
			Help:      "Metrics that could not be derived from the captured stats",
		}, []string{"metric"}),
		reports: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "exports_total",
			Help:      "Peer metric sets exported",
		}),
	}

	for _, c := range []prometheus.Collector{e.quality, e.undefined, e.reports} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "could not register collector")
		}
	}
	return e, nil
}

// MetricName turns a report key such as "avgSentBitrate (bps)" into a label
// value such as "avg_sent_bitrate_bps".
func MetricName(key string) string {
	var b strings.Builder
	prevUnderscore := true
	for _, r := range key {
		switch {
		case unicode.IsUpper(r):
			if !prevUnderscore {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevUnderscore = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevUnderscore = false
		case r == '%':
			if !prevUnderscore {
				b.WriteByte('_')
			}
			b.WriteString("ratio")
			prevUnderscore = false
		default:
			if !prevUnderscore {
				b.WriteByte('_')
				prevUnderscore = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

func (e *PrometheusExporter) ExportMetrics(ctx context.Context, sessionID, peer string, metrics *calculator.MetricsResult) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.running {
		return ErrStopped
	}

	var failed []string
	for _, key := range metrics.Keys() {
		value, _ := metrics.Get(key)
		name := MetricName(key)
		if value == "" {
			e.undefined.WithLabelValues(name).Inc()
			e.quality.DeleteLabelValues(sessionID, peer, name)
			continue
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			failed = append(failed, key)
			continue
		}
		e.quality.WithLabelValues(sessionID, peer, name).Set(f)
	}
	e.reports.Inc()

	if len(failed) > 0 {
		logger.WarnWithFields(map[string]interface{}{
			"session_id": sessionID,
			"peer":       peer,
			"metrics":    failed,
		}, "Skipped non-numeric metric values")
		return errors.Errorf("non-numeric values for %s", strings.Join(failed, ", "))
	}
	return nil
}

func (e *PrometheusExporter) Forget(ctx context.Context, sessionID string) error {
	n := e.quality.DeletePartialMatch(prometheus.Labels{"session": sessionID})
	logger.Debug("Removed %d series for session %s", n, sessionID)
	return nil
}

func (e *PrometheusExporter) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = true
	logger.Info("Prometheus exporter started")
	return nil
}

func (e *PrometheusExporter) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return nil
	}
	e.running = false
	e.quality.Reset()
	logger.Info("Prometheus exporter stopped")
	return nil
}
