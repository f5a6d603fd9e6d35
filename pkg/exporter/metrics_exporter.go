package exporter

import (
	"context"

	"github.com/pkg/errors"

	"github.com/luongdev/rtcqos/pkg/calculator"
)

// ErrStopped is returned when exporting through an exporter that is not running.
var ErrStopped = errors.New("exporter is not running")

// MetricsExporter publishes derived session metrics
type MetricsExporter interface {
	// ExportMetrics publishes the metrics computed for one peer of a session
	ExportMetrics(ctx context.Context, sessionID, peer string, metrics *calculator.MetricsResult) error

	// Forget drops every series published for a session
	Forget(ctx context.Context, sessionID string) error

	// Start begins accepting metrics
	Start(ctx context.Context) error

	// Stop clears published series and stops the exporter
	Stop(ctx context.Context) error
}

type nopExporter struct{}

// NewNopExporter returns an exporter that discards everything, used when
// exporting is disabled.
func NewNopExporter() MetricsExporter {
	return nopExporter{}
}

func (nopExporter) ExportMetrics(context.Context, string, string, *calculator.MetricsResult) error {
	return nil
}

func (nopExporter) Forget(context.Context, string) error { return nil }
func (nopExporter) Start(context.Context) error          { return nil }
func (nopExporter) Stop(context.Context) error           { return nil }
