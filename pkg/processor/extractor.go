package processor

import (
	"github.com/luongdev/rtcqos/pkg/calculator"
	"github.com/luongdev/rtcqos/pkg/stats"
)

// Extractor turns one local capture and any number of remote captures into a
// per-peer metrics report.
type Extractor interface {
	// Extract computes outbound metrics for local and inbound metrics for
	// each remote. A nil local or empty remotes simply omits those keys.
	Extract(local *stats.Capture, remotes []*stats.Capture) *Report

	// ExtractRaw classifies raw captures with filter, then calls Extract.
	ExtractRaw(local *stats.RawCapture, remotes []*stats.RawCapture, filter stats.Filter) *Report
}

type extractor struct {
	calculator calculator.QoSCalculator
}

// NewExtractor creates an extractor backed by calc
func NewExtractor(calc calculator.QoSCalculator) Extractor {
	return &extractor{calculator: calc}
}

func (e *extractor) Extract(local *stats.Capture, remotes []*stats.Capture) *Report {
	r := newReport()
	if local != nil {
		r.peers.Set(KeyLocalPeer, e.calculator.CalculateMetrics(local, stats.DirectionOutbound))
	}
	for i, remote := range remotes {
		r.peers.Set(RemotePeerKey(i), e.calculator.CalculateMetrics(remote, stats.DirectionInbound))
	}
	return r
}

func (e *extractor) ExtractRaw(local *stats.RawCapture, remotes []*stats.RawCapture, filter stats.Filter) *Report {
	var localCapture *stats.Capture
	if local != nil {
		localCapture = stats.BuildCapture(local, filter)
	}
	remoteCaptures := make([]*stats.Capture, 0, len(remotes))
	for _, remote := range remotes {
		remoteCaptures = append(remoteCaptures, stats.BuildCapture(remote, filter))
	}
	return e.Extract(localCapture, remoteCaptures)
}
