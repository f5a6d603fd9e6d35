package calculator

import (
	"fmt"

	"github.com/go-logr/logr"
	"github.com/pion/webrtc/v3"
	"github.com/pkg/errors"

	"github.com/luongdev/rtcqos/pkg/stats"
)

// QoSCalculator derives session quality metrics from one peer's capture
type QoSCalculator interface {
	// CalculateMetrics walks the capture's snapshots in order. direction
	// selects which stream metrics are reported: inbound for a remote peer,
	// outbound for the local one, or both.
	CalculateMetrics(capture *stats.Capture, direction stats.Direction) *MetricsResult
}

type qosCalculator struct {
	log logr.Logger
}

// NewQoSCalculator returns a stateless calculator. Metric failures are
// reported through log and never returned.
func NewQoSCalculator(log logr.Logger) QoSCalculator {
	return &qosCalculator{log: log}
}

func (c *qosCalculator) CalculateMetrics(capture *stats.Capture, direction stats.Direction) *MetricsResult {
	s := extractSeries(capture, direction)
	n := s.noStats
	m := NewMetricsResult()

	m.set(KeyCurrentRoundTripTime, c.compute(KeyCurrentRoundTripTime, "", func() (string, error) {
		return roundTripTime(s.pair, fieldCurrentRoundTripTime)
	}))
	m.set(KeyTotalRoundTripTime, c.compute(KeyTotalRoundTripTime, "", func() (string, error) {
		return roundTripTime(s.pair, fieldTotalRoundTripTime)
	}))
	m.set(KeyTotalBytesReceived, c.compute(KeyTotalBytesReceived, "0", func() (string, error) {
		return totalBytes(s.pair, fieldBytesReceived)
	}))
	m.set(KeyTotalBytesSent, c.compute(KeyTotalBytesSent, "0", func() (string, error) {
		return totalBytes(s.pair, fieldBytesSent)
	}))
	m.set(KeyAvgSentBitrate, c.compute(KeyAvgSentBitrate, "", func() (string, error) {
		return bitrate(s.pair, fieldBytesSent, n)
	}))
	m.set(KeyAvgReceivedBitrate, c.compute(KeyAvgReceivedBitrate, "", func() (string, error) {
		return bitrate(s.pair, fieldBytesReceived, n)
	}))

	if direction.Includes(stats.DirectionInbound) {
		m.set(KeyInboundAudioBitrate, c.compute(KeyInboundAudioBitrate, "", func() (string, error) {
			return bitrate(s.inbound[webrtc.RTPCodecTypeAudio], fieldBytesReceived, n)
		}))
		m.set(KeyInboundVideoBitrate, c.compute(KeyInboundVideoBitrate, "", func() (string, error) {
			return bitrate(s.inbound[webrtc.RTPCodecTypeVideo], fieldBytesReceived, n)
		}))
	}
	if direction.Includes(stats.DirectionOutbound) {
		m.set(KeyOutboundAudioBitrate, c.compute(KeyOutboundAudioBitrate, "", func() (string, error) {
			return bitrate(s.outbound[webrtc.RTPCodecTypeAudio], fieldBytesSent, n)
		}))
		m.set(KeyOutboundVideoBitrate, c.compute(KeyOutboundVideoBitrate, "", func() (string, error) {
			return bitrate(s.outbound[webrtc.RTPCodecTypeVideo], fieldBytesSent, n)
		}))
	}
	if direction.Includes(stats.DirectionInbound) {
		m.set(KeyAudioJitter, c.compute(KeyAudioJitter, "", func() (string, error) {
			return averageJitter(s.inbound[webrtc.RTPCodecTypeAudio], n)
		}))
		m.set(KeyAudioPacketsLoss, c.compute(KeyAudioPacketsLoss, "", func() (string, error) {
			return packetLoss(s.inbound[webrtc.RTPCodecTypeAudio], n)
		}))
		m.set(KeyVideoPacketsLoss, c.compute(KeyVideoPacketsLoss, "", func() (string, error) {
			return packetLoss(s.inbound[webrtc.RTPCodecTypeVideo], n)
		}))
	}

	return m
}

// compute runs one metric in isolation. Errors and panics are logged and
// replaced by the metric's empty value.
func (c *qosCalculator) compute(key, empty string, fn func() (string, error)) (value string) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error(fmt.Errorf("%v", r), "metric computation panicked", "metric", key)
			value = empty
		}
	}()

	v, err := fn()
	switch {
	case err == nil:
		return v
	case errors.Is(err, errInsufficientSamples), errors.Is(err, errMissingCounters):
		c.log.V(1).Info("metric not derived", "metric", key, "reason", err.Error())
	default:
		c.log.Error(err, "metric computation failed", "metric", key)
	}
	return empty
}
