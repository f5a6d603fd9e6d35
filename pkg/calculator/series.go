package calculator

import (
	"github.com/pion/webrtc/v3"

	"github.com/luongdev/rtcqos/pkg/stats"
)

const (
	fieldBytesSent            = "bytesSent"
	fieldBytesReceived        = "bytesReceived"
	fieldCurrentRoundTripTime = "currentRoundTripTime"
	fieldTotalRoundTripTime   = "totalRoundTripTime"
	fieldPacketsReceived      = "packetsReceived"
	fieldPacketsLost          = "packetsLost"
	fieldJitter               = "jitter"
)

var (
	candidatePairFields = []string{fieldBytesSent, fieldBytesReceived, fieldCurrentRoundTripTime, fieldTotalRoundTripTime, stats.FieldTimestamp}
	inboundFields       = []string{fieldBytesReceived, fieldPacketsReceived, fieldPacketsLost, fieldJitter, stats.FieldTimestamp}
	outboundFields      = []string{fieldBytesSent, stats.FieldTimestamp}

	mediaKinds = []webrtc.RTPCodecType{webrtc.RTPCodecTypeAudio, webrtc.RTPCodecTypeVideo}
)

// sample is the subset of one selected record's fields. A snapshot without
// the record yields an empty sample.
type sample map[string]stats.Value

func newSample(rec *stats.Record, fields []string) sample {
	s := make(sample, len(fields))
	if rec == nil {
		return s
	}
	for _, f := range fields {
		if rec.Has(f) {
			s[f] = rec.Get(f)
		}
	}
	return s
}

// lookup returns the field and whether it holds a usable (present, not NA) value.
func (s sample) lookup(field string) (stats.Value, bool) {
	v, ok := s[field]
	if !ok || v.IsNA() {
		return stats.NA, false
	}
	return v, true
}

// series holds the per-snapshot samples of one capture, index-aligned with
// the capture's snapshots.
type series struct {
	noStats  int
	pair     []sample
	inbound  map[webrtc.RTPCodecType][]sample
	outbound map[webrtc.RTPCodecType][]sample
}

func extractSeries(c *stats.Capture, direction stats.Direction) *series {
	n := c.Len()
	s := &series{
		noStats:  n,
		pair:     make([]sample, n),
		inbound:  make(map[webrtc.RTPCodecType][]sample),
		outbound: make(map[webrtc.RTPCodecType][]sample),
	}
	for _, kind := range mediaKinds {
		if direction.Includes(stats.DirectionInbound) {
			s.inbound[kind] = make([]sample, n)
		}
		if direction.Includes(stats.DirectionOutbound) {
			s.outbound[kind] = make([]sample, n)
		}
	}

	for i := 0; i < n; i++ {
		snap := c.Snapshots[i]
		s.pair[i] = newSample(stats.SelectCandidatePair(snap), candidatePairFields)
		for kind, in := range s.inbound {
			in[i] = newSample(stats.SelectStream(snap, webrtc.StatsTypeInboundRTP, kind), inboundFields)
		}
		for kind, out := range s.outbound {
			out[i] = newSample(stats.SelectStream(snap, webrtc.StatsTypeOutboundRTP, kind), outboundFields)
		}
	}
	return s
}
