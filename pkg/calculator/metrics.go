package calculator

import (
	"bytes"
	"encoding/json"

	"github.com/elliotchance/orderedmap/v2"
)

// Metric keys double as report column headers and must not change.
const (
	KeyCurrentRoundTripTime = "currentRoundTripTime (ms)"
	KeyTotalRoundTripTime   = "totalRoundTripTime (ms)"
	KeyTotalBytesReceived   = "totalBytesReceived (Bytes)"
	KeyTotalBytesSent       = "totalBytesSent (Bytes)"
	KeyAvgSentBitrate       = "avgSentBitrate (bps)"
	KeyAvgReceivedBitrate   = "avgReceivedBitrate (bps)"
	KeyInboundAudioBitrate  = "inboundAudioBitrate (bps)"
	KeyInboundVideoBitrate  = "inboundVideoBitrate (bps)"
	KeyOutboundAudioBitrate = "outboundAudioBitrate (bps)"
	KeyOutboundVideoBitrate = "outboundVideoBitrate (bps)"
	KeyAudioJitter          = "audioJitter (ms)"
	// packet loss is reported as a 0-1 fraction despite the "(%)" label
	KeyAudioPacketsLoss = "audioPacketsLoss (%)"
	KeyVideoPacketsLoss = "videoPacketsLoss (%)"
)

// MetricsResult maps metric keys to string-encoded numbers, "" when a metric
// could not be derived. Keys keep the order they were computed in.
type MetricsResult struct {
	values *orderedmap.OrderedMap[string, string]
}

// NewMetricsResult returns an empty result.
func NewMetricsResult() *MetricsResult {
	return &MetricsResult{values: orderedmap.NewOrderedMap[string, string]()}
}

func (m *MetricsResult) set(key, value string) {
	m.values.Set(key, value)
}

// Get returns the value stored for key.
func (m *MetricsResult) Get(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	return m.values.Get(key)
}

// Keys returns the metric keys in computation order.
func (m *MetricsResult) Keys() []string {
	if m == nil {
		return nil
	}
	return m.values.Keys()
}

// Len returns the number of metrics.
func (m *MetricsResult) Len() int {
	if m == nil {
		return 0
	}
	return m.values.Len()
}

// Map copies the result into a plain map.
func (m *MetricsResult) Map() map[string]string {
	out := make(map[string]string, m.Len())
	if m == nil {
		return out
	}
	for el := m.values.Front(); el != nil; el = el.Next() {
		out[el.Key] = el.Value
	}
	return out
}

func (m *MetricsResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for el := m.values.Front(); el != nil; el = el.Next() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, _ := json.Marshal(el.Key)
		v, _ := json.Marshal(el.Value)
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *MetricsResult) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	if _, err := dec.Token(); err != nil {
		return err
	}
	m.values = orderedmap.NewOrderedMap[string, string]()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var value string
		if err := dec.Decode(&value); err != nil {
			return err
		}
		m.values.Set(key, value)
	}
	_, err := dec.Token()
	return err
}
