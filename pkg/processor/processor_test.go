package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"github.com/luongdev/rtcqos/pkg/calculator"
	"github.com/luongdev/rtcqos/pkg/stats"
	"github.com/luongdev/rtcqos/pkg/store"
)

// raw builds a RawCapture; each poll is the JSON array of one getStats() call.
func raw(t *testing.T, polls ...string) *stats.RawCapture {
	t.Helper()
	rc := &stats.RawCapture{}
	for _, p := range polls {
		var entries []json.RawMessage
		require.NoError(t, json.Unmarshal([]byte(p), &entries))
		rc.Stats = append(rc.Stats, entries)
	}
	return rc
}

func localPoll(bytesSent, ts int) string {
	return fmt.Sprintf(`[
		{"type":"candidate-pair","id":"CP1","state":"succeeded","bytesSent":%d,"bytesReceived":0,"timestamp":%d,"currentRoundTripTime":0.05},
		{"type":"outbound-rtp","id":"OA","kind":"audio","bytesSent":%d,"timestamp":%d}
	]`, bytesSent, ts, bytesSent, ts)
}

func remotePoll(bytesReceived, lost, received, ts int) string {
	return fmt.Sprintf(`[
		{"type":"candidate-pair","id":"CP1","state":"succeeded","bytesSent":0,"bytesReceived":%d,"timestamp":%d},
		{"type":"inbound-rtp","id":"IA","mediaType":"audio","bytesReceived":%d,"packetsLost":%d,"packetsReceived":%d,"jitter":0.002,"timestamp":%d}
	]`, bytesReceived, ts, bytesReceived, lost, received, ts)
}

func newExtractor() Extractor {
	return NewExtractor(calculator.NewQoSCalculator(logr.Discard()))
}

func metric(t *testing.T, r *Report, peer, key string) string {
	t.Helper()
	m, ok := r.Get(peer)
	require.True(t, ok, "missing peer %s", peer)
	v, ok := m.Get(key)
	require.True(t, ok, "missing %s for %s", key, peer)
	return v
}

func TestExtract(t *testing.T) {
	e := newExtractor()
	local := stats.BuildCapture(raw(t, localPoll(0, 0), localPoll(1500, 1000)), nil)
	remotes := []*stats.Capture{
		stats.BuildCapture(raw(t, remotePoll(0, 0, 0, 0), remotePoll(2000, 3, 97, 1000)), nil),
		stats.BuildCapture(raw(t, remotePoll(100, 0, 10, 0)), nil),
	}

	r := e.Extract(local, remotes)
	require.Equal(t, []string{"localPC", "remotePC[0]", "remotePC[1]"}, r.Peers())

	require.Equal(t, "12000", metric(t, r, KeyLocalPeer, calculator.KeyAvgSentBitrate))
	require.Equal(t, "12000", metric(t, r, KeyLocalPeer, calculator.KeyOutboundAudioBitrate))
	require.Equal(t, "50", metric(t, r, KeyLocalPeer, calculator.KeyCurrentRoundTripTime))

	lm, _ := r.Get(KeyLocalPeer)
	require.NotContains(t, lm.Keys(), calculator.KeyAudioJitter)
	require.NotContains(t, lm.Keys(), calculator.KeyInboundAudioBitrate)

	require.Equal(t, "16000", metric(t, r, RemotePeerKey(0), calculator.KeyInboundAudioBitrate))
	require.Equal(t, "0.03", metric(t, r, RemotePeerKey(0), calculator.KeyAudioPacketsLoss))
	require.Equal(t, "2", metric(t, r, RemotePeerKey(0), calculator.KeyAudioJitter))

	rm, _ := r.Get(RemotePeerKey(0))
	require.NotContains(t, rm.Keys(), calculator.KeyOutboundAudioBitrate)

	// single poll: no bitrate or jitter, loss from the only poll
	require.Equal(t, "", metric(t, r, RemotePeerKey(1), calculator.KeyInboundAudioBitrate))
	require.Equal(t, "", metric(t, r, RemotePeerKey(1), calculator.KeyAudioJitter))
	require.Equal(t, "0", metric(t, r, RemotePeerKey(1), calculator.KeyAudioPacketsLoss))
}

func TestExtractOmitsMissingPeers(t *testing.T) {
	e := newExtractor()

	r := e.Extract(nil, nil)
	require.Equal(t, 0, r.Len())
	b, err := json.Marshal(r)
	require.NoError(t, err)
	require.JSONEq(t, `{}`, string(b))

	r = e.Extract(nil, []*stats.Capture{stats.BuildCapture(raw(t, remotePoll(1, 0, 1, 0)), nil)})
	require.Equal(t, []string{"remotePC[0]"}, r.Peers())

	r = e.Extract(stats.BuildCapture(raw(t), nil), nil)
	require.Equal(t, []string{"localPC"}, r.Peers())
	require.Equal(t, "0", metric(t, r, KeyLocalPeer, calculator.KeyTotalBytesSent))
	require.Equal(t, "", metric(t, r, KeyLocalPeer, calculator.KeyAvgSentBitrate))
}

func TestExtractRawFilter(t *testing.T) {
	e := newExtractor()
	local := raw(t, localPoll(0, 0), localPoll(1500, 1000))

	r := e.ExtractRaw(local, nil, stats.Filter{"outbound-rtp"})
	require.Equal(t, "", metric(t, r, KeyLocalPeer, calculator.KeyAvgSentBitrate))
	require.Equal(t, "12000", metric(t, r, KeyLocalPeer, calculator.KeyOutboundAudioBitrate))

	r = e.ExtractRaw(local, []*stats.RawCapture{raw(t, remotePoll(0, 0, 0, 0))}, nil)
	require.Equal(t, "12000", metric(t, r, KeyLocalPeer, calculator.KeyAvgSentBitrate))
	require.Equal(t, 2, r.Len())
}

func TestReportJSON(t *testing.T) {
	e := newExtractor()
	r := e.ExtractRaw(raw(t, localPoll(0, 0), localPoll(1500, 1000)),
		[]*stats.RawCapture{raw(t, remotePoll(0, 0, 0, 0))}, nil)

	b, err := json.Marshal(r)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(b), `{"localPC":{"currentRoundTripTime (ms)":"50",`), string(b))
	require.Less(t, strings.Index(string(b), "localPC"), strings.Index(string(b), "remotePC[0]"))

	var decoded Report
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, r.Peers(), decoded.Peers())
	m, _ := decoded.Get(KeyLocalPeer)
	orig, _ := r.Get(KeyLocalPeer)
	require.Equal(t, orig.Keys(), m.Keys())
	require.Equal(t, orig.Map(), m.Map())
}

type recordingExporter struct {
	exported  map[string]*calculator.MetricsResult
	forgotten []string
}

func (e *recordingExporter) ExportMetrics(_ context.Context, sessionID, peer string, m *calculator.MetricsResult) error {
	e.exported[sessionID+"/"+peer] = m
	return nil
}

func (e *recordingExporter) Forget(_ context.Context, sessionID string) error {
	e.forgotten = append(e.forgotten, sessionID)
	return nil
}

func (e *recordingExporter) Start(context.Context) error { return nil }
func (e *recordingExporter) Stop(context.Context) error  { return nil }

func TestSessionProcessor(t *testing.T) {
	ctx := context.Background()
	exp := &recordingExporter{exported: map[string]*calculator.MetricsResult{}}
	p := NewSessionProcessor(store.NewMemoryStore(), newExtractor(), exp, nil, time.Minute)

	_, err := p.Report(ctx, "s1", false)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.ErrorIs(t, p.StoreLocal(ctx, "s1", &stats.RawCapture{}), ErrEmptyCapture)
	_, err = p.StoreRemote(ctx, "s1", nil)
	require.ErrorIs(t, err, ErrEmptyCapture)

	require.NoError(t, p.StoreLocal(ctx, "s1", raw(t, localPoll(0, 0), localPoll(1500, 1000))))
	idx, err := p.StoreRemote(ctx, "s1", raw(t, remotePoll(0, 0, 0, 0), remotePoll(2000, 3, 97, 1000)))
	require.NoError(t, err)
	require.Equal(t, 0, idx)

	r, err := p.Report(ctx, "s1", false)
	require.NoError(t, err)
	require.Equal(t, []string{"localPC", "remotePC[0]"}, r.Peers())
	require.Empty(t, exp.exported)

	_, err = p.Report(ctx, "s1", true)
	require.NoError(t, err)
	require.Len(t, exp.exported, 2)
	v, _ := exp.exported["s1/localPC"].Get(calculator.KeyAvgSentBitrate)
	require.Equal(t, "12000", v)

	require.NoError(t, p.Delete(ctx, "s1"))
	require.Equal(t, []string{"s1"}, exp.forgotten)
	_, err = p.Report(ctx, "s1", false)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessionProcessorFilter(t *testing.T) {
	ctx := context.Background()
	p := NewSessionProcessor(store.NewMemoryStore(), newExtractor(), nil, stats.Filter{"inbound-rtp"}, 0)

	require.NoError(t, p.StoreLocal(ctx, "s1", raw(t, localPoll(0, 0), localPoll(1500, 1000))))
	r, err := p.Report(ctx, "s1", true)
	require.NoError(t, err)
	require.Equal(t, "", metric(t, r, KeyLocalPeer, calculator.KeyAvgSentBitrate))
	require.Equal(t, "0", metric(t, r, KeyLocalPeer, calculator.KeyTotalBytesSent))
}
