package processor

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/elliotchance/orderedmap/v2"

	"github.com/luongdev/rtcqos/pkg/calculator"
)

// KeyLocalPeer is the report key of the local capture.
const KeyLocalPeer = "localPC"

// RemotePeerKey is the report key of the i-th remote capture.
func RemotePeerKey(i int) string {
	return fmt.Sprintf("remotePC[%d]", i)
}

// Report holds one MetricsResult per peer, local peer first, remote peers in
// capture order.
type Report struct {
	peers *orderedmap.OrderedMap[string, *calculator.MetricsResult]
}

func newReport() *Report {
	return &Report{peers: orderedmap.NewOrderedMap[string, *calculator.MetricsResult]()}
}

// Get returns the metrics of one peer.
func (r *Report) Get(peer string) (*calculator.MetricsResult, bool) {
	if r == nil {
		return nil, false
	}
	return r.peers.Get(peer)
}

// Peers lists the peer keys in report order.
func (r *Report) Peers() []string {
	if r == nil {
		return nil
	}
	return r.peers.Keys()
}

// Len returns the number of peers.
func (r *Report) Len() int {
	if r == nil {
		return 0
	}
	return r.peers.Len()
}

func (r *Report) MarshalJSON() ([]byte, error) {
	if r == nil || r.peers == nil {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for el := r.peers.Front(); el != nil; el = el.Next() {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, _ := json.Marshal(el.Key)
		v, err := json.Marshal(el.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (r *Report) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	if _, err := dec.Token(); err != nil {
		return err
	}
	r.peers = orderedmap.NewOrderedMap[string, *calculator.MetricsResult]()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		m := calculator.NewMetricsResult()
		if err := dec.Decode(m); err != nil {
			return err
		}
		r.peers.Set(key, m)
	}
	_, err := dec.Token()
	return err
}
