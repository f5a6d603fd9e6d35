package stats

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v3"
	"github.com/pkg/errors"
)

// RawCapture is one peer's collected getStats() polls as posted by the
// browser-side collector.
type RawCapture struct {
	Stats  [][]json.RawMessage `json:"stats"`
	Offer  json.RawMessage     `json:"offer,omitempty"`
	Answer json.RawMessage     `json:"answer,omitempty"`
}

// DecodeCapture reads a RawCapture from r.
func DecodeCapture(r io.Reader) (*RawCapture, error) {
	var raw RawCapture
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode capture")
	}
	return &raw, nil
}

// Capture is the classified form of a RawCapture: one Snapshot per poll in
// poll order, plus the descriptors when no filter was applied.
type Capture struct {
	SDP       *SDPPair    `json:"sdp,omitempty"`
	Snapshots []*Snapshot `json:"statsArray"`
}

// Len is the number of polls.
func (c *Capture) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Snapshots)
}

// BuildCapture classifies every poll of raw. Entries that fail to decode are
// skipped; a null poll becomes an empty snapshot.
func BuildCapture(raw *RawCapture, filter Filter) *Capture {
	c := &Capture{}
	if raw == nil {
		return c
	}

	c.Snapshots = make([]*Snapshot, 0, len(raw.Stats))
	for _, poll := range raw.Stats {
		entries := make([]RawStatEntry, 0, len(poll))
		for _, item := range poll {
			e, err := ParseEntry(item)
			if err != nil {
				continue
			}
			entries = append(entries, e)
		}
		c.Snapshots = append(c.Snapshots, BuildSnapshot(entries, filter))
	}

	if filter.IncludeSDP() {
		offer := parseDescription(raw.Offer)
		answer := parseDescription(raw.Answer)
		if offer != nil || answer != nil {
			c.SDP = &SDPPair{Offer: offer, Answer: answer}
		}
	}
	return c
}

func parseDescription(raw json.RawMessage) *webrtc.SessionDescription {
	if len(raw) == 0 {
		return nil
	}
	var d struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil
	}
	if d.Type == "" && d.SDP == "" {
		return nil
	}
	return &webrtc.SessionDescription{Type: webrtc.NewSDPType(strings.ToLower(d.Type)), SDP: d.SDP}
}

// SDPPair is the offer/answer exchanged for the session.
type SDPPair struct {
	Offer  *webrtc.SessionDescription `json:"offer,omitempty"`
	Answer *webrtc.SessionDescription `json:"answer,omitempty"`
}

// MediaSummary describes one m= section of a session description.
type MediaSummary struct {
	Kind      string   `json:"kind"`
	Mid       string   `json:"mid,omitempty"`
	Direction string   `json:"direction,omitempty"`
	Codecs    []string `json:"codecs,omitempty"`
}

// SDPSummary lists the media sections of both descriptors.
type SDPSummary struct {
	Offer  []MediaSummary `json:"offer,omitempty"`
	Answer []MediaSummary `json:"answer,omitempty"`
}

// Summary parses both descriptors. A nil pair yields a nil summary.
func (p *SDPPair) Summary() (*SDPSummary, error) {
	if p == nil {
		return nil, nil
	}
	offer, err := Summarize(p.Offer)
	if err != nil {
		return nil, err
	}
	answer, err := Summarize(p.Answer)
	if err != nil {
		return nil, err
	}
	return &SDPSummary{Offer: offer, Answer: answer}, nil
}

var mediaDirections = []string{"sendrecv", "sendonly", "recvonly", "inactive"}

// Summarize parses d and lists its media sections.
func Summarize(d *webrtc.SessionDescription) ([]MediaSummary, error) {
	if d == nil {
		return nil, nil
	}
	// Unmarshal caches on the receiver; parse a copy so shared captures stay read-only.
	cp := webrtc.SessionDescription{Type: d.Type, SDP: d.SDP}
	parsed, err := cp.Unmarshal()
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", d.Type)
	}
	return summarizeMedia(parsed), nil
}

func summarizeMedia(s *sdp.SessionDescription) []MediaSummary {
	out := make([]MediaSummary, 0, len(s.MediaDescriptions))
	for _, md := range s.MediaDescriptions {
		m := MediaSummary{Kind: md.MediaName.Media}
		m.Mid, _ = md.Attribute("mid")
		for _, a := range md.Attributes {
			switch {
			case a.Key == "rtpmap":
				if parts := strings.SplitN(a.Value, " ", 2); len(parts) == 2 {
					m.Codecs = append(m.Codecs, parts[1])
				}
			case m.Direction == "" && containsString(mediaDirections, a.Key):
				m.Direction = a.Key
			}
		}
		out = append(out, m)
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
