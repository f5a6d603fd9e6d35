package stats

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/pion/webrtc/v3"
)

// Category is the typed record variant a stat entry is classified into.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryCodec
	CategoryMediaStream
	CategoryRTPStream
	CategoryPeerConnection
	CategoryTransport
	CategoryICECandidatePair
	CategoryICECandidate
)

func (c Category) String() string {
	switch c {
	case CategoryCodec:
		return "codec"
	case CategoryMediaStream:
		return "mediaStream"
	case CategoryRTPStream:
		return "rtpStream"
	case CategoryPeerConnection:
		return "peerConnection"
	case CategoryTransport:
		return "transport"
	case CategoryICECandidatePair:
		return "iceCandidatePair"
	case CategoryICECandidate:
		return "iceCandidate"
	default:
		return "unknown"
	}
}

// Direction is relative to the local peer. DirectionBoth is only meaningful
// as an aggregation flag, never on a record.
type Direction string

const (
	DirectionNone     Direction = ""
	DirectionInbound  Direction = "in"
	DirectionOutbound Direction = "out"
	DirectionBoth     Direction = "both"
)

// ParseDirection accepts "in", "out" and "both" in any case.
func ParseDirection(s string) (Direction, bool) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case DirectionInbound, DirectionOutbound, DirectionBoth:
		return d, true
	}
	return DirectionNone, false
}

// Includes reports whether the aggregation flag d covers dir.
func (d Direction) Includes(dir Direction) bool {
	return d == DirectionBoth || d == dir
}

const (
	FieldTimestamp = "timestamp"
	FieldMediaType = "mediaType"
	FieldKind      = "kind"
)

type classifier struct {
	category  Category
	direction Direction
	fields    []string
}

var (
	codecFields = []string{"payloadType", "mimeType", "clockRate", "channels", "sdpFmtpLine"}

	inboundRTPFields = []string{
		"ssrc", FieldMediaType, "trackId", "transportId", "codecId",
		"packetsReceived", "bytesReceived", "packetsLost", "jitter", "fractionLost",
		"firCount", "pliCount", "nackCount", "qpSum", "framesDecoded",
	}

	outboundRTPFields = []string{
		"ssrc", FieldMediaType, "trackId", "transportId", "codecId",
		"packetsSent", "bytesSent", "targetBitrate", "framesEncoded",
		"firCount", "pliCount", "nackCount", "qpSum",
	}

	candidateFields = []string{"transportId", "address", "port", "protocol", "candidateType", "priority", "url"}
)

// track entries are classified as codec records; existing reports depend on it.
var classifiers = map[webrtc.StatsType]classifier{
	webrtc.StatsTypeCodec:          {CategoryCodec, DirectionNone, codecFields},
	webrtc.StatsTypeTrack:          {CategoryCodec, DirectionNone, codecFields},
	webrtc.StatsTypeStream:         {CategoryMediaStream, DirectionNone, []string{"streamIdentifier", "trackIds"}},
	webrtc.StatsTypeInboundRTP:     {CategoryRTPStream, DirectionInbound, inboundRTPFields},
	webrtc.StatsTypeOutboundRTP:    {CategoryRTPStream, DirectionOutbound, outboundRTPFields},
	webrtc.StatsTypePeerConnection: {CategoryPeerConnection, DirectionNone, []string{"dataChannelsOpened", "dataChannelsClosed"}},
	webrtc.StatsTypeTransport: {CategoryTransport, DirectionNone, []string{
		"bytesSent", "bytesReceived", "rtcpTransportStatsId", "selectedCandidatePairId",
		"localCertificateId", "remoteCertificateId", "dtlsState",
	}},
	webrtc.StatsTypeCandidatePair: {CategoryICECandidatePair, DirectionNone, []string{
		"transportId", "localCandidateId", "remoteCandidateId", "state", "priority", "nominated",
		"bytesSent", "bytesReceived", "totalRoundTripTime", "currentRoundTripTime", "availableOutgoingBitrate",
	}},
	webrtc.StatsTypeLocalCandidate:  {CategoryICECandidate, DirectionNone, candidateFields},
	webrtc.StatsTypeRemoteCandidate: {CategoryICECandidate, DirectionNone, candidateFields},
}

// DeclaredFields returns the fields a record of type t retains, timestamp
// included, or nil when t is not classified.
func DeclaredFields(t webrtc.StatsType) []string {
	c, ok := classifiers[t]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(c.fields)+1)
	out = append(out, FieldTimestamp)
	return append(out, c.fields...)
}

// Record is a classified stat entry holding only its category's fields.
type Record struct {
	ID        string
	Type      webrtc.StatsType
	Category  Category
	Direction Direction
	Fields    map[string]Value
}

// Get returns the named field, NA when it is not retained.
func (r *Record) Get(name string) Value {
	if r == nil {
		return NA
	}
	return r.Fields[name]
}

// Has reports whether the record retains the named field.
func (r *Record) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.Fields[name]
	return ok
}

// Timestamp returns the capture time reported for the record.
func (r *Record) Timestamp() Value {
	return r.Get(FieldTimestamp)
}

func (r *Record) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Fields)+2)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["id"] = r.ID
	out["type"] = r.Type
	return json.Marshal(out)
}

// FieldNames returns the retained field names sorted.
func (r *Record) FieldNames() []string {
	names := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Filter is the selectedStats allow-list. A nil Filter admits every type and
// also asks for the offer/answer descriptors to be kept.
type Filter []string

// Allows reports whether entries of type t pass the filter.
func (f Filter) Allows(t webrtc.StatsType) bool {
	if len(f) == 0 {
		return true
	}
	for _, s := range f {
		if webrtc.StatsType(s) == t {
			return true
		}
	}
	return false
}

// IncludeSDP reports whether the filter is the unfiltered full-retrieval mode.
func (f Filter) IncludeSDP() bool {
	return f == nil
}

// Classify maps a raw entry onto its typed record. It returns false for types
// outside the classification table and for entries the filter rejects.
func Classify(e RawStatEntry, filter Filter) (*Record, bool) {
	if !filter.Allows(e.Type) {
		return nil, false
	}
	c, ok := classifiers[e.Type]
	if !ok {
		return nil, false
	}

	fields := make(map[string]Value, len(c.fields)+1)
	fields[FieldTimestamp] = e.Fields[FieldTimestamp]
	for _, name := range c.fields {
		fields[name] = e.Fields[name]
	}
	if c.category == CategoryRTPStream && fields[FieldMediaType].IsNA() {
		if kind, ok := e.Get(FieldKind); ok {
			fields[FieldMediaType] = kind
		}
	}

	return &Record{
		ID:        e.ID,
		Type:      e.Type,
		Category:  c.category,
		Direction: c.direction,
		Fields:    fields,
	}, true
}
