package stats

import (
	"bytes"
	"encoding/json"

	"github.com/elliotchance/orderedmap/v2"
	"github.com/pion/webrtc/v3"
)

type recordSet = orderedmap.OrderedMap[string, *Record]

// Snapshot holds the classified records of one getStats() poll, grouped by
// stat type and then by record id. Both levels keep first-seen order.
type Snapshot struct {
	byType *orderedmap.OrderedMap[webrtc.StatsType, *recordSet]
}

// BuildSnapshot classifies entries in order and indexes the records. A later
// record with the same type and id replaces the earlier one in place.
func BuildSnapshot(entries []RawStatEntry, filter Filter) *Snapshot {
	byType := orderedmap.NewOrderedMap[webrtc.StatsType, *recordSet]()
	for _, e := range entries {
		rec, ok := Classify(e, filter)
		if !ok {
			continue
		}
		set, ok := byType.Get(rec.Type)
		if !ok {
			set = orderedmap.NewOrderedMap[string, *Record]()
			byType.Set(rec.Type, set)
		}
		set.Set(rec.ID, rec)
	}
	return &Snapshot{byType: byType}
}

// Types lists the stat types present, in first-seen order.
func (s *Snapshot) Types() []webrtc.StatsType {
	if s == nil {
		return nil
	}
	return s.byType.Keys()
}

// Has reports whether any record of type t is present.
func (s *Snapshot) Has(t webrtc.StatsType) bool {
	if s == nil {
		return false
	}
	_, ok := s.byType.Get(t)
	return ok
}

// Records returns the records of type t in insertion order.
func (s *Snapshot) Records(t webrtc.StatsType) []*Record {
	if s == nil {
		return nil
	}
	set, ok := s.byType.Get(t)
	if !ok {
		return nil
	}
	out := make([]*Record, 0, set.Len())
	for el := set.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	return out
}

// Record looks up a single record.
func (s *Snapshot) Record(t webrtc.StatsType, id string) (*Record, bool) {
	if s == nil {
		return nil, false
	}
	set, ok := s.byType.Get(t)
	if !ok {
		return nil, false
	}
	return set.Get(id)
}

// Len returns the total number of records.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for el := s.byType.Front(); el != nil; el = el.Next() {
		n += el.Value.Len()
	}
	return n
}

// MarshalJSON writes {"<type>": {"<id>": record}} preserving order.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if s != nil {
		for el := s.byType.Front(); el != nil; el = el.Next() {
			if el != s.byType.Front() {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(string(el.Key))
			buf.Write(key)
			buf.WriteString(":{")
			for rel := el.Value.Front(); rel != nil; rel = rel.Next() {
				if rel != el.Value.Front() {
					buf.WriteByte(',')
				}
				id, _ := json.Marshal(rel.Key)
				rec, err := json.Marshal(rel.Value)
				if err != nil {
					return nil, err
				}
				buf.Write(id)
				buf.WriteByte(':')
				buf.Write(rec)
			}
			buf.WriteByte('}')
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
