package stats

import (
	"encoding/json"

	"github.com/pion/webrtc/v3"
	"github.com/pkg/errors"
)

var ErrMalformedEntry = errors.New("malformed stat entry")

// RawStatEntry is one flat object of a getStats() result.
type RawStatEntry struct {
	Type   webrtc.StatsType
	ID     string
	Fields map[string]Value
}

// Get returns the named field and whether the entry carries it.
func (e RawStatEntry) Get(name string) (Value, bool) {
	v, ok := e.Fields[name]
	return v, ok
}

// UnmarshalJSON decodes a flat stat object. "type" and "id" must be strings;
// null fields are dropped.
func (e *RawStatEntry) UnmarshalJSON(b []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return errors.Wrap(ErrMalformedEntry, err.Error())
	}
	if obj == nil {
		return errors.Wrap(ErrMalformedEntry, "null entry")
	}

	var typ, id string
	if err := json.Unmarshal(obj["type"], &typ); err != nil || typ == "" {
		return errors.Wrap(ErrMalformedEntry, "missing type")
	}
	if raw, ok := obj["id"]; ok {
		if err := json.Unmarshal(raw, &id); err != nil {
			return errors.Wrap(ErrMalformedEntry, "id is not a string")
		}
	}

	fields := make(map[string]Value, len(obj))
	for k, raw := range obj {
		if k == "type" || k == "id" || string(raw) == "null" {
			continue
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			continue
		}
		fields[k] = v
	}

	e.Type = webrtc.StatsType(typ)
	e.ID = id
	e.Fields = fields
	return nil
}

// ParseEntry decodes one raw JSON stat object.
func ParseEntry(raw json.RawMessage) (RawStatEntry, error) {
	var e RawStatEntry
	err := json.Unmarshal(raw, &e)
	return e, err
}
