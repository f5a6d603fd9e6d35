package stats

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// NotAvailable is the sentinel getStats() collectors write for a field the
// browser did not report.
const NotAvailable = "NA"

var (
	ErrNotAvailable = errors.New("value not available")
	ErrNotNumeric   = errors.New("value is not numeric")
)

type valueKind uint8

const (
	kindNA valueKind = iota
	kindString
	kindNumber
	kindBool
	kindRaw
)

// Value is a single stat field. The zero Value is the NA sentinel.
type Value struct {
	kind valueKind
	text string
	num  float64
}

// NA is the sentinel value for a missing field.
var NA = Value{}

// StringValue wraps s. The literal "NA" yields the sentinel.
func StringValue(s string) Value {
	if s == NotAvailable {
		return NA
	}
	return Value{kind: kindString, text: s}
}

// NumberValue wraps f.
func NumberValue(f float64) Value {
	return Value{kind: kindNumber, text: strconv.FormatFloat(f, 'f', -1, 64), num: f}
}

// BoolValue wraps b.
func BoolValue(b bool) Value {
	return Value{kind: kindBool, text: strconv.FormatBool(b)}
}

// IsNA reports whether v is the sentinel.
func (v Value) IsNA() bool {
	return v.kind == kindNA
}

// IsNumber reports whether v was decoded from a JSON number.
func (v Value) IsNumber() bool {
	return v.kind == kindNumber
}

// String returns the textual form of v, "NA" for the sentinel.
func (v Value) String() string {
	if v.kind == kindNA {
		return NotAvailable
	}
	return v.text
}

// Equal compares the textual form of v with s.
func (v Value) Equal(s string) bool {
	return v.String() == s
}

// Float returns v as a float64. Numeric strings are accepted the way the
// browser collectors emit them ("1234", " 0.015").
func (v Value) Float() (float64, error) {
	switch v.kind {
	case kindNA:
		return 0, ErrNotAvailable
	case kindNumber:
		return v.num, nil
	case kindString:
		f, err := strconv.ParseFloat(strings.TrimSpace(v.text), 64)
		if err != nil {
			return 0, errors.Wrapf(ErrNotNumeric, "%q", v.text)
		}
		return f, nil
	default:
		return 0, errors.Wrapf(ErrNotNumeric, "%s", v.text)
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindNA:
		return json.Marshal(NotAvailable)
	case kindString:
		return json.Marshal(v.text)
	default:
		return []byte(v.text), nil
	}
}

func (v *Value) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return errors.New("empty value")
	}
	switch b[0] {
	case 'n':
		*v = NA
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*v = StringValue(s)
	case 't', 'f':
		var bv bool
		if err := json.Unmarshal(b, &bv); err != nil {
			return err
		}
		*v = BoolValue(bv)
	case '[', '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, b); err != nil {
			return err
		}
		*v = Value{kind: kindRaw, text: buf.String()}
	default:
		f, err := strconv.ParseFloat(string(b), 64)
		if err != nil {
			return errors.Wrap(ErrNotNumeric, string(b))
		}
		*v = Value{kind: kindNumber, text: string(b), num: f}
	}
	return nil
}
