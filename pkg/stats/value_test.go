package stats

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		na      bool
		str     string
		float   float64
		floatOK bool
	}{
		{"number", `1234`, false, "1234", 1234, true},
		{"fraction", `0.015`, false, "0.015", 0.015, true},
		{"numeric string", `"2000"`, false, "2000", 2000, true},
		{"sentinel", `"NA"`, true, "NA", 0, false},
		{"null", `null`, true, "NA", 0, false},
		{"state", `"succeeded"`, false, "succeeded", 0, false},
		{"bool", `true`, false, "true", 0, false},
		{"array", `[ "a", "b" ]`, false, `["a","b"]`, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v Value
			require.NoError(t, json.Unmarshal([]byte(tt.in), &v))
			require.Equal(t, tt.na, v.IsNA())
			require.Equal(t, tt.str, v.String())

			f, err := v.Float()
			if tt.floatOK {
				require.NoError(t, err)
				require.InDelta(t, tt.float, f, 1e-12)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestValueZeroIsNA(t *testing.T) {
	var v Value
	require.True(t, v.IsNA())
	_, err := v.Float()
	require.ErrorIs(t, err, ErrNotAvailable)
	require.True(t, StringValue("NA").IsNA())
}

func TestValueMarshal(t *testing.T) {
	b, err := json.Marshal(map[string]Value{
		"a": NumberValue(1.5),
		"b": StringValue("x"),
		"c": NA,
		"d": BoolValue(false),
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1.5,"b":"x","c":"NA","d":false}`, string(b))
}
