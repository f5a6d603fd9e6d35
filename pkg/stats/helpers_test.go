package stats

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func entry(t *testing.T, js string) RawStatEntry {
	t.Helper()
	e, err := ParseEntry(json.RawMessage(js))
	require.NoError(t, err)
	return e
}

func entries(t *testing.T, js ...string) []RawStatEntry {
	t.Helper()
	out := make([]RawStatEntry, 0, len(js))
	for _, s := range js {
		out = append(out, entry(t, s))
	}
	return out
}
