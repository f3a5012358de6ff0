package canonicalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJCSSortsKeys(t *testing.T) {
	out, err := JCS(map[string]interface{}{"b": 1, "a": 2})
	require.NoError(t, err)
	require.Equal(t, `{"a":2,"b":1}`, string(out))
}

func TestJCSRespectsStructTags(t *testing.T) {
	type rec struct {
		Zulu  string `json:"zulu"`
		Alpha string `json:"alpha"`
	}
	out, err := JCS(rec{Zulu: "z", Alpha: "a"})
	require.NoError(t, err)
	require.Equal(t, `{"alpha":"a","zulu":"z"}`, string(out))
}

func TestHashDeterministic(t *testing.T) {
	a, err := Hash(map[string]interface{}{"x": 1, "y": "two"})
	require.NoError(t, err)
	b, err := Hash(map[string]interface{}{"y": "two", "x": 1})
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.True(t, strings.HasPrefix(a, "sha256:"))
}

func TestHashDiffersOnContent(t *testing.T) {
	a, err := Hash(map[string]interface{}{"x": 1})
	require.NoError(t, err)
	b, err := Hash(map[string]interface{}{"x": 2})
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}
