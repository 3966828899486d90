package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalJSON(t *testing.T) {
	got, err := CanonicalJSON(map[string]any{
		"b": []any{2, "x", nil, true},
		"a": map[string]any{"z": 1.50, "y": 1e21},
	})
	require.NoError(t, err)

	assert.Equal(t, `{"a":{"y":1e+21,"z":1.5},"b":[2,"x",null,true]}`, string(got))
}

func TestCanonicalJSONNumbersAndEscaping(t *testing.T) {
	got, err := CanonicalJSON(map[string]any{"n": []any{1.0, 10, 0.25, -3}, "s": "a<b&c"})
	require.NoError(t, err)

	assert.Equal(t, `{"n":[1,10,0.25,-3],"s":"a<b&c"}`, string(got))

	a, err := Fingerprint(map[string]any{"x": 1.50})
	require.NoError(t, err)
	b, err := Fingerprint(map[string]any{"x": 1.5})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestFingerprintDeterministic(t *testing.T) {
	a, err := Fingerprint(map[string]any{"b": 2, "a": 1})
	require.NoError(t, err)

	b, err := Fingerprint(map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, Prefix))
	assert.Len(t, a, len(Prefix)+64)

	c, err := Fingerprint(map[string]any{"a": 1, "b": 3})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestFingerprintStructsAndMaps(t *testing.T) {
	type def struct {
		Seed   int64  `json:"seed"`
		Metric string `json:"metric"`
	}

	a, err := Fingerprint(def{Seed: 51, Metric: "accuracy"})
	require.NoError(t, err)

	b, err := Fingerprint(map[string]any{"metric": "accuracy", "seed": 51})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestFingerprintUnsupported(t *testing.T) {
	_, err := Fingerprint(make(chan int))
	assert.Error(t, err)
}
