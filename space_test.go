package hoselect

import (
	"encoding/json"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfiguration(t *testing.T) {
	a := NewConfiguration(map[string]any{"solver_type": "adam", "max_runs": 100, "step_size": float32(0.5)})
	b := NewConfiguration(map[string]any{"step_size": 0.5, "max_runs": int64(100), "solver_type": "adam"})

	assert.True(t, a.Equal(b))
	assert.Equal(t, `max_runs=100,solver_type="adam",step_size=0.5`, a.Key())
	assert.Equal(t, "{max_runs=100,solver_type=adam,step_size=0.5}", a.String())
	assert.Equal(t, []string{"max_runs", "solver_type", "step_size"}, a.Names())

	n, ok, err := a.IntValue("max_runs")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 100, n)

	_, ok, err = a.FloatValue("missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = a.IntValue("solver_type")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestConfigurationEqualityIsStructural(t *testing.T) {
	tests := []struct {
		name string
		a, b map[string]any
		want bool
	}{
		{name: "string vs int", a: map[string]any{"A": "1"}, b: map[string]any{"A": 1}},
		{name: "string vs bool", a: map[string]any{"A": "true"}, b: map[string]any{"A": true}},
		{
			name: "separator inside a value",
			a:    map[string]any{"A": "x,B=y"},
			b:    map[string]any{"A": "x", "B": "y"},
		},
		{
			name: "separator inside a name",
			a:    map[string]any{"A=1,B": 2},
			b:    map[string]any{"A": 1, "B": 2},
		},
		{name: "int vs float of the same value", a: map[string]any{"A": 10}, b: map[string]any{"A": 10.0}, want: true},
		{name: "same string", a: map[string]any{"A": "x"}, b: map[string]any{"A": "x"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := NewConfiguration(tt.a), NewConfiguration(tt.b)
			assert.Equal(t, tt.want, a.Equal(b), "%s vs %s", a.Key(), b.Key())
		})
	}
}

func TestSearchSpaceKeepsValuesOfDifferentTypes(t *testing.T) {
	space, err := NewSearchSpace(map[string][]any{"A": {"1", 1}})
	require.NoError(t, err)
	assert.Equal(t, 2, space.Size())

	freq := ParamFrequencies([]Configuration{
		NewConfiguration(map[string]any{"A": "1"}),
		NewConfiguration(map[string]any{"A": 1}),
		NewConfiguration(map[string]any{"A": 1}),
	})
	assert.Equal(t, []ValueCount{{Value: int64(1), Count: 2}, {Value: "1", Count: 1}}, freq["A"])
}

func TestConfigurationJSON(t *testing.T) {
	cfg := NewConfiguration(map[string]any{"batch_size": 0, "activation_beta": 1.5, "distance_type": "euclidean"})

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"activation_beta":1.5,"batch_size":0,"distance_type":"euclidean"}`, string(data))

	var back Configuration
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, cfg.Equal(back), "%s != %s", cfg, back)
}

func TestSearchSpaceGrid(t *testing.T) {
	space := testSpace(t)

	assert.Equal(t, 4, space.Size())

	grid := space.Grid()
	want := []Configuration{cfgAB(1, "x"), cfgAB(1, "y"), cfgAB(2, "x"), cfgAB(2, "y")}
	for i := range want {
		assert.True(t, want[i].Equal(grid[i]), "grid[%d] = %s", i, grid[i])

		idx, ok := space.IndexOf(want[i])
		assert.True(t, ok)
		assert.Equal(t, i, idx)
	}

	_, ok := space.IndexOf(cfgAB(3, "x"))
	assert.False(t, ok)
}

func TestSearchSpaceSample(t *testing.T) {
	space := testSpace(t)

	a := space.Sample(rand.New(rand.NewSource(51)), 3)
	b := space.Sample(rand.New(rand.NewSource(51)), 3)
	require.Len(t, a, 3)
	assert.Equal(t, a, b)

	seen := map[string]bool{}
	for _, cfg := range space.Sample(rand.New(rand.NewSource(1)), 10) {
		assert.False(t, seen[cfg.Key()], "sampled twice: %s", cfg)
		seen[cfg.Key()] = true
	}
	assert.Len(t, seen, 4)
}

func TestSearchSpaceRejects(t *testing.T) {
	_, err := NewSearchSpace(nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewSearchSpace(map[string][]any{"A": {}})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = NewSearchSpace(map[string][]any{"A": {1, int64(1)}})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNewDataset(t *testing.T) {
	X := [][]float64{{0}, {1}, {2}, {3}}
	y := []int{0, 1, 0, 1}

	tests := []struct {
		name   string
		trainX [][]float64
		trainY []int
	}{
		{name: "length mismatch", trainX: X, trainY: []int{0, 1, 0}},
		{name: "non binary", trainX: X, trainY: []int{0, 1, 2, 1}},
		{name: "ragged", trainX: [][]float64{{0}, {1, 2}, {2}, {3}}, trainY: y},
		{name: "single class", trainX: X, trainY: []int{1, 1, 1, 1}},
		{name: "empty", trainX: nil, trainY: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewDataset(tt.trainX, tt.trainY, X, y)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	ds, err := NewDataset(X, y, X, y)
	require.NoError(t, err)
	assert.Equal(t, 1, ds.Features())

	// The dataset owns its copy.
	X[0][0] = 42
	assert.Equal(t, 0.0, ds.Train().X[0][0])
}
