package hoselect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"sort"
	"strconv"
	"strings"
)

//////
// Configuration.
//////

// Param is one hyperparameter assignment inside a Configuration.
type Param struct {
	Name  string
	Value any
}

// Configuration is an immutable assignment of values to hyperparameters.
// Parameters are kept sorted by name, so two configurations holding the same
// assignments are structurally equal regardless of how they were built.
//
// Values are normalized on construction: every integer kind becomes int64
// and float32 becomes float64. Strings and bools are kept as-is.
//
// Usage:
//
//	cfg := NewConfiguration(map[string]any{
//	    "distance_type": "euclidean",
//	    "solver_type":   "adam",
//	})
//	cfg.Key()    // `distance_type="euclidean",solver_type="adam"`
//	cfg.String() // "{distance_type=euclidean,solver_type=adam}"
type Configuration struct {
	params []Param
}

// NewConfiguration builds a Configuration from a name -> value mapping.
func NewConfiguration(values map[string]any) Configuration {
	params := make([]Param, 0, len(values))
	for name, v := range values {
		params = append(params, Param{Name: name, Value: normalizeValue(v)})
	}
	sort.Slice(params, func(i, j int) bool { return params[i].Name < params[j].Name })

	return Configuration{params: params}
}

// Len returns the number of hyperparameters.
func (c Configuration) Len() int { return len(c.params) }

// Params returns a copy of the sorted assignments.
func (c Configuration) Params() []Param {
	out := make([]Param, len(c.params))
	copy(out, c.params)

	return out
}

// Names returns the sorted hyperparameter names.
func (c Configuration) Names() []string {
	names := make([]string, len(c.params))
	for i, p := range c.params {
		names[i] = p.Name
	}

	return names
}

// Get returns the value assigned to name.
func (c Configuration) Get(name string) (any, bool) {
	i := sort.Search(len(c.params), func(i int) bool { return c.params[i].Name >= name })
	if i < len(c.params) && c.params[i].Name == name {
		return c.params[i].Value, true
	}

	return nil, false
}

// StringValue returns a string hyperparameter. The bool reports presence.
func (c Configuration) StringValue(name string) (string, bool, error) {
	v, ok := c.Get(name)
	if !ok {
		return "", false, nil
	}
	s, isString := v.(string)
	if !isString {
		return "", true, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidConfiguration, name, v)
	}

	return s, true, nil
}

// FloatValue returns a numeric hyperparameter as float64.
func (c Configuration) FloatValue(name string) (float64, bool, error) {
	v, ok := c.Get(name)
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int64:
		return float64(n), true, nil
	case float64:
		return n, true, nil
	}

	return 0, true, fmt.Errorf("%w: %s must be numeric, got %T", ErrInvalidConfiguration, name, v)
}

// IntValue returns an integral hyperparameter. Floats with no fractional part
// are accepted.
func (c Configuration) IntValue(name string) (int, bool, error) {
	v, ok := c.Get(name)
	if !ok {
		return 0, false, nil
	}
	switch n := v.(type) {
	case int64:
		return int(n), true, nil
	case float64:
		if n == float64(int64(n)) {
			return int(n), true, nil
		}
	}

	return 0, true, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidConfiguration, name, v)
}

// Key is the canonical textual form, used for structural equality and as a
// map key. String values are quoted, so "1" and 1 differ and a value holding
// a separator cannot pose as another parameter. Numbers compare by value:
// 10 and 10.0 share a key.
func (c Configuration) Key() string {
	var b strings.Builder
	for i, p := range c.params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(keyName(p.Name))
		b.WriteByte('=')
		b.WriteString(keyValue(p.Value))
	}

	return b.String()
}

// Equal reports structural equality.
func (c Configuration) Equal(other Configuration) bool {
	return c.Key() == other.Key()
}

// String is the display form: Key without quoting.
func (c Configuration) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, p := range c.params {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p.Name)
		b.WriteByte('=')
		b.WriteString(formatValue(p.Value))
	}
	b.WriteByte('}')

	return b.String()
}

// Map returns a fresh name -> value mapping.
func (c Configuration) Map() map[string]any {
	m := make(map[string]any, len(c.params))
	for _, p := range c.params {
		m[p.Name] = p.Value
	}

	return m
}

// MarshalJSON encodes the configuration as a JSON object.
func (c Configuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Map())
}

// UnmarshalJSON decodes a JSON object, keeping integers integral.
func (c *Configuration) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode configuration: %w", err)
	}
	*c = NewConfiguration(raw)

	return nil
}

func normalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return int64(n)
	case int8:
		return int64(n)
	case int16:
		return int64(n)
	case int32:
		return int64(n)
	case uint:
		return int64(n)
	case uint8:
		return int64(n)
	case uint16:
		return int64(n)
	case uint32:
		return int64(n)
	case uint64:
		return int64(n)
	case float32:
		return float64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		if f, err := n.Float64(); err == nil {
			return f
		}

		return n.String()
	}

	return v
}

// keyName quotes a parameter name only when it holds a key separator.
// Unquoted names never start with a quote, so both forms cannot collide.
func keyName(name string) string {
	if name == "" || strings.ContainsAny(name, `,="\`) {
		return strconv.Quote(name)
	}

	return name
}

func keyValue(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}

	return formatValue(v)
}

func formatValue(v any) string {
	switch n := v.(type) {
	case string:
		return n
	case int64:
		return strconv.FormatInt(n, 10)
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(n)
	case nil:
		return "null"
	}

	return fmt.Sprintf("%v", v)
}

//////
// Search space.
//////

// Dimension is one hyperparameter of the search space with its candidate
// values, in declaration order.
type Dimension struct {
	Name   string
	Values []any
}

// SearchSpace is the declared mapping from hyperparameter name to candidate
// values. Dimensions are sorted by name; grid enumeration varies the last
// dimension fastest.
type SearchSpace struct {
	dims  []Dimension
	index map[string]int
}

// NewSearchSpace validates and builds a search space.
//
// Validation:
//   - At least one hyperparameter
//   - Every hyperparameter has at least one value
//   - No value repeats inside a hyperparameter
//
// Usage:
//
//	space, err := NewSearchSpace(map[string][]any{
//	    "distance_type":   {"squared-euclidean", "euclidean"},
//	    "activation_type": {"identity", "sigmoid", "soft+", "swish"},
//	})
func NewSearchSpace(values map[string][]any) (*SearchSpace, error) {
	if len(values) == 0 {
		return nil, invalidInput("search space has no hyperparameters")
	}

	dims := make([]Dimension, 0, len(values))
	for name, vals := range values {
		if name == "" {
			return nil, invalidInput("search space has an unnamed hyperparameter")
		}
		if len(vals) == 0 {
			return nil, invalidInput("hyperparameter %q has no candidate values", name)
		}

		seen := make(map[string]struct{}, len(vals))
		normalized := make([]any, len(vals))
		for i, v := range vals {
			nv := normalizeValue(v)
			k := keyValue(nv)
			if _, dup := seen[k]; dup {
				return nil, invalidInput("hyperparameter %q repeats value %s", name, k)
			}
			seen[k] = struct{}{}
			normalized[i] = nv
		}
		dims = append(dims, Dimension{Name: name, Values: normalized})
	}
	sort.Slice(dims, func(i, j int) bool { return dims[i].Name < dims[j].Name })

	s := &SearchSpace{dims: dims}
	s.index = make(map[string]int, s.Size())
	for i := 0; i < s.Size(); i++ {
		s.index[s.At(i).Key()] = i
	}

	return s, nil
}

// Dimensions returns the sorted dimensions.
func (s *SearchSpace) Dimensions() []Dimension {
	out := make([]Dimension, len(s.dims))
	for i, d := range s.dims {
		vals := make([]any, len(d.Values))
		copy(vals, d.Values)
		out[i] = Dimension{Name: d.Name, Values: vals}
	}

	return out
}

// Size returns the number of configurations in the grid.
func (s *SearchSpace) Size() int {
	size := 1
	for _, d := range s.dims {
		size *= len(d.Values)
	}

	return size
}

// At returns the i-th configuration of the grid.
func (s *SearchSpace) At(i int) Configuration {
	values := make(map[string]any, len(s.dims))
	for d := len(s.dims) - 1; d >= 0; d-- {
		n := len(s.dims[d].Values)
		values[s.dims[d].Name] = s.dims[d].Values[i%n]
		i /= n
	}

	return NewConfiguration(values)
}

// Grid enumerates every configuration.
func (s *SearchSpace) Grid() []Configuration {
	grid := make([]Configuration, s.Size())
	for i := range grid {
		grid[i] = s.At(i)
	}

	return grid
}

// IndexOf returns the grid position of cfg, or false if cfg is not a
// member of the space.
func (s *SearchSpace) IndexOf(cfg Configuration) (int, bool) {
	i, ok := s.index[cfg.Key()]

	return i, ok
}

// Sample draws n distinct configurations without replacement. When n is at
// least the grid size every configuration is returned, in random order.
// The draw is a pure function of the generator state.
func (s *SearchSpace) Sample(rng *rand.Rand, n int) []Configuration {
	perm := rng.Perm(s.Size())
	if n > len(perm) {
		n = len(perm)
	}

	out := make([]Configuration, n)
	for i := 0; i < n; i++ {
		out[i] = s.At(perm[i])
	}

	return out
}

// encode maps grid position i to a point in [0, 1]^d, one coordinate per
// dimension (value index over value count - 1).
func (s *SearchSpace) encode(i int) []float64 {
	point := make([]float64, len(s.dims))
	for d := len(s.dims) - 1; d >= 0; d-- {
		n := len(s.dims[d].Values)
		if n > 1 {
			point[d] = float64(i%n) / float64(n-1)
		}
		i /= n
	}

	return point
}
