package hoselect

import (
	"context"
	"sync"
	"time"
)

// SearchState is the resumable progress of a search: the completed trials
// in order and the wall-clock time spent on them.
type SearchState struct {
	Trials  []TrialResult `json:"trials"`
	Elapsed time.Duration `json:"elapsed"`
}

func (s SearchState) clone() SearchState {
	trials := make([]TrialResult, len(s.Trials))
	copy(trials, s.Trials)

	return SearchState{Trials: trials, Elapsed: s.Elapsed}
}

// Checkpointer persists SearchState between runs. Load returns nil and no
// error when nothing is stored under key.
type Checkpointer interface {
	Load(ctx context.Context, key string) (*SearchState, error)
	Save(ctx context.Context, key string, state SearchState) error
}

// MemoryCheckpointer keeps states in process memory. Safe for concurrent
// use.
type MemoryCheckpointer struct {
	mu     sync.RWMutex
	states map[string]SearchState
}

// NewMemoryCheckpointer returns an empty MemoryCheckpointer.
func NewMemoryCheckpointer() *MemoryCheckpointer {
	return &MemoryCheckpointer{states: make(map[string]SearchState)}
}

// Load implements Checkpointer.
func (m *MemoryCheckpointer) Load(_ context.Context, key string) (*SearchState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	state, ok := m.states[key]
	if !ok {
		return nil, nil
	}

	out := state.clone()

	return &out, nil
}

// Save implements Checkpointer.
func (m *MemoryCheckpointer) Save(_ context.Context, key string, state SearchState) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[key] = state.clone()

	return nil
}
