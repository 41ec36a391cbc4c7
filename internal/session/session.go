// Package session stores each chat session's ephemeral state (running timers
// and wizard progress) as one opaque blob keyed by session id.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/IvanSitnikov1/tracker-bot/internal/tracking"
	"github.com/IvanSitnikov1/tracker-bot/internal/wizard"
)

// State is everything a session carries between events.
type State struct {
	Timers tracking.TimerRegistry `json:"timers,omitempty"`
	Wizard wizard.State           `json:"wizard"`
}

// Empty reports whether the state holds nothing worth keeping.
func (s State) Empty() bool {
	return len(s.Timers) == 0 && !s.Wizard.Active()
}

// Store loads and replaces session state atomically per session id.
type Store interface {
	// Load returns the stored state, or an empty state when none exists.
	Load(ctx context.Context, sessionID string) (State, error)
	// Save replaces the stored state. Saving an empty state removes it.
	Save(ctx context.Context, sessionID string, state State) error
	Delete(ctx context.Context, sessionID string) error
}

func encode(state State) ([]byte, error) {
	body, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	return body, nil
}

func decode(body []byte) (State, error) {
	var state State
	if len(body) > 0 {
		if err := json.Unmarshal(body, &state); err != nil {
			return State{}, fmt.Errorf("decode session: %w", err)
		}
	}
	if state.Timers == nil {
		state.Timers = tracking.TimerRegistry{}
	}
	return state, nil
}

// MemoryStore keeps encoded session blobs in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Load implements Store.
func (m *MemoryStore) Load(ctx context.Context, sessionID string) (State, error) {
	m.mu.Lock()
	body := m.blobs[sessionID]
	m.mu.Unlock()
	return decode(body)
}

// Save implements Store.
func (m *MemoryStore) Save(ctx context.Context, sessionID string, state State) error {
	if state.Empty() {
		return m.Delete(ctx, sessionID)
	}
	body, err := encode(state)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.blobs[sessionID] = body
	m.mu.Unlock()
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.blobs, sessionID)
	m.mu.Unlock()
	return nil
}

// Len reports how many sessions hold state.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}
