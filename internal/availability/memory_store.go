package availability

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps rule sets in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	rules map[uuid.UUID]Rules
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rules: make(map[uuid.UUID]Rules)}
}

func (m *MemoryStore) DayRules(_ context.Context, doctorID uuid.UUID, date time.Time) (DayRules, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rules[doctorID].ForDate(date), nil
}

func (m *MemoryStore) Rules(_ context.Context, doctorID uuid.UUID) (Rules, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rules[doctorID], nil
}

func (m *MemoryStore) ReplaceRules(_ context.Context, doctorID uuid.UUID, rules Rules) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[doctorID] = Rules{
		Windows:   slices.Clone(rules.Windows),
		Breaks:    slices.Clone(rules.Breaks),
		Overrides: slices.Clone(rules.Overrides),
	}
	return nil
}
