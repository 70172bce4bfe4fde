package store

import (
	"context"
	"sync"
)

var _ Tier = (*MemoryTier)(nil)

// MemoryTier is the ephemeral tier: its contents vanish with the process
type MemoryTier struct {
	rec  *Record
	lock sync.RWMutex
}

func NewMemoryTier() *MemoryTier {
	return &MemoryTier{}
}

func (m *MemoryTier) Name() string {
	return "memory"
}

func (m *MemoryTier) Load(_ context.Context) (*Record, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	if m.rec == nil {
		return nil, nil
	}
	rec := *m.rec
	return &rec, nil
}

func (m *MemoryTier) Save(_ context.Context, rec Record) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.rec = &rec
	return nil
}

func (m *MemoryTier) Clear(_ context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.rec = nil
	return nil
}
