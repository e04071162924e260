package session

import (
	"context"
	"sync"

	"github.com/crimson-sun/moodlens/internal/model"
)

// Memory keeps sessions in process memory.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string][]model.Turn
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{sessions: make(map[string][]model.Turn)}
}

func (m *Memory) Create(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		return ErrExists
	}
	m.sessions[id] = []model.Turn{}
	return nil
}

func (m *Memory) Append(_ context.Context, id string, turns ...model.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	log, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	m.sessions[id] = append(log, turns...)
	return nil
}

func (m *Memory) List(_ context.Context, id string) ([]model.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	log, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]model.Turn(nil), log...), nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Memory) Close() error { return nil }
