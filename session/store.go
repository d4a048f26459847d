package session

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrNotFound is returned by Load when nothing has been persisted.
	ErrNotFound = errors.New("session snapshot not found")
	// ErrStoreUnavailable wraps backend failures of a Store.
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// Store is the durable capability behind a client session. Implementations
// hold at most one snapshot.
type Store interface {
	// Load returns the persisted snapshot or ErrNotFound.
	Load(ctx context.Context) (*Snapshot, error)
	// Save replaces the persisted snapshot.
	Save(ctx context.Context, s *Snapshot) error
	// Clear removes the persisted snapshot. Clearing an empty store is not an
	// error.
	Clear(ctx context.Context) error
}

// MemoryStore keeps the encoded snapshot in process memory. It survives
// Manager rebuilds within a process, not process restarts, and is meant for
// tests and short-lived tools.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(context.Context) (*Snapshot, error) {
	m.mu.Lock()
	data := m.data
	m.mu.Unlock()

	if data == nil {
		return nil, ErrNotFound
	}
	return Decode(data)
}

func (m *MemoryStore) Save(_ context.Context, s *Snapshot) error {
	data, err := Encode(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.data = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	m.data = nil
	m.mu.Unlock()
	return nil
}

// Raw returns a copy of the encoded record, or nil when empty.
func (m *MemoryStore) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}

// SetRaw replaces the encoded record verbatim, bypassing validation.
func (m *MemoryStore) SetRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
}
