package store

import (
	"context"
	"sync"

	"github.com/serroba/shortener-go/internal/shortener"
)

type contentKey struct {
	domain    string
	userToken string
	hash      shortener.ContentHash
}

type memoryNamespace struct {
	nextID int64
	urls   map[int64]*shortener.ShortURL
	keys   map[contentKey]int64
	codes  map[shortener.Code]int64
	hits   map[int64]int64
}

// MemoryStore is an in-memory implementation of shortener.Repository.
type MemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]*memoryNamespace
}

// NewMemoryStore creates a new in-memory URL store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		namespaces: make(map[string]*memoryNamespace),
	}
}

func (m *MemoryStore) CreateNamespace(_ context.Context, ns string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.namespaces[ns]; ok {
		return false, nil
	}

	m.namespaces[ns] = &memoryNamespace{
		urls:  make(map[int64]*shortener.ShortURL),
		keys:  make(map[contentKey]int64),
		codes: make(map[shortener.Code]int64),
		hits:  make(map[int64]int64),
	}

	return true, nil
}

func (m *MemoryStore) GetOrCreate(
	_ context.Context, ns string, candidate *shortener.ShortURL,
) (*shortener.ShortURL, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	space, err := m.namespace(ns)
	if err != nil {
		return nil, false, err
	}

	key := contentKey{domain: candidate.Domain, userToken: candidate.UserToken, hash: candidate.Hash}
	if id, ok := space.keys[key]; ok {
		return clone(space.urls[id]), false, nil
	}

	space.nextID++
	row := clone(candidate)
	row.ID = space.nextID
	row.Code = ""

	space.urls[row.ID] = row
	space.keys[key] = row.ID
	space.hits[row.ID] = 0

	return clone(row), true, nil
}

func (m *MemoryStore) AssignCode(_ context.Context, ns string, id int64, code shortener.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	space, err := m.namespace(ns)
	if err != nil {
		return err
	}

	row, ok := space.urls[id]
	if !ok {
		return shortener.ErrNotFound
	}

	if row.Code == code {
		return nil
	}

	if row.Code != "" {
		return shortener.ErrCodeAssigned
	}

	row.Code = code
	space.codes[code] = id

	return nil
}

func (m *MemoryStore) GetByCode(_ context.Context, ns string, code shortener.Code) (*shortener.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	space, err := m.namespace(ns)
	if err != nil {
		return nil, err
	}

	id, ok := space.codes[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return clone(space.urls[id]), nil
}

func (m *MemoryStore) IncrementHits(_ context.Context, ns string, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	space, err := m.namespace(ns)
	if err != nil {
		return err
	}

	if _, ok := space.hits[id]; !ok {
		return shortener.ErrNotFound
	}

	space.hits[id]++

	return nil
}

func (m *MemoryStore) GetAudit(_ context.Context, ns string, id int64) (*shortener.Audit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	space, err := m.namespace(ns)
	if err != nil {
		return nil, err
	}

	hits, ok := space.hits[id]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return &shortener.Audit{URLID: id, Hits: hits}, nil
}

// namespace must be called with mu held.
func (m *MemoryStore) namespace(ns string) (*memoryNamespace, error) {
	space, ok := m.namespaces[ns]
	if !ok {
		return nil, &shortener.NamespaceError{Namespace: ns}
	}

	return space, nil
}

func clone(u *shortener.ShortURL) *shortener.ShortURL {
	c := *u

	return &c
}

// Compile-time check.
var _ shortener.Repository = (*MemoryStore)(nil)
