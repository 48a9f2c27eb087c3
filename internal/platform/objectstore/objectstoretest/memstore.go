// Package objectstoretest provides an in-memory objectstore.Store for package tests.
package objectstoretest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fatflowers/docpay/internal/platform/objectstore"
)

// MemStore keeps objects in a map. PutErrs are returned by successive Put calls
// before any write happens.
type MemStore struct {
	mu      sync.Mutex
	Objects map[string][]byte
	PutErrs []error
	Puts    int
	Deletes int
	// DeleteErr, when set, fails every Delete.
	DeleteErr error
	BaseURL   string
	// OnPut, when set, runs at the start of every Put outside the lock.
	OnPut func(key string)
}

var _ objectstore.Store = (*MemStore)(nil)

func New() *MemStore {
	return &MemStore{Objects: map[string][]byte{}, BaseURL: "https://storage.test/documents/"}
}

func (m *MemStore) Put(_ context.Context, key string, data []byte, _ string) error {
	if m.OnPut != nil {
		m.OnPut(key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Puts++
	if len(m.PutErrs) > 0 {
		err := m.PutErrs[0]
		m.PutErrs = m.PutErrs[1:]
		if err != nil {
			return err
		}
	}
	m.Objects[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.Objects[key]
	return ok, nil
}

func (m *MemStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.Deletes++
	delete(m.Objects, key)
	return nil
}

func (m *MemStore) SignedURL(_ context.Context, key string, ttl time.Duration) (string, error) {
	return fmt.Sprintf("%s%s?expires=%d", m.BaseURL, key, int(ttl.Seconds())), nil
}

// Has reports whether key is stored.
func (m *MemStore) Has(key string) bool {
	ok, _ := m.Exists(context.Background(), key)
	return ok
}

// PutCount returns the number of Put calls so far.
func (m *MemStore) PutCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Puts
}
