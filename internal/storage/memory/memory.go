package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"billbook/internal/core"
	"billbook/internal/storage"
)

// Store keeps bills in process memory. Ids start at 1 and are never reused.
type Store struct {
	mu     sync.Mutex
	nextID int64
	items  []core.Bill
}

var _ storage.BillStore = (*Store)(nil)

func New() *Store {
	return &Store{nextID: 1}
}

// NewFromFile seeds the store from a JSON array of bills. A missing file
// yields an empty store.
func NewFromFile(path string) (*Store, error) {
	s := New()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var seed []core.BillInput
	if err := json.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for _, in := range seed {
		if _, err := s.Insert(context.Background(), in.Normalize()); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) Insert(_ context.Context, in core.BillInput) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.items = append(s.items, in.WithID(id))
	return id, nil
}

func (s *Store) ListAll(_ context.Context) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Bill, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *Store) Replace(_ context.Context, id int64, in core.BillInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i] = in.WithID(id)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (s *Store) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
