package memory

import (
	"context"
	"cmp"
	"slices"
	"sync"

	"billbook/internal/core"
	"billbook/internal/sheets"
)

// Mirror is an in-memory BillMirror for tests and local runs without
// Google credentials.
type Mirror struct {
	mu     sync.RWMutex
	header bool
	rows   map[int64]core.Bill
}

var (
	_ sheets.BillMirror = (*Mirror)(nil)
	_ sheets.BillReader = (*Mirror)(nil)
)

func New() *Mirror {
	return &Mirror{rows: make(map[int64]core.Bill)}
}

func (m *Mirror) EnsureHeader(_ context.Context) error {
	m.mu.Lock()
	m.header = true
	m.mu.Unlock()
	return nil
}

func (m *Mirror) Upsert(_ context.Context, b core.Bill) error {
	m.mu.Lock()
	m.rows[b.ID] = b
	m.mu.Unlock()
	return nil
}

func (m *Mirror) Remove(_ context.Context, id int64) error {
	m.mu.Lock()
	delete(m.rows, id)
	m.mu.Unlock()
	return nil
}

func (m *Mirror) ReplaceAll(_ context.Context, bills []core.Bill) error {
	rows := make(map[int64]core.Bill, len(bills))
	for _, b := range bills {
		rows[b.ID] = b
	}
	m.mu.Lock()
	m.rows = rows
	m.mu.Unlock()
	return nil
}

// HasHeader reports whether EnsureHeader has run.
func (m *Mirror) HasHeader() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.header
}

// Bills returns the mirrored bills ordered by id.
func (m *Mirror) Bills() []core.Bill {
	m.mu.RLock()
	out := make([]core.Bill, 0, len(m.rows))
	for _, b := range m.rows {
		out = append(out, b)
	}
	m.mu.RUnlock()
	slices.SortFunc(out, func(a, b core.Bill) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

func (m *Mirror) List(_ context.Context) ([]core.Bill, error) {
	return m.Bills(), nil
}
