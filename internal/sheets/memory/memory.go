// Package memory is an in-memory StagedSource for tests and local runs.
package memory

import (
	"context"
	"sync"

	ports "caja/internal/sheets"
)

type Source struct {
	mu   sync.RWMutex
	rows []ports.StagedRow
}

var _ ports.StagedSource = (*Source)(nil)

func New(rows ...ports.StagedRow) *Source {
	return &Source{rows: rows}
}

func (s *Source) Add(row ports.StagedRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
}

func (s *Source) ListRows(ctx context.Context) ([]ports.StagedRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ports.StagedRow, len(s.rows))
	copy(out, s.rows)
	return out, nil
}
