// Package memory keeps exported rollups in process. The worker falls back to
// it when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"budgetrollup/internal/rollup"
	"budgetrollup/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	tabs   map[string][][]any
	writes int
}

var _ sheets.RollupExporter = (*Store)(nil)

func New() *Store {
	return &Store{tabs: map[string][][]any{}}
}

// ExportRollup replaces the project's tab with the rendered rollup.
func (s *Store) ExportRollup(ctx context.Context, r *rollup.Rollup) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r == nil {
		return "", fmt.Errorf("nil rollup")
	}
	rows := sheets.RollupRows(r)
	name := sheets.SheetName(r.ProjectID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tabs[name] = rows
	s.writes++
	return fmt.Sprintf("mem:%s!A1:N%d", name, len(rows)), nil
}

// Tab returns a copy of the rows written to name.
func (s *Store) Tab(name string) ([][]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.tabs[name]
	if !ok {
		return nil, false
	}
	return append([][]any(nil), rows...), true
}

// Writes counts successful exports.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
