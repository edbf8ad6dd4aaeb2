// Package memory is an in-process sources.Reader backed by plain slices.
// It is the default backend for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"budgetrollup/internal/sources"
)

type Store struct {
	mu     sync.RWMutex
	tables map[string][]sources.Record
}

var _ sources.Reader = (*Store)(nil)

// New returns a store with every source collection present and empty.
func New() *Store {
	s := &Store{tables: map[string][]sources.Record{}}
	for _, name := range sources.Collections {
		s.tables[name] = []sources.Record{}
	}
	return s
}

// NewFromFixture builds a store holding a copy of every fixture table.
func NewFromFixture(f *sources.Fixture) *Store {
	s := New()
	if f == nil {
		return s
	}
	for name, rows := range f.Tables {
		s.Insert(name, rows...)
	}
	return s
}

// NewFromFile loads a YAML fixture. A missing path yields an empty store.
func NewFromFile(path string) (*Store, error) {
	if path == "" {
		return New(), nil
	}
	f, err := sources.LoadFixture(path)
	if err != nil {
		return nil, err
	}
	return NewFromFixture(f), nil
}

// Insert appends rows to a table, creating it if needed.
func (s *Store) Insert(table string, rows ...sources.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.tables[table]
	if !ok {
		existing = []sources.Record{}
	}
	for _, r := range rows {
		cp := make(sources.Record, len(r))
		for k, v := range r {
			cp[k] = v
		}
		existing = append(existing, cp)
	}
	s.tables[table] = existing
}

// Fetch evaluates the query against the in-memory tables, preserving
// insertion order.
func (s *Store) Fetch(ctx context.Context, q sources.Query) ([]sources.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	base, ok := s.tables[q.Collection]
	if !ok {
		return nil, fmt.Errorf("no such collection: %s", q.Collection)
	}

	indexes := make([]map[string]sources.Record, len(q.Joins))
	for i, j := range q.Joins {
		rows, ok := s.tables[j.Collection]
		if !ok {
			return nil, fmt.Errorf("no such collection: %s", j.Collection)
		}
		idx := make(map[string]sources.Record, len(rows))
		for _, r := range rows {
			key := r.String(j.ForeignField)
			if _, dup := idx[key]; !dup {
				idx[key] = r
			}
		}
		indexes[i] = idx
	}

	projectField := q.ProjectColumn()
	out := make([]sources.Record, 0, len(base))
	for _, row := range base {
		rec := make(sources.Record, len(row))
		for k, v := range row {
			rec[k] = v
		}
		for i, j := range q.Joins {
			var matched sources.Record
			if local := rec.String(j.LocalField); local != "" {
				matched = indexes[i][local]
			}
			fields := j.Fields
			if len(fields) == 0 {
				fields = keys(matched)
			}
			for _, f := range fields {
				rec[j.Qualified(f)] = matched[f]
			}
		}

		if rec.Int(projectField) != q.ProjectID {
			continue
		}
		if !matches(rec, q.Where) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func matches(rec sources.Record, preds []sources.Predicate) bool {
	for _, p := range preds {
		v := rec.String(p.Field)
		found := false
		for _, allowed := range p.In {
			if v == allowed {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func keys(r sources.Record) []string {
	out := make([]string, 0, len(r))
	for k := range r {
		out = append(out, k)
	}
	return out
}
