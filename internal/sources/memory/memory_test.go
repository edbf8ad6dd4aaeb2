package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"budgetrollup/internal/sources"
)

func seeded() *Store {
	s := New()
	s.Insert("cost_codes",
		sources.Record{"id": "01-100", "description": "General Requirements"},
	)
	s.Insert("subcontracts",
		sources.Record{"id": 1, "project_id": 7, "status": "approved", "contract_number": "SC-1"},
		sources.Record{"id": 2, "project_id": 7, "status": "void", "contract_number": "SC-2"},
		sources.Record{"id": 3, "project_id": 8, "status": "approved", "contract_number": "SC-3"},
	)
	s.Insert("subcontract_sov_items",
		sources.Record{"id": 10, "subcontract_id": 1, "cost_code_id": "01-100", "amount": 4000.0},
		sources.Record{"id": 11, "subcontract_id": 2, "cost_code_id": "01-100", "amount": 900.0},
		sources.Record{"id": 12, "subcontract_id": 3, "cost_code_id": "01-100", "amount": 50.0},
		sources.Record{"id": 13, "subcontract_id": 1, "cost_code_id": "02-200", "amount": 10.0},
	)
	return s
}

func TestFetchJoinProjectAndPredicate(t *testing.T) {
	s := seeded()
	q := sources.Query{
		Collection: "subcontract_sov_items",
		Joins: []sources.Join{
			{Collection: "subcontracts", Alias: "parent", LocalField: "subcontract_id", ForeignField: "id",
				Fields: []string{"project_id", "status", "contract_number"}},
			{Collection: "cost_codes", Alias: "cc", LocalField: "cost_code_id", ForeignField: "id",
				Fields: []string{"description"}},
		},
		ProjectField: "parent.project_id",
		ProjectID:    7,
		Where:        []sources.Predicate{{Field: "parent.status", In: []string{"approved", "complete", "draft"}}},
	}

	rows, err := s.Fetch(context.Background(), q)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Int("id") != 10 || rows[1].Int("id") != 13 {
		t.Fatalf("insertion order not preserved: %v, %v", rows[0]["id"], rows[1]["id"])
	}
	if got := rows[0].String("cc.description"); got != "General Requirements" {
		t.Fatalf("joined description = %q", got)
	}
	if got := rows[1].String("cc.description"); got != "" {
		t.Fatalf("unmatched left join should be empty, got %q", got)
	}
	if got := rows[0].String("parent.contract_number"); got != "SC-1" {
		t.Fatalf("joined contract number = %q", got)
	}
}

func TestFetchUnknownCollection(t *testing.T) {
	s := New()
	if _, err := s.Fetch(context.Background(), sources.Query{Collection: "nope", ProjectID: 1}); err == nil {
		t.Fatalf("expected error for unknown collection")
	}
}

func TestFetchCancelledContext(t *testing.T) {
	s := seeded()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Fetch(ctx, sources.Query{Collection: "subcontracts", ProjectID: 7}); err == nil {
		t.Fatalf("expected context error")
	}
}

func TestInsertCopiesRows(t *testing.T) {
	s := New()
	r := sources.Record{"id": 1, "project_id": 1, "status": "approved"}
	s.Insert("t", r)
	r["status"] = "void"

	rows, err := s.Fetch(context.Background(), sources.Query{Collection: "t", ProjectID: 1})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if rows[0].String("status") != "approved" {
		t.Fatalf("store should hold a copy of inserted rows")
	}
}

func TestNewFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	doc := `tables:
  direct_costs:
    - {id: 1, project_id: 3, cost_code_id: "01-100", amount: 1000}
    - {id: 2, project_id: 4, cost_code_id: "01-100", amount: 5}
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := NewFromFile(path)
	if err != nil {
		t.Fatalf("NewFromFile: %v", err)
	}
	rows, err := s.Fetch(context.Background(), sources.Query{Collection: "direct_costs", ProjectID: 3})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(rows) != 1 || rows[0].Float("amount") != 1000 {
		t.Fatalf("unexpected rows: %v", rows)
	}

	empty, err := NewFromFile("")
	if err != nil || empty == nil {
		t.Fatalf("empty path should give empty store, err=%v", err)
	}
}
