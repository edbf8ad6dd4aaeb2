package memory

import (
	"context"
	"strings"
	"testing"

	"budgetrollup/internal/core"
	"budgetrollup/internal/rollup"
)

func TestExportRollupReplacesTab(t *testing.T) {
	s := New()
	ctx := context.Background()

	first := &rollup.Rollup{ProjectID: 9, Items: []core.DetailLineItem{{ID: "a"}, {ID: "b"}}}
	ref, err := s.ExportRollup(ctx, first)
	if err != nil {
		t.Fatalf("ExportRollup() error = %v", err)
	}
	if !strings.HasPrefix(ref, "mem:Budget 9!") {
		t.Errorf("ref = %q", ref)
	}

	second := &rollup.Rollup{ProjectID: 9, Items: []core.DetailLineItem{{ID: "c"}}}
	if _, err := s.ExportRollup(ctx, second); err != nil {
		t.Fatalf("ExportRollup() error = %v", err)
	}

	rows, ok := s.Tab("Budget 9")
	if !ok {
		t.Fatalf("tab not written")
	}
	if len(rows) != 2 || rows[1][0] != "c" {
		t.Fatalf("tab = %v, want header + replaced row", rows)
	}
	if s.Writes() != 2 {
		t.Errorf("Writes() = %d", s.Writes())
	}
}

func TestExportRollupCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().ExportRollup(ctx, &rollup.Rollup{ProjectID: 1}); err == nil {
		t.Fatalf("expected context error")
	}
}
