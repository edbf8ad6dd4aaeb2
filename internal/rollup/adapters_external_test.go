package rollup_test

import (
	"context"
	"testing"

	"budgetrollup/internal/core"
	"budgetrollup/internal/log"
	"budgetrollup/internal/rollup"
	"budgetrollup/internal/sources"
	"budgetrollup/internal/sources/memory"
)

func TestCustomAdapterFromOutsidePackage(t *testing.T) {
	budget := rollup.Adapter{
		Source:   "imported_budget",
		Category: core.OriginalBudget,
		Read: func(ctx context.Context, r sources.Reader, projectID int64) ([]rollup.SourceRow, error) {
			return []rollup.SourceRow{{
				Record: sources.Record{"id": "b1", "cost_code_id": "09-900"},
				Item: core.DetailLineItem{
					ID:                   "original_budget-b1",
					BudgetCode:           "ignored",
					DetailType:           core.OriginalBudget,
					OriginalBudgetAmount: 400,
				},
			}}, nil
		},
	}
	costs := rollup.Adapter{
		Source:   "imported_costs",
		Category: core.DirectCosts,
		Read: func(ctx context.Context, r sources.Reader, projectID int64) ([]rollup.SourceRow, error) {
			return []rollup.SourceRow{{
				Record: sources.Record{"id": "d1", "cost_code_id": "09-900"},
				Item: core.DetailLineItem{
					ID:          "direct_costs-d1",
					DetailType:  core.DirectCosts,
					DirectCosts: 150,
				},
			}}, nil
		},
	}

	engine := rollup.NewEngine(memory.New(),
		rollup.WithLogger(log.Discard()),
		rollup.WithAdapters(budget, costs))
	r, err := engine.Compute(context.Background(), 3)
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	if len(r.Items) != 3 {
		t.Fatalf("items = %d, want 3: %+v", len(r.Items), r.Items)
	}
	for _, it := range r.Items {
		if it.BudgetCode != "09-900" {
			t.Errorf("%s budget code = %q, want key from record", it.ID, it.BudgetCode)
		}
	}
	last := r.Items[2]
	if last.DetailType != core.ForecastToComplete || last.ForecastToComplete != 250 {
		t.Errorf("forecast row = %+v", last)
	}
}
