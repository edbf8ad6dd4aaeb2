package sheets

import (
	"context"
	"fmt"

	"budgetrollup/internal/rollup"
)

// Ports for outbound adapters.
type (
	// RollupExporter writes a computed rollup to a spreadsheet tab and
	// returns a reference to the written range.
	RollupExporter interface {
		ExportRollup(ctx context.Context, r *rollup.Rollup) (ref string, err error)
	}
)

// Header is the first row of every exported rollup tab.
var Header = []any{
	"ID", "Budget Code", "Budget Code Description", "Detail Type", "Description", "Item", "Vendor",
	"Original Budget", "Budget Changes", "Pending Budget Changes", "Approved COs",
	"Committed Costs", "Direct Costs", "Forecast To Complete",
}

// SheetName is the tab a project's rollup is exported to.
func SheetName(projectID int64) string {
	return fmt.Sprintf("Budget %d", projectID)
}

// RollupRows renders the header plus one row per item, in rollup order.
func RollupRows(r *rollup.Rollup) [][]any {
	rows := make([][]any, 0, len(r.Items)+1)
	rows = append(rows, Header)
	for _, it := range r.Items {
		rows = append(rows, []any{
			it.ID,
			it.BudgetCode,
			it.BudgetCodeDescription,
			it.DetailType.String(),
			it.Description,
			it.Item,
			it.Vendor,
			it.OriginalBudgetAmount,
			it.BudgetChanges,
			it.PendingBudgetChanges,
			it.ApprovedCOs,
			it.CommittedCosts,
			it.DirectCosts,
			it.ForecastToComplete,
		})
	}
	return rows
}
