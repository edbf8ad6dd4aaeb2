package rollup

import (
	"sort"

	"budgetrollup/internal/core"
)

// CodeTotals is the presentation view of one budget code.
type CodeTotals struct {
	BudgetCode     string  `json:"budgetCode"`
	Description    string  `json:"description,omitempty"`
	RevisedBudget  float64 `json:"revisedBudget"`
	PendingChanges float64 `json:"pendingChanges"`
	CommittedCosts float64 `json:"committedCosts"`
	DirectCosts    float64 `json:"directCosts"`
	Forecast       float64 `json:"forecastToComplete"`
}

// Summarize rebuilds per-code totals from a rollup's items, sorted by code.
// The forecast is recomputed through the Ledger rather than read back.
func Summarize(items []core.DetailLineItem) []CodeTotals {
	ledger := newLedger()
	byCode := make(map[string]*CodeTotals)
	for _, item := range items {
		t, ok := byCode[item.BudgetCode]
		if !ok {
			t = &CodeTotals{BudgetCode: item.BudgetCode}
			byCode[item.BudgetCode] = t
		}
		if item.DetailType == core.ForecastToComplete {
			continue
		}
		ledger.Add(item)
		if t.Description == "" {
			t.Description = item.BudgetCodeDescription
		}
		t.PendingChanges += item.PendingBudgetChanges
	}

	out := make([]CodeTotals, 0, len(byCode))
	for code, t := range byCode {
		s, _ := ledger.Summary(code)
		t.RevisedBudget = s.RevisedBudget
		t.CommittedCosts = s.CommittedCosts
		t.DirectCosts = s.DirectCosts
		t.Forecast = s.Forecast()
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BudgetCode < out[j].BudgetCode })
	return out
}
