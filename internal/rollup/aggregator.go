package rollup

import (
	"fmt"

	"budgetrollup/internal/core"
)

// Ledger accumulates per-budget-code totals. It is owned by one computation.
type Ledger struct {
	summaries map[string]*core.BudgetCodeSummary
}

func newLedger() *Ledger {
	return &Ledger{summaries: make(map[string]*core.BudgetCodeSummary)}
}

func (l *Ledger) ensure(code string) *core.BudgetCodeSummary {
	s, ok := l.summaries[code]
	if !ok {
		s = &core.BudgetCodeSummary{}
		l.summaries[code] = s
	}
	return s
}

// Add folds one detail row into the ledger. Every row registers its code,
// including display-only categories and the empty unattributed code.
func (l *Ledger) Add(item core.DetailLineItem) {
	s := l.ensure(item.BudgetCode)
	switch item.DetailType {
	case core.OriginalBudget:
		s.RevisedBudget += item.OriginalBudgetAmount
	case core.BudgetChanges:
		s.RevisedBudget += item.BudgetChanges
	case core.PrimeContractChangeOrders:
		s.RevisedBudget += item.ApprovedCOs
	case core.Commitments:
		s.CommittedCosts += item.CommittedCosts
	case core.DirectCosts:
		s.DirectCosts += item.DirectCosts
	}
}

// Len returns the number of distinct budget codes.
func (l *Ledger) Len() int { return len(l.summaries) }

// Summary returns the totals for code.
func (l *Ledger) Summary(code string) (core.BudgetCodeSummary, bool) {
	s, ok := l.summaries[code]
	if !ok {
		return core.BudgetCodeSummary{}, false
	}
	return *s, true
}

// Aggregate builds a ledger from detail rows in a single pass. Forecast
// rows are ignored so a finished rollup can be fed back in.
func Aggregate(items []core.DetailLineItem) (ledger *Ledger, err error) {
	defer func() {
		if r := recover(); r != nil {
			ledger = nil
			err = fmt.Errorf("%w: aggregate: %v", core.ErrUnexpected, r)
		}
	}()

	ledger = newLedger()
	for _, item := range items {
		if item.DetailType == core.ForecastToComplete {
			continue
		}
		ledger.Add(item)
	}
	return ledger, nil
}
