package rollup

import (
	"sort"

	"budgetrollup/internal/core"
)

// UnattributedLabel is the display name of the empty budget code. It never
// appears in row ids.
const UnattributedLabel = "(unattributed)"

// Forecast emits one forecast_to_complete row per budget code in ascending
// code order. Zero forecasts are emitted too.
func Forecast(l *Ledger) []core.DetailLineItem {
	codes := make([]string, 0, len(l.summaries))
	for code := range l.summaries {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	rows := make([]core.DetailLineItem, 0, len(codes))
	for _, code := range codes {
		rows = append(rows, forecastRow(code, *l.summaries[code]))
	}
	return rows
}

// ForecastRowID returns the id of code's forecast row. Real codes get a
// "-<code>" suffix; the empty code gets the bare category name, which no
// suffixed id can equal.
func ForecastRowID(code string) string {
	if code == "" {
		return string(core.ForecastToComplete)
	}
	return string(core.ForecastToComplete) + "-" + code
}

func forecastRow(code string, s core.BudgetCodeSummary) core.DetailLineItem {
	return core.DetailLineItem{
		ID:                    ForecastRowID(code),
		BudgetCode:            code,
		BudgetCodeDescription: core.ForecastDescription,
		DetailType:            core.ForecastToComplete,
		ForecastToComplete:    s.Forecast(),
	}
}
