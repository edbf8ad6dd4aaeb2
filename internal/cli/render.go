package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"budgetrollup/internal/rollup"
)

var (
	ColorBorder = lipgloss.Color("#282726")
	ColorText   = lipgloss.Color("#FFFCF0")
	ColorDim    = lipgloss.Color("#575653")
	ColorAccent = lipgloss.Color("#3AA99F")
	ColorRed    = lipgloss.Color("#D14D41")
	ColorOrange = lipgloss.Color("#DA702C")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorText).
			Align(lipgloss.Center)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorAccent)

	valueStyle    = lipgloss.NewStyle().Foreground(ColorText)
	negativeStyle = lipgloss.NewStyle().Foreground(ColorRed)
	warnStyle     = lipgloss.NewStyle().Foreground(ColorOrange)
	dimStyle      = lipgloss.NewStyle().Foreground(ColorDim)
)

// Table is a bordered text table. The first column is left aligned, the
// rest right aligned.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// RenderTitle renders a centered title in a rounded box.
func RenderTitle(title string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder).
		Width(60).
		Align(lipgloss.Center).
		Padding(0, 1)

	return border.Render(titleStyle.Render(title))
}

// RenderTable renders t with box-drawing borders.
func RenderTable(t Table) string {
	numCols := len(t.Headers)
	if numCols == 0 && len(t.Rows) > 0 {
		numCols = len(t.Rows[0])
	}
	if numCols == 0 {
		return ""
	}

	widths := make([]int, numCols)
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i := 0; i < numCols && i < len(row); i++ {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	if t.Title != "" {
		b.WriteString("  " + headerStyle.Render(t.Title) + "\n")
	}

	rule := func(left, mid, right string) {
		b.WriteString(dimStyle.Render(left))
		for i, w := range widths {
			b.WriteString(dimStyle.Render(strings.Repeat("─", w+2)))
			if i < numCols-1 {
				b.WriteString(dimStyle.Render(mid))
			}
		}
		b.WriteString(dimStyle.Render(right) + "\n")
	}

	rule("╭", "┬", "╮")
	if len(t.Headers) > 0 {
		b.WriteString(dimStyle.Render("│"))
		for i, h := range t.Headers {
			b.WriteString(headerStyle.Render(fmt.Sprintf(" %-*s ", widths[i], h)))
			b.WriteString(dimStyle.Render("│"))
		}
		b.WriteString("\n")
		rule("├", "┼", "┤")
	}

	for _, row := range t.Rows {
		b.WriteString(dimStyle.Render("│"))
		for i := 0; i < numCols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			style := valueStyle
			if i > 0 && strings.HasPrefix(cell, "-") {
				style = negativeStyle
			}
			pad := widths[i] - lipgloss.Width(cell)
			if i == 0 {
				b.WriteString(style.Render(" " + cell + strings.Repeat(" ", pad) + " "))
			} else {
				b.WriteString(style.Render(" " + strings.Repeat(" ", pad) + cell + " "))
			}
			b.WriteString(dimStyle.Render("│"))
		}
		b.WriteString("\n")
	}
	rule("╰", "┴", "╯")

	return b.String()
}

// RenderRollup renders the per-code summary of r with a totals row and a
// warning line for degraded categories.
func RenderRollup(r *rollup.Rollup) string {
	totals := rollup.Summarize(r.Items)

	t := Table{
		Title:   fmt.Sprintf("%d budget codes, %d rows", len(totals), r.Count),
		Headers: []string{"Budget Code", "Revised", "Pending", "Committed", "Direct", "Forecast"},
	}
	var sum rollup.CodeTotals
	for _, c := range totals {
		code := c.BudgetCode
		if code == "" {
			code = rollup.UnattributedLabel
		}
		if c.Description != "" {
			code += " " + c.Description
		}
		t.Rows = append(t.Rows, []string{
			code,
			FormatMoney(c.RevisedBudget),
			FormatMoney(c.PendingChanges),
			FormatMoney(c.CommittedCosts),
			FormatMoney(c.DirectCosts),
			FormatMoney(c.Forecast),
		})
		sum.RevisedBudget += c.RevisedBudget
		sum.PendingChanges += c.PendingChanges
		sum.CommittedCosts += c.CommittedCosts
		sum.DirectCosts += c.DirectCosts
		sum.Forecast += c.Forecast
	}
	if len(totals) > 0 {
		t.Rows = append(t.Rows, []string{
			"Total",
			FormatMoney(sum.RevisedBudget),
			FormatMoney(sum.PendingChanges),
			FormatMoney(sum.CommittedCosts),
			FormatMoney(sum.DirectCosts),
			FormatMoney(sum.Forecast),
		})
	}

	var b strings.Builder
	b.WriteString(RenderTitle(fmt.Sprintf("Budget rollup · project %d", r.ProjectID)))
	b.WriteString("\n")
	b.WriteString(RenderTable(t))
	if degraded := r.Degraded(); len(degraded) > 0 {
		b.WriteString(warnStyle.Render("  degraded: "+strings.Join(degraded, ", ")) + "\n")
	}
	return b.String()
}
