// Package export renders rollups as xlsx workbooks.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"budgetrollup/internal/rollup"
	"budgetrollup/internal/sheets"
)

const (
	DetailsSheet = "Details"
	SummarySheet = "Summary"
)

var summaryHeader = []any{
	"Budget Code", "Description", "Revised Budget", "Pending Changes",
	"Committed Costs", "Direct Costs", "Forecast To Complete",
}

// Workbook builds a two-sheet workbook: every rollup row on Details and the
// per-code totals on Summary. Callers must Close the file.
func Workbook(r *rollup.Rollup) (*excelize.File, error) {
	wb := excelize.NewFile()

	if err := wb.SetSheetName(wb.GetSheetName(0), DetailsSheet); err != nil {
		wb.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := wb.NewSheet(SummarySheet); err != nil {
		wb.Close()
		return nil, fmt.Errorf("add summary sheet: %w", err)
	}

	bold, err := wb.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		wb.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	if err := writeRows(wb, DetailsSheet, sheets.RollupRows(r), bold); err != nil {
		wb.Close()
		return nil, err
	}

	summary := [][]any{summaryHeader}
	for _, t := range rollup.Summarize(r.Items) {
		code := t.BudgetCode
		if code == "" {
			code = rollup.UnattributedLabel
		}
		summary = append(summary, []any{
			code, t.Description, t.RevisedBudget, t.PendingChanges,
			t.CommittedCosts, t.DirectCosts, t.Forecast,
		})
	}
	if err := writeRows(wb, SummarySheet, summary, bold); err != nil {
		wb.Close()
		return nil, err
	}

	return wb, nil
}

func writeRows(wb *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := wb.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if len(rows) == 0 {
		return nil
	}

	last, err := excelize.ColumnNumberToName(len(rows[0]))
	if err != nil {
		return err
	}
	if err := wb.SetCellStyle(sheet, "A1", last+"1", headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	if err := wb.SetColWidth(sheet, "A", last, 18); err != nil {
		return fmt.Errorf("size %s columns: %w", sheet, err)
	}
	return nil
}

// Write streams the workbook for r to w.
func Write(w io.Writer, r *rollup.Rollup) error {
	wb, err := Workbook(r)
	if err != nil {
		return err
	}
	defer wb.Close()

	if _, err := wb.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveFile writes the workbook for r to path.
func SaveFile(path string, r *rollup.Rollup) error {
	wb, err := Workbook(r)
	if err != nil {
		return err
	}
	defer wb.Close()

	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook %s: %w", path, err)
	}
	return nil
}
