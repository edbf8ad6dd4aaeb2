package worker

import (
	"context"
	"errors"
	"testing"

	"budgetrollup/internal/amqp"
	"budgetrollup/internal/core"
	"budgetrollup/internal/log"
	"budgetrollup/internal/rollup"
	"budgetrollup/internal/sheets"
	"budgetrollup/internal/sheets/memory"
	"budgetrollup/internal/sources"
	sourcemem "budgetrollup/internal/sources/memory"
)

type failingExporter struct{ err error }

func (f failingExporter) ExportRollup(ctx context.Context, r *rollup.Rollup) (string, error) {
	return "", f.err
}

type stubComputer struct{ err error }

func (s stubComputer) Compute(ctx context.Context, projectID int64) (*rollup.Rollup, error) {
	return nil, s.err
}

func engine() *rollup.Engine {
	s := sourcemem.New()
	s.Insert("budget_lines", sources.Record{"id": 1, "project_id": 8, "cost_code_id": "02-200", "original_amount": 500})
	return rollup.NewEngine(s, rollup.WithLogger(log.Discard()))
}

func TestHandleRollupRequestExports(t *testing.T) {
	exporter := memory.New()
	w := NewRollupWorker(engine(), exporter)

	if err := w.HandleRollupRequest(context.Background(), &amqp.RollupRequestMessage{ProjectID: 8}); err != nil {
		t.Fatalf("HandleRollupRequest() error = %v", err)
	}

	rows, ok := exporter.Tab(sheets.SheetName(8))
	if !ok {
		t.Fatalf("nothing exported")
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + detail + forecast", len(rows))
	}
}

func TestHandleRollupRequestExportFailureRequeues(t *testing.T) {
	w := NewRollupWorker(engine(), failingExporter{err: errors.New("quota exceeded")})

	err := w.HandleRollupRequest(context.Background(), &amqp.RollupRequestMessage{ProjectID: 8})
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, amqp.ErrRejected) {
		t.Fatalf("export failures must be retried, got %v", err)
	}
}

func TestHandleRollupRequestInvalidProjectRejected(t *testing.T) {
	exporter := memory.New()
	w := NewRollupWorker(engine(), exporter)

	err := w.HandleRollupRequest(context.Background(), &amqp.RollupRequestMessage{ProjectID: -4})
	if !errors.Is(err, amqp.ErrRejected) || !errors.Is(err, core.ErrInvalidProjectID) {
		t.Fatalf("error = %v, want rejected invalid project", err)
	}
	if exporter.Writes() != 0 {
		t.Fatalf("nothing should be exported")
	}
}

func TestHandleRollupRequestComputeFailureRequeues(t *testing.T) {
	w := NewRollupWorker(stubComputer{err: core.ErrUnexpected}, memory.New())

	err := w.HandleRollupRequest(context.Background(), &amqp.RollupRequestMessage{ProjectID: 8})
	if err == nil || errors.Is(err, amqp.ErrRejected) {
		t.Fatalf("error = %v, want retryable failure", err)
	}
}
