package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgetrollup/internal/amqp"
	"budgetrollup/internal/core"
	"budgetrollup/internal/rollup"
	"budgetrollup/internal/sheets"
)

// Computer produces a rollup for a validated project id.
type Computer interface {
	Compute(ctx context.Context, projectID int64) (*rollup.Rollup, error)
}

// RollupWorker turns rollup requests into spreadsheet exports.
type RollupWorker struct {
	computer Computer
	exporter sheets.RollupExporter
}

func NewRollupWorker(computer Computer, exporter sheets.RollupExporter) *RollupWorker {
	return &RollupWorker{
		computer: computer,
		exporter: exporter,
	}
}

// HandleRollupRequest computes and exports one project's rollup. Invalid
// project ids are rejected permanently; every other failure is returned for
// redelivery.
func (w *RollupWorker) HandleRollupRequest(ctx context.Context, msg *amqp.RollupRequestMessage) error {
	slog.InfoContext(ctx, "Processing rollup request",
		"project_id", msg.ProjectID,
		"requested_by", msg.RequestedBy)

	r, err := w.computer.Compute(ctx, msg.ProjectID)
	if err != nil {
		if errors.Is(err, core.ErrInvalidProjectID) {
			return fmt.Errorf("%w: %w", amqp.ErrRejected, err)
		}
		return fmt.Errorf("compute rollup: %w", err)
	}

	if degraded := r.Degraded(); len(degraded) > 0 {
		slog.WarnContext(ctx, "Exporting degraded rollup",
			"project_id", msg.ProjectID,
			"degraded_categories", degraded)
	}

	ref, err := w.exporter.ExportRollup(ctx, r)
	if err != nil {
		return fmt.Errorf("export rollup: %w", err)
	}

	slog.InfoContext(ctx, "Rollup exported",
		"project_id", msg.ProjectID,
		"count", r.Count,
		"ref", ref)
	return nil
}
