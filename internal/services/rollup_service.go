package services

import (
	"context"
	"errors"
	"fmt"

	"budgetrollup/internal/amqp"
	"budgetrollup/internal/core"
	"budgetrollup/internal/log"
	"budgetrollup/internal/rollup"
)

// EventPublisher announces finished rollups.
type EventPublisher interface {
	PublishRollupComputed(ctx context.Context, msg *amqp.RollupComputedMessage) error
}

// Computer is the engine surface the service depends on.
type Computer interface {
	Compute(ctx context.Context, projectID int64) (*rollup.Rollup, error)
}

// RollupService computes rollups and publishes a rollup.computed event
// after each success when a publisher is configured.
type RollupService struct {
	engine    Computer
	publisher EventPublisher
	logger    *log.StructuredLogger
}

func NewRollupService(engine Computer, publisher EventPublisher, logger *log.Logger) *RollupService {
	if logger == nil {
		logger = log.Discard()
	}
	return &RollupService{
		engine:    engine,
		publisher: publisher,
		logger:    log.NewStructuredLogger(logger),
	}
}

// ComputeRollup validates the raw project identifier and computes its rollup.
func (s *RollupService) ComputeRollup(ctx context.Context, rawProjectID string) (*rollup.Rollup, error) {
	projectID, err := core.ParseProjectID(rawProjectID)
	if err != nil {
		return nil, err
	}
	return s.Compute(ctx, projectID)
}

// Compute runs the engine. Errors are InvalidProjectID or Unexpected; event
// publishing never fails the call.
func (s *RollupService) Compute(ctx context.Context, projectID int64) (*rollup.Rollup, error) {
	r, err := s.engine.Compute(ctx, projectID)
	if err != nil {
		if !errors.Is(err, core.ErrInvalidProjectID) && !errors.Is(err, core.ErrUnexpected) {
			err = fmt.Errorf("%w: %w", core.ErrUnexpected, err)
		}
		fields := log.NewFields()
		fields[log.FieldProjectID] = projectID
		s.logger.LogError(ctx, "Budget rollup failed", err, log.ComponentRollup, log.OpCompute, fields)
		return nil, err
	}

	s.logger.LogRollupComputed(ctx, projectID, r.Count, r.BudgetCodes(), r.Degraded(), r.ForecastTotal())
	s.publish(ctx, r)
	return r, nil
}

func (s *RollupService) publish(ctx context.Context, r *rollup.Rollup) {
	if s.publisher == nil {
		return
	}
	msg := &amqp.RollupComputedMessage{
		ProjectID:     r.ProjectID,
		Count:         r.Count,
		BudgetCodes:   r.BudgetCodes(),
		ForecastTotal: r.ForecastTotal(),
		Degraded:      r.Degraded(),
		ComputedAt:    r.ComputedAt,
	}
	if err := s.publisher.PublishRollupComputed(ctx, msg); err != nil {
		fields := log.NewFields()
		fields[log.FieldProjectID] = r.ProjectID
		s.logger.LogError(ctx, "Failed to publish rollup computed event", err, log.ComponentAMQP, log.OpPublish, fields)
	}
}
