package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"budgetrollup/internal/amqp"
	"budgetrollup/internal/core"
	"budgetrollup/internal/log"
	"budgetrollup/internal/rollup"
	"budgetrollup/internal/sources"
	"budgetrollup/internal/sources/memory"
)

type fakePublisher struct {
	msgs []*amqp.RollupComputedMessage
	err  error
}

func (f *fakePublisher) PublishRollupComputed(ctx context.Context, msg *amqp.RollupComputedMessage) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

type failingEngine struct{ err error }

func (f failingEngine) Compute(ctx context.Context, projectID int64) (*rollup.Rollup, error) {
	return nil, f.err
}

func scenarioEngine() *rollup.Engine {
	s := memory.New()
	s.Insert("budget_lines", sources.Record{"id": 1, "project_id": 5, "cost_code_id": "01-100", "original_amount": 10000})
	s.Insert("direct_costs", sources.Record{"id": 2, "project_id": 5, "cost_code_id": "01-100", "amount": 1000})
	return rollup.NewEngine(s,
		rollup.WithLogger(log.Discard()),
		rollup.WithClock(func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }))
}

func TestRollupService_ComputePublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewRollupService(scenarioEngine(), pub, log.Discard())

	r, err := svc.ComputeRollup(context.Background(), "5")
	if err != nil {
		t.Fatalf("ComputeRollup() error = %v", err)
	}
	if r.Count != 3 {
		t.Fatalf("Count = %d, want 3", r.Count)
	}

	if len(pub.msgs) != 1 {
		t.Fatalf("published %d events, want 1", len(pub.msgs))
	}
	msg := pub.msgs[0]
	if msg.ProjectID != 5 || msg.Count != 3 || msg.BudgetCodes != 1 || msg.ForecastTotal != 9000 {
		t.Errorf("event = %+v", msg)
	}
	if !msg.ComputedAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("ComputedAt = %v", msg.ComputedAt)
	}
}

func TestRollupService_PublishFailureIsNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("circuit breaker is open")}
	svc := NewRollupService(scenarioEngine(), pub, nil)

	if _, err := svc.Compute(context.Background(), 5); err != nil {
		t.Fatalf("Compute() error = %v, publish failures must not surface", err)
	}
}

func TestRollupService_NoPublisher(t *testing.T) {
	svc := NewRollupService(scenarioEngine(), nil, nil)
	if _, err := svc.Compute(context.Background(), 5); err != nil {
		t.Fatalf("Compute() error = %v", err)
	}
}

func TestRollupService_InvalidProjectID(t *testing.T) {
	pub := &fakePublisher{}
	svc := NewRollupService(scenarioEngine(), pub, nil)

	for _, raw := range []string{"", "abc", "-1", "0", "1.5"} {
		if _, err := svc.ComputeRollup(context.Background(), raw); !errors.Is(err, core.ErrInvalidProjectID) {
			t.Errorf("ComputeRollup(%q) error = %v, want ErrInvalidProjectID", raw, err)
		}
	}
	if len(pub.msgs) != 0 {
		t.Errorf("no events expected for invalid ids")
	}
}

func TestRollupService_UnexpectedErrorsAreClassified(t *testing.T) {
	svc := NewRollupService(failingEngine{err: errors.New("boom")}, nil, nil)

	_, err := svc.Compute(context.Background(), 9)
	if !errors.Is(err, core.ErrUnexpected) {
		t.Fatalf("error = %v, want ErrUnexpected", err)
	}
}
