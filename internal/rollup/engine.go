// Package rollup reconstructs a project's budget ledger from its source
// collections and derives the forecast to complete per budget code.
package rollup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetrollup/internal/core"
	"budgetrollup/internal/log"
	"budgetrollup/internal/sources"
)

// DefaultAdapterTimeout bounds each source read.
const DefaultAdapterTimeout = 5 * time.Second

type (
	// Engine computes rollups against a sources.Reader. It holds no
	// per-request state and is safe for concurrent use.
	Engine struct {
		reader   sources.Reader
		adapters []Adapter
		rules    KeyRules
		timeout  time.Duration
		logger   *log.Logger
		now      func() time.Time
	}

	// Option configures an Engine.
	Option func(*Engine)

	// Rollup is the result of one computation.
	Rollup struct {
		ProjectID  int64                 `json:"projectId"`
		Items      []core.DetailLineItem `json:"details"`
		Count      int                   `json:"count"`
		Failures   []SourceFailure       `json:"-"`
		ComputedAt time.Time             `json:"-"`
	}

	// SourceFailure records an adapter that contributed nothing because its
	// read failed or timed out.
	SourceFailure struct {
		Source   string
		Category core.DetailType
		Err      error
	}
)

func (f SourceFailure) Error() string {
	return fmt.Sprintf("%s: %s: %v", core.ErrSourceUnavailable, f.Source, f.Err)
}

func (f SourceFailure) Unwrap() []error {
	return []error{core.ErrSourceUnavailable, f.Err}
}

// WithKeyRules replaces the default cost-code-only key rules.
func WithKeyRules(rules KeyRules) Option {
	return func(e *Engine) { e.rules = rules }
}

// WithAdapterTimeout sets the per-adapter deadline. Non-positive values
// keep the default.
func WithAdapterTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l.WithComponent(log.ComponentRollup) }
}

// WithAdapters overrides the source adapters.
func WithAdapters(adapters ...Adapter) Option {
	return func(e *Engine) { e.adapters = adapters }
}

// WithClock overrides the time source used for ComputedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine returns an engine reading from r.
func NewEngine(r sources.Reader, opts ...Option) *Engine {
	e := &Engine{
		reader:   r,
		adapters: Adapters(),
		rules:    DefaultKeyRules(),
		timeout:  DefaultAdapterTimeout,
		logger:   log.New(log.Config{Handler: slog.Default().Handler(), Component: log.ComponentRollup}),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	for _, dt := range e.rules.MixedCategories() {
		e.logger.Warn("Key rule falls back to non cost-code fields; rows may not aggregate with cost-code keyed rows",
			log.FieldCategory, dt,
			"fields", e.rules[dt].Fields)
	}
	return e
}

// Compute builds the full rollup for projectID. Individual source failures
// degrade to empty contributions listed in Rollup.Failures; cancellation of
// ctx before all reads finish yields ErrUnexpected and no rollup.
func (e *Engine) Compute(ctx context.Context, projectID int64) (*Rollup, error) {
	if projectID <= 0 {
		return nil, fmt.Errorf("%w: %d must be positive", core.ErrInvalidProjectID, projectID)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUnexpected, err)
	}

	results := make([]SourceResult, len(e.adapters))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range e.adapters {
		g.Go(func() error {
			results[i] = e.run(gctx, a, projectID)
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUnexpected, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrUnexpected, err)
	}

	return e.assemble(ctx, projectID, results)
}

func (e *Engine) assemble(ctx context.Context, projectID int64, results []SourceResult) (*Rollup, error) {
	var (
		items    []core.DetailLineItem
		failures []SourceFailure
	)
	for _, res := range results {
		if res.Err != nil {
			failures = append(failures, SourceFailure{Source: res.Source, Category: res.Category, Err: res.Err})
			e.logger.WarnContext(ctx, "Source unavailable, category degraded",
				log.FieldProjectID, projectID,
				log.FieldCategory, res.Category,
				"source", res.Source,
				log.FieldError, res.Err)
			continue
		}
		items = append(items, res.Items...)
	}

	ledger, err := Aggregate(items)
	if err != nil {
		return nil, err
	}
	items = append(items, Forecast(ledger)...)

	r := &Rollup{
		ProjectID:  projectID,
		Items:      items,
		Count:      len(items),
		Failures:   failures,
		ComputedAt: e.now(),
	}
	e.logger.DebugContext(ctx, "Rollup computed",
		log.FieldProjectID, projectID,
		log.FieldItemCount, r.Count,
		log.FieldBudgetCodes, ledger.Len())
	return r, nil
}

// run executes one adapter under its own deadline. The read is abandoned,
// not awaited, once the deadline passes or ctx is cancelled.
func (e *Engine) run(ctx context.Context, a Adapter, projectID int64) SourceResult {
	res := SourceResult{Source: a.Source, Category: a.Category}

	actx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	type outcome struct {
		rows []SourceRow
		err  error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()
		rows, err := a.Read(actx, e.reader, projectID)
		done <- outcome{rows: rows, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-actx.Done():
		out.err = actx.Err()
	}
	if out.err != nil {
		if errors.Is(out.err, context.DeadlineExceeded) && ctx.Err() == nil {
			out.err = fmt.Errorf("timed out after %s: %w", e.timeout, out.err)
		}
		res.Err = out.err
		return res
	}

	rule := e.rule(a.Category)
	unattributed := 0
	res.Items = make([]core.DetailLineItem, 0, len(out.rows))
	for _, row := range out.rows {
		item := row.Item
		item.BudgetCode = rule.Key(row.Record.String)
		if item.BudgetCode == "" {
			unattributed++
		}
		res.Items = append(res.Items, item)
	}
	if unattributed > 0 {
		e.logger.InfoContext(ctx, "Rows without budget code grouped as unattributed",
			log.FieldProjectID, projectID,
			log.FieldCategory, a.Category,
			"source", a.Source,
			log.FieldRows, unattributed)
	}
	return res
}

func (e *Engine) rule(dt core.DetailType) KeyRule {
	if rule, ok := e.rules[dt]; ok && len(rule.Fields) > 0 {
		return rule
	}
	return DefaultKeyRules()[dt]
}

// Degraded lists the categories that lost at least one source, in output order.
func (r *Rollup) Degraded() []string {
	seen := make(map[core.DetailType]bool)
	for _, f := range r.Failures {
		seen[f.Category] = true
	}
	var out []string
	for _, dt := range core.DetailTypes() {
		if seen[dt] {
			out = append(out, dt.String())
		}
	}
	return out
}

// ForecastTotal sums the forecast rows.
func (r *Rollup) ForecastTotal() float64 {
	var total float64
	for _, item := range r.Items {
		if item.DetailType == core.ForecastToComplete {
			total += item.ForecastToComplete
		}
	}
	return total
}

// BudgetCodes returns the number of distinct budget codes in the rollup.
func (r *Rollup) BudgetCodes() int {
	n := 0
	for _, item := range r.Items {
		if item.DetailType == core.ForecastToComplete {
			n++
		}
	}
	return n
}
