package rollup

import (
	"context"
	"fmt"

	"budgetrollup/internal/core"
	"budgetrollup/internal/sources"
)

// Adapter reads one source of detail rows for a project. Several adapters
// may feed the same category.
type Adapter struct {
	Source   string
	Category core.DetailType
	Read     func(ctx context.Context, r sources.Reader, projectID int64) ([]SourceRow, error)
}

// SourceRow pairs the mapped item with the raw record so the engine can
// derive its budget code through the active KeyRules. Item.BudgetCode is
// overwritten by that key.
type SourceRow struct {
	Item   core.DetailLineItem
	Record sources.Record
}

// SourceResult is the outcome of one adapter read.
type SourceResult struct {
	Source   string
	Category core.DetailType
	Items    []core.DetailLineItem
	Err      error
}

const (
	statusApproved = "approved"
	statusPending  = "pending"
	statusDraft    = "draft"
	statusComplete = "complete"
)

var costCodeJoin = sources.Join{
	Collection:   "cost_codes",
	Alias:        "cc",
	LocalField:   "cost_code_id",
	ForeignField: "id",
	Fields:       []string{"description"},
}

// Adapters returns the eight source adapters in output order.
func Adapters() []Adapter {
	return []Adapter{
		{Source: "original_budget", Category: core.OriginalBudget, Read: readOriginalBudget},
		{Source: "budget_changes", Category: core.BudgetChanges, Read: readBudgetChanges},
		{Source: "prime_contract_change_orders", Category: core.PrimeContractChangeOrders, Read: readPrimeContractChangeOrders},
		{Source: "subcontract_commitments", Category: core.Commitments, Read: commitmentReader(subcontracts)},
		{Source: "purchase_order_commitments", Category: core.Commitments, Read: commitmentReader(purchaseOrders)},
		{Source: "commitment_change_orders", Category: core.CommitmentChangeOrders, Read: readCommitmentChangeOrders},
		{Source: "change_events", Category: core.ChangeEvents, Read: readChangeEvents},
		{Source: "direct_costs", Category: core.DirectCosts, Read: readDirectCosts},
	}
}

func rowID(category core.DetailType, rec sources.Record) string {
	return fmt.Sprintf("%s-%s", category, rec.String("id"))
}

func readOriginalBudget(ctx context.Context, r sources.Reader, projectID int64) ([]SourceRow, error) {
	recs, err := r.Fetch(ctx, sources.Query{
		Collection: "budget_lines",
		Joins:      []sources.Join{costCodeJoin},
		ProjectID:  projectID,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch budget lines: %w", err)
	}

	rows := make([]SourceRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, SourceRow{Record: rec, Item: core.DetailLineItem{
			ID:                    rowID(core.OriginalBudget, rec),
			BudgetCodeDescription: rec.String("cc.description"),
			DetailType:            core.OriginalBudget,
			Description:           rec.String("description"),
			OriginalBudgetAmount:  rec.Float("original_amount"),
		}})
	}
	return rows, nil
}

// readBudgetChanges covers approved and pending modification lines in one
// read. Only approved lines carry BudgetChanges; the rest are display only.
func readBudgetChanges(ctx context.Context, r sources.Reader, projectID int64) ([]SourceRow, error) {
	recs, err := r.Fetch(ctx, sources.Query{
		Collection: "budget_modification_lines",
		Joins: []sources.Join{
			{
				Collection:   "budget_modifications",
				Alias:        "mod",
				LocalField:   "budget_modification_id",
				ForeignField: "id",
				Fields:       []string{"project_id", "number", "title", "status"},
			},
			{
				Collection:   "budget_lines",
				Alias:        "line",
				LocalField:   "budget_line_id",
				ForeignField: "id",
				Fields:       []string{"cost_code_id"},
			},
			costCodeJoin,
			{
				Collection:   "cost_codes",
				Alias:        "lcc",
				LocalField:   "line.cost_code_id",
				ForeignField: "id",
				Fields:       []string{"description"},
			},
		},
		ProjectField: "mod.project_id",
		ProjectID:    projectID,
		Where: []sources.Predicate{
			{Field: "mod.status", In: []string{statusApproved, statusPending, statusDraft}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch budget modification lines: %w", err)
	}

	rows := make([]SourceRow, 0, len(recs))
	for _, rec := range recs {
		item := core.DetailLineItem{
			ID:                    rowID(core.BudgetChanges, rec),
			BudgetCodeDescription: rec.First("cc.description", "lcc.description"),
			DetailType:            core.BudgetChanges,
			Description:           rec.First("description", "mod.title"),
			Item:                  rec.String("mod.number"),
		}
		if rec.String("mod.status") == statusApproved {
			item.BudgetChanges = rec.Float("amount")
		} else {
			item.PendingBudgetChanges = rec.Float("amount")
		}
		rows = append(rows, SourceRow{Item: item, Record: rec})
	}
	return rows, nil
}

func readPrimeContractChangeOrders(ctx context.Context, r sources.Reader, projectID int64) ([]SourceRow, error) {
	recs, err := r.Fetch(ctx, sources.Query{
		Collection: "prime_contract_change_orders",
		Joins: []sources.Join{
			{
				Collection:   "prime_contracts",
				Alias:        "parent",
				LocalField:   "prime_contract_id",
				ForeignField: "id",
				Fields:       []string{"contract_number", "title"},
			},
			costCodeJoin,
		},
		ProjectID: projectID,
		Where:     []sources.Predicate{{Field: "status", In: []string{statusApproved}}},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch prime contract change orders: %w", err)
	}

	rows := make([]SourceRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, SourceRow{Record: rec, Item: core.DetailLineItem{
			ID:                    rowID(core.PrimeContractChangeOrders, rec),
			BudgetCodeDescription: rec.String("cc.description"),
			DetailType:            core.PrimeContractChangeOrders,
			Description:           rec.First("title", "parent.title"),
			Item:                  rec.First("number", "parent.contract_number"),
			ApprovedCOs:           rec.Float("amount"),
		}})
	}
	return rows, nil
}

type commitmentKind struct {
	kind, items, parent, parentField string
}

var (
	subcontracts   = commitmentKind{"subcontract", "subcontract_sov_items", "subcontracts", "subcontract_id"}
	purchaseOrders = commitmentKind{"purchase_order", "purchase_order_sov_items", "purchase_orders", "purchase_order_id"}
)

// commitmentReader reads schedule-of-values lines of one commitment kind.
// Parents are always joined as "parent" so key rules apply to both kinds.
func commitmentReader(k commitmentKind) func(context.Context, sources.Reader, int64) ([]SourceRow, error) {
	return func(ctx context.Context, r sources.Reader, projectID int64) ([]SourceRow, error) {
		recs, err := r.Fetch(ctx, sources.Query{
			Collection: k.items,
			Joins: []sources.Join{
				{
					Collection:   k.parent,
					Alias:        "parent",
					LocalField:   k.parentField,
					ForeignField: "id",
					Fields:       []string{"project_id", "contract_number", "title", "vendor_name", "status"},
				},
				costCodeJoin,
			},
			ProjectField: "parent.project_id",
			ProjectID:    projectID,
			Where: []sources.Predicate{
				{Field: "parent.status", In: []string{statusApproved, statusComplete, statusDraft}},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", k.items, err)
		}

		rows := make([]SourceRow, 0, len(recs))
		for _, rec := range recs {
			rows = append(rows, SourceRow{Record: rec, Item: core.DetailLineItem{
				ID:                    fmt.Sprintf("%s-%s-%s", core.Commitments, k.kind, rec.String("id")),
				BudgetCodeDescription: rec.String("cc.description"),
				DetailType:            core.Commitments,
				Description:           rec.First("description", "parent.title"),
				Item:                  rec.String("parent.contract_number"),
				Vendor:                rec.String("parent.vendor_name"),
				CommittedCosts:        rec.Float("amount"),
			}})
		}
		return rows, nil
	}
}

func readCommitmentChangeOrders(ctx context.Context, r sources.Reader, projectID int64) ([]SourceRow, error) {
	recs, err := r.Fetch(ctx, sources.Query{
		Collection: "commitment_change_orders",
		Joins:      []sources.Join{costCodeJoin},
		ProjectID:  projectID,
		Where:      []sources.Predicate{{Field: "status", In: []string{statusApproved}}},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch commitment change orders: %w", err)
	}

	rows := make([]SourceRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, SourceRow{Record: rec, Item: core.DetailLineItem{
			ID:                    rowID(core.CommitmentChangeOrders, rec),
			BudgetCodeDescription: rec.String("cc.description"),
			DetailType:            core.CommitmentChangeOrders,
			Description:           rec.String("title"),
			Item:                  rec.First("number", "contract_number"),
			Vendor:                rec.String("vendor_name"),
			ApprovedCOs:           rec.Float("amount"),
		}})
	}
	return rows, nil
}

// readChangeEvents emits change event line items for display; amounts are
// not carried into any ledger field.
func readChangeEvents(ctx context.Context, r sources.Reader, projectID int64) ([]SourceRow, error) {
	recs, err := r.Fetch(ctx, sources.Query{
		Collection: "change_event_line_items",
		Joins: []sources.Join{
			{
				Collection:   "change_events",
				Alias:        "ce",
				LocalField:   "change_event_id",
				ForeignField: "id",
				Fields:       []string{"number", "title", "status"},
			},
			costCodeJoin,
		},
		ProjectID: projectID,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch change event line items: %w", err)
	}

	rows := make([]SourceRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, SourceRow{Record: rec, Item: core.DetailLineItem{
			ID:                    rowID(core.ChangeEvents, rec),
			BudgetCodeDescription: rec.String("cc.description"),
			DetailType:            core.ChangeEvents,
			Description:           rec.First("description", "ce.title"),
			Item:                  rec.String("ce.number"),
			Vendor:                rec.String("vendor_name"),
		}})
	}
	return rows, nil
}

func readDirectCosts(ctx context.Context, r sources.Reader, projectID int64) ([]SourceRow, error) {
	recs, err := r.Fetch(ctx, sources.Query{
		Collection: "direct_costs",
		Joins:      []sources.Join{costCodeJoin},
		ProjectID:  projectID,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch direct costs: %w", err)
	}

	rows := make([]SourceRow, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, SourceRow{Record: rec, Item: core.DetailLineItem{
			ID:                    rowID(core.DirectCosts, rec),
			BudgetCodeDescription: rec.String("cc.description"),
			DetailType:            core.DirectCosts,
			Description:           rec.String("description"),
			Item:                  rec.String("invoice_number"),
			Vendor:                rec.String("vendor_name"),
			DirectCosts:           rec.Float("amount"),
		}})
	}
	return rows, nil
}
