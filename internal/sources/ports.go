// Package sources defines the read boundary between the rollup engine and the
// persistence layer. Implementations live in sources/memory and storage.
package sources

import (
	"context"
)

// DefaultProjectField is the column holding the owning project id.
const DefaultProjectField = "project_id"

// Collections lists the source collections, parents before children.
var Collections = []string{
	"cost_codes",
	"budget_lines",
	"budget_modifications",
	"budget_modification_lines",
	"prime_contracts",
	"prime_contract_change_orders",
	"subcontracts",
	"subcontract_sov_items",
	"purchase_orders",
	"purchase_order_sov_items",
	"commitment_change_orders",
	"change_events",
	"change_event_line_items",
	"direct_costs",
}

type (
	// Reader issues one read against a named collection, optionally joined to
	// related collections, filtered by project and eligibility predicates.
	Reader interface {
		Fetch(ctx context.Context, q Query) ([]Record, error)
	}

	// Query describes a single filtered read.
	Query struct {
		Collection string
		Joins      []Join
		// ProjectField may reference a joined alias ("parent.project_id").
		// Empty means DefaultProjectField on the base collection.
		ProjectField string
		ProjectID    int64
		Where        []Predicate
	}

	// Join is a left join on LocalField = Alias.ForeignField. Joined values
	// are exposed on the record as "alias.field".
	Join struct {
		Collection   string
		Alias        string
		LocalField   string
		ForeignField string
		Fields       []string
	}

	// Predicate keeps rows whose Field value is one of In.
	Predicate struct {
		Field string
		In    []string
	}
)

// ProjectColumn returns the effective project filter field.
func (q Query) ProjectColumn() string {
	if q.ProjectField == "" {
		return DefaultProjectField
	}
	return q.ProjectField
}

// Qualified returns the record key of a joined field.
func (j Join) Qualified(field string) string {
	return j.Alias + "." + field
}
