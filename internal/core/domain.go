package core

import (
	"encoding/json"
	"errors"
)

const (
	OriginalBudget            DetailType = "original_budget"
	BudgetChanges             DetailType = "budget_changes"
	PrimeContractChangeOrders DetailType = "prime_contract_change_orders"
	Commitments               DetailType = "commitments"
	CommitmentChangeOrders    DetailType = "commitment_change_orders"
	ChangeEvents              DetailType = "change_events"
	DirectCosts               DetailType = "direct_costs"
	ForecastToComplete        DetailType = "forecast_to_complete"
)

// ForecastDescription labels every synthesized forecast row.
const ForecastDescription = "Forecast"

type (
	DetailType string

	// DetailLineItem is one emitted fact of a budget rollup. Only the numeric
	// field matching DetailType is populated; the rest stay zero. The JSON
	// form always carries the matching field, even at zero.
	DetailLineItem struct {
		ID                    string     `json:"id"`
		BudgetCode            string     `json:"budgetCode"`
		BudgetCodeDescription string     `json:"budgetCodeDescription,omitempty"`
		DetailType            DetailType `json:"detailType"`
		Description           string     `json:"description,omitempty"`
		Item                  string     `json:"item,omitempty"`
		Vendor                string     `json:"vendor,omitempty"`

		OriginalBudgetAmount float64 `json:"originalBudgetAmount,omitempty"`
		BudgetChanges        float64 `json:"budgetChanges,omitempty"`
		PendingBudgetChanges float64 `json:"pendingBudgetChanges,omitempty"`
		ApprovedCOs          float64 `json:"approvedCOs,omitempty"`
		CommittedCosts       float64 `json:"committedCosts,omitempty"`
		DirectCosts          float64 `json:"directCosts,omitempty"`
		ForecastToComplete   float64 `json:"forecastToComplete,omitempty"`
	}

	// BudgetCodeSummary is the running ledger for one budget code during a
	// single aggregation pass.
	BudgetCodeSummary struct {
		RevisedBudget  float64
		CommittedCosts float64
		DirectCosts    float64
	}
)

var (
	ErrInvalidProjectID  = errors.New("invalid project id")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrUnexpected        = errors.New("unexpected failure")
)

// DetailTypes lists every detail type in output order.
func DetailTypes() []DetailType {
	return []DetailType{
		OriginalBudget,
		BudgetChanges,
		PrimeContractChangeOrders,
		Commitments,
		CommitmentChangeOrders,
		ChangeEvents,
		DirectCosts,
		ForecastToComplete,
	}
}

// IsValid reports whether t is one of the known detail types.
func (t DetailType) IsValid() bool {
	for _, known := range DetailTypes() {
		if t == known {
			return true
		}
	}
	return false
}

func (t DetailType) String() string {
	return string(t)
}

// Forecast returns the remaining budget capacity for the code.
func (s BudgetCodeSummary) Forecast() float64 {
	return s.RevisedBudget - (s.CommittedCosts + s.DirectCosts)
}

// MarshalJSON omits zero amounts except the one matching DetailType.
func (d DetailLineItem) MarshalJSON() ([]byte, error) {
	type wire struct {
		ID                    string     `json:"id"`
		BudgetCode            string     `json:"budgetCode"`
		BudgetCodeDescription string     `json:"budgetCodeDescription,omitempty"`
		DetailType            DetailType `json:"detailType"`
		Description           string     `json:"description,omitempty"`
		Item                  string     `json:"item,omitempty"`
		Vendor                string     `json:"vendor,omitempty"`

		OriginalBudgetAmount *float64 `json:"originalBudgetAmount,omitempty"`
		BudgetChanges        *float64 `json:"budgetChanges,omitempty"`
		PendingBudgetChanges *float64 `json:"pendingBudgetChanges,omitempty"`
		ApprovedCOs          *float64 `json:"approvedCOs,omitempty"`
		CommittedCosts       *float64 `json:"committedCosts,omitempty"`
		DirectCosts          *float64 `json:"directCosts,omitempty"`
		ForecastToComplete   *float64 `json:"forecastToComplete,omitempty"`
	}
	amount := func(v float64, matches bool) *float64 {
		if v == 0 && !matches {
			return nil
		}
		return &v
	}
	t := d.DetailType
	// pending budget changes carry their amount in PendingBudgetChanges
	return json.Marshal(wire{
		ID:                    d.ID,
		BudgetCode:            d.BudgetCode,
		BudgetCodeDescription: d.BudgetCodeDescription,
		DetailType:            t,
		Description:           d.Description,
		Item:                  d.Item,
		Vendor:                d.Vendor,

		OriginalBudgetAmount: amount(d.OriginalBudgetAmount, t == OriginalBudget),
		BudgetChanges:        amount(d.BudgetChanges, t == BudgetChanges && d.PendingBudgetChanges == 0),
		PendingBudgetChanges: amount(d.PendingBudgetChanges, false),
		ApprovedCOs:          amount(d.ApprovedCOs, t == PrimeContractChangeOrders || t == CommitmentChangeOrders),
		CommittedCosts:       amount(d.CommittedCosts, t == Commitments),
		DirectCosts:          amount(d.DirectCosts, t == DirectCosts),
		ForecastToComplete:   amount(d.ForecastToComplete, t == ForecastToComplete),
	})
}
