package rollup

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"budgetrollup/internal/core"
	"budgetrollup/internal/sources"
)

func TestKeyRuleKey(t *testing.T) {
	rule := KeyRule{Fields: []string{"cost_code_id", "line.cost_code_id", "vendor_name"}}
	tests := []struct {
		name string
		rec  sources.Record
		want string
	}{
		{"direct code", sources.Record{"cost_code_id": "01-100", "line.cost_code_id": "02-200"}, "01-100"},
		{"joined code", sources.Record{"cost_code_id": "", "line.cost_code_id": "02-200"}, "02-200"},
		{"vendor fallback", sources.Record{"vendor_name": "Acme"}, "Acme"},
		{"whitespace is empty", sources.Record{"cost_code_id": "  ", "vendor_name": "Acme"}, "Acme"},
		{"nothing", sources.Record{"title": "x"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rule.Key(tt.rec.String); got != tt.want {
				t.Fatalf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPresetsValidate(t *testing.T) {
	if err := DefaultKeyRules().Validate(); err != nil {
		t.Fatalf("default rules: %v", err)
	}
	if err := LegacyKeyRules().Validate(); err != nil {
		t.Fatalf("legacy rules: %v", err)
	}
	if got := DefaultKeyRules().MixedCategories(); len(got) != 0 {
		t.Fatalf("default rules should be cost-code only, mixed: %v", got)
	}
	mixed := LegacyKeyRules().MixedCategories()
	found := false
	for _, dt := range mixed {
		if dt == core.PrimeContractChangeOrders {
			found = true
		}
	}
	if !found {
		t.Fatalf("legacy prime contract change orders should be flagged, got %v", mixed)
	}
}

func TestValidateReportsProblems(t *testing.T) {
	rules := DefaultKeyRules()
	delete(rules, core.DirectCosts)
	rules[core.ChangeEvents] = KeyRule{Fields: []string{"Bad Field"}}
	rules[core.ForecastToComplete] = KeyRule{Fields: []string{"cost_code_id"}}

	err := rules.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"direct_costs", "Bad Field", "forecast_to_complete"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
}

func TestParseKeyRules(t *testing.T) {
	doc := `
preset: legacy
rules:
  prime_contract_change_orders: [cost_code_id]
  direct_costs: [cost_code_id]
`
	rules, err := ParseKeyRules([]byte(doc))
	if err != nil {
		t.Fatalf("ParseKeyRules: %v", err)
	}
	if got := rules[core.PrimeContractChangeOrders].Fields; len(got) != 1 || got[0] != "cost_code_id" {
		t.Fatalf("override not applied: %v", got)
	}
	if got := rules[core.ChangeEvents].Fields; len(got) != 2 {
		t.Fatalf("preset rule not kept: %v", got)
	}
}

func TestParseKeyRulesErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "rules: [unterminated"},
		{"unknown preset", "preset: fancy"},
		{"unknown category", "rules:\n  invoices: [cost_code_id]"},
		{"empty fields", "rules:\n  direct_costs: []"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseKeyRules([]byte(tt.doc)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestResolveKeyRules(t *testing.T) {
	for _, value := range []string{"", "default", " legacy "} {
		if _, err := ResolveKeyRules(value); err != nil {
			t.Errorf("ResolveKeyRules(%q): %v", value, err)
		}
	}

	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("rules:\n  direct_costs: [cost_code_id, vendor_name]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	rules, err := ResolveKeyRules(path)
	if err != nil {
		t.Fatalf("ResolveKeyRules(file): %v", err)
	}
	if got := rules[core.DirectCosts].Fields; len(got) != 2 {
		t.Fatalf("direct_costs fields = %v", got)
	}

	if _, err := ResolveKeyRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
