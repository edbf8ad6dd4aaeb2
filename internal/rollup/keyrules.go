package rollup

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"budgetrollup/internal/core"
)

const (
	PresetDefault = "default"
	PresetLegacy  = "legacy"
)

var fieldPattern = regexp.MustCompile(`^([a-z_][a-z0-9_]*\.)?[a-z_][a-z0-9_]*$`)

// KeyRule is the ordered list of record fields tried when deriving a
// budget code; the first non-empty value wins, otherwise the row lands in
// the unattributed ("") bucket.
type KeyRule struct {
	Fields []string `yaml:"fields"`
}

// Key extracts the budget code from a record.
func (k KeyRule) Key(get func(field string) string) string {
	for _, f := range k.Fields {
		if v := get(f); v != "" {
			return v
		}
	}
	return ""
}

// CostCodeOnly reports whether every field in the rule is a cost-code
// reference, so keys from different categories share one vocabulary.
func (k KeyRule) CostCodeOnly() bool {
	for _, f := range k.Fields {
		if !strings.HasSuffix(f, "cost_code_id") {
			return false
		}
	}
	return true
}

// KeyRules maps each sourced category to its key extraction rule.
type KeyRules map[core.DetailType]KeyRule

// DefaultKeyRules keys every category by cost code only. Rows without a
// cost-code reference fall into the unattributed bucket instead of being
// keyed by a contract or vendor number.
func DefaultKeyRules() KeyRules {
	return KeyRules{
		core.OriginalBudget:            {Fields: []string{"cost_code_id"}},
		core.BudgetChanges:             {Fields: []string{"cost_code_id", "line.cost_code_id"}},
		core.PrimeContractChangeOrders: {Fields: []string{"cost_code_id"}},
		core.Commitments:               {Fields: []string{"cost_code_id"}},
		core.CommitmentChangeOrders:    {Fields: []string{"cost_code_id"}},
		core.ChangeEvents:              {Fields: []string{"cost_code_id"}},
		core.DirectCosts:               {Fields: []string{"cost_code_id"}},
	}
}

// LegacyKeyRules reproduces the historical grouping where some categories
// fall back to contract or vendor numbers. Prime-contract change orders are
// keyed by contract number and will not line up with cost-code keyed rows.
func LegacyKeyRules() KeyRules {
	return KeyRules{
		core.OriginalBudget:            {Fields: []string{"cost_code_id"}},
		core.BudgetChanges:             {Fields: []string{"cost_code_id", "line.cost_code_id"}},
		core.PrimeContractChangeOrders: {Fields: []string{"parent.contract_number"}},
		core.Commitments:               {Fields: []string{"cost_code_id", "parent.contract_number"}},
		core.CommitmentChangeOrders:    {Fields: []string{"cost_code_id", "contract_number"}},
		core.ChangeEvents:              {Fields: []string{"cost_code_id", "vendor_name"}},
		core.DirectCosts:               {Fields: []string{"cost_code_id", "vendor_name"}},
	}
}

// Validate checks that every sourced category has a usable rule.
func (r KeyRules) Validate() error {
	var problems []string
	for _, dt := range core.DetailTypes() {
		if dt == core.ForecastToComplete {
			continue
		}
		rule, ok := r[dt]
		if !ok || len(rule.Fields) == 0 {
			problems = append(problems, fmt.Sprintf("%s: no key fields", dt))
			continue
		}
		for _, f := range rule.Fields {
			if !fieldPattern.MatchString(f) {
				problems = append(problems, fmt.Sprintf("%s: invalid field %q", dt, f))
			}
		}
	}
	for dt := range r {
		if !dt.IsValid() || dt == core.ForecastToComplete {
			problems = append(problems, fmt.Sprintf("%s: not a sourced category", dt))
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("invalid key rules:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// MixedCategories lists categories whose rule can key on something other
// than a cost code.
func (r KeyRules) MixedCategories() []core.DetailType {
	var out []core.DetailType
	for _, dt := range core.DetailTypes() {
		if rule, ok := r[dt]; ok && !rule.CostCodeOnly() {
			out = append(out, dt)
		}
	}
	return out
}

type keyRulesFile struct {
	Preset string              `yaml:"preset"`
	Rules  map[string][]string `yaml:"rules"`
}

// ParseKeyRules decodes a YAML rule file. Rules not listed in the file are
// taken from the named preset (default when omitted).
//
//	preset: default
//	rules:
//	  direct_costs: [cost_code_id, vendor_name]
func ParseKeyRules(data []byte) (KeyRules, error) {
	var doc keyRulesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode key rules: %w", err)
	}

	rules, err := presetRules(doc.Preset)
	if err != nil {
		return nil, err
	}
	for name, fields := range doc.Rules {
		rules[core.DetailType(name)] = KeyRule{Fields: fields}
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// ResolveKeyRules accepts a preset name or a path to a YAML rule file.
func ResolveKeyRules(value string) (KeyRules, error) {
	switch strings.TrimSpace(value) {
	case "", PresetDefault:
		return DefaultKeyRules(), nil
	case PresetLegacy:
		return LegacyKeyRules(), nil
	}
	data, err := os.ReadFile(value)
	if err != nil {
		return nil, fmt.Errorf("read key rules %s: %w", value, err)
	}
	return ParseKeyRules(data)
}

func presetRules(name string) (KeyRules, error) {
	switch name {
	case "", PresetDefault:
		return DefaultKeyRules(), nil
	case PresetLegacy:
		return LegacyKeyRules(), nil
	default:
		return nil, fmt.Errorf("unknown key rule preset %q", name)
	}
}
