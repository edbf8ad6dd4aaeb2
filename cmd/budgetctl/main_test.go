package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	flagBackend, flagDBPath, flagSeedFile, flagKeyRules = "", "", "", ""
	flagJSON, flagXLSX = false, ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("budgetctl %s: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

func TestSeedThenRollup(t *testing.T) {
	db := filepath.Join(t.TempDir(), "budget.db")
	fixture := filepath.Join("..", "..", "internal", "rollup", "testdata", "project.yaml")

	out := run(t, "migrate", "--db", db)
	if !strings.Contains(out, "schema version") {
		t.Errorf("migrate output = %q", out)
	}

	out = run(t, "seed", fixture, "--db", db)
	if !strings.HasPrefix(out, "Seeded ") {
		t.Errorf("seed output = %q", out)
	}

	out = run(t, "rollup", "42", "--backend", "sqlite", "--db", db, "--json")
	var body struct {
		Details []json.RawMessage `json:"details"`
		Count   int               `json:"count"`
	}
	if err := json.Unmarshal([]byte(out), &body); err != nil {
		t.Fatalf("decode rollup json: %v\n%s", err, out)
	}
	if body.Count != 15 || len(body.Details) != 15 {
		t.Errorf("count = %d, details = %d", body.Count, len(body.Details))
	}

	xlsx := filepath.Join(t.TempDir(), "rollup.xlsx")
	out = run(t, "rollup", "42", "--backend", "memory", "--seed", fixture, "--xlsx", xlsx)
	for _, want := range []string{"project 42", "01-100", "Total"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestRollupRejectsInvalidProjectID(t *testing.T) {
	flagBackend, flagDBPath, flagSeedFile, flagKeyRules = "", "", "", ""
	flagJSON, flagXLSX = false, ""
	rootCmd.SetArgs([]string{"rollup", "nope", "--backend", "memory"})
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	if err := rootCmd.Execute(); err == nil {
		t.Fatalf("expected error for invalid project id")
	}
}
