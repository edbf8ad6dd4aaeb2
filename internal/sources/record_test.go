package sources

import "testing"

func TestRecordAccessors(t *testing.T) {
	r := Record{
		"id":         int64(12),
		"amount":     "1500.50",
		"amount_f":   2500.25,
		"amount_i":   300,
		"code":       []byte(" 01-100 "),
		"null_field": nil,
		"flag":       true,
	}

	if got := r.String("id"); got != "12" {
		t.Errorf("String(id) = %q, want 12", got)
	}
	if got := r.String("code"); got != "01-100" {
		t.Errorf("String(code) = %q, want 01-100", got)
	}
	if got := r.String("null_field"); got != "" {
		t.Errorf("String(null_field) = %q, want empty", got)
	}
	if got := r.String("missing"); got != "" {
		t.Errorf("String(missing) = %q, want empty", got)
	}
	if got := r.String("amount_f"); got != "2500.25" {
		t.Errorf("String(amount_f) = %q", got)
	}
	if got := r.String("flag"); got != "true" {
		t.Errorf("String(flag) = %q", got)
	}

	if got := r.Float("amount"); got != 1500.50 {
		t.Errorf("Float(amount) = %v", got)
	}
	if got := r.Float("amount_f"); got != 2500.25 {
		t.Errorf("Float(amount_f) = %v", got)
	}
	if got := r.Float("amount_i"); got != 300 {
		t.Errorf("Float(amount_i) = %v", got)
	}
	if got := r.Float("code"); got != 0 {
		t.Errorf("Float(code) = %v, want 0", got)
	}

	if got := r.Int("id"); got != 12 {
		t.Errorf("Int(id) = %d", got)
	}
	if got := r.Int("amount_i"); got != 300 {
		t.Errorf("Int(amount_i) = %d", got)
	}
}

func TestRecordFirst(t *testing.T) {
	r := Record{"a": "", "b": nil, "c": "x", "d": "y"}
	if got := r.First("a", "b", "c", "d"); got != "x" {
		t.Fatalf("First = %q, want x", got)
	}
	if got := r.First("a", "b"); got != "" {
		t.Fatalf("First = %q, want empty", got)
	}
}

func TestQueryProjectColumn(t *testing.T) {
	if got := (Query{}).ProjectColumn(); got != DefaultProjectField {
		t.Fatalf("ProjectColumn() = %q", got)
	}
	q := Query{ProjectField: "parent.project_id"}
	if got := q.ProjectColumn(); got != "parent.project_id" {
		t.Fatalf("ProjectColumn() = %q", got)
	}
	j := Join{Alias: "cc"}
	if got := j.Qualified("description"); got != "cc.description" {
		t.Fatalf("Qualified = %q", got)
	}
}
