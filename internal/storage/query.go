package storage

import (
	"fmt"
	"regexp"
	"strings"

	"budgetrollup/internal/sources"
)

const baseAlias = "t"

var identPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// buildSelect renders a sources.Query as a parameterized SELECT. Every
// identifier is validated against identPattern; values are always bound.
func buildSelect(q sources.Query) (string, []any, error) {
	if !identPattern.MatchString(q.Collection) {
		return "", nil, fmt.Errorf("invalid collection name %q", q.Collection)
	}

	aliases := map[string]bool{baseAlias: true}
	cols := []string{quote(baseAlias) + ".*"}
	var joins []string

	for _, j := range q.Joins {
		if !identPattern.MatchString(j.Collection) || !identPattern.MatchString(j.Alias) {
			return "", nil, fmt.Errorf("invalid join %s as %s", j.Collection, j.Alias)
		}
		if aliases[j.Alias] {
			return "", nil, fmt.Errorf("duplicate join alias %q", j.Alias)
		}
		if len(j.Fields) == 0 {
			return "", nil, fmt.Errorf("join %s selects no fields", j.Alias)
		}
		local, err := columnRef(j.LocalField, aliases)
		if err != nil {
			return "", nil, fmt.Errorf("join %s: %w", j.Alias, err)
		}
		if !identPattern.MatchString(j.ForeignField) {
			return "", nil, fmt.Errorf("join %s: invalid foreign field %q", j.Alias, j.ForeignField)
		}
		aliases[j.Alias] = true

		for _, f := range j.Fields {
			if !identPattern.MatchString(f) {
				return "", nil, fmt.Errorf("join %s: invalid field %q", j.Alias, f)
			}
			cols = append(cols, fmt.Sprintf("%s.%s AS %s", quote(j.Alias), quote(f), quote(j.Qualified(f))))
		}
		joins = append(joins, fmt.Sprintf("LEFT JOIN %s %s ON %s.%s = %s",
			quote(j.Collection), quote(j.Alias), quote(j.Alias), quote(j.ForeignField), local))
	}

	projectCol, err := columnRef(q.ProjectColumn(), aliases)
	if err != nil {
		return "", nil, fmt.Errorf("project filter: %w", err)
	}
	where := []string{projectCol + " = ?"}
	args := []any{q.ProjectID}

	for _, p := range q.Where {
		ref, err := columnRef(p.Field, aliases)
		if err != nil {
			return "", nil, fmt.Errorf("predicate: %w", err)
		}
		if len(p.In) == 0 {
			// An empty IN list matches nothing.
			where = append(where, "1 = 0")
			continue
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(p.In)), ", ")
		where = append(where, fmt.Sprintf("%s IN (%s)", ref, placeholders))
		for _, v := range p.In {
			args = append(args, v)
		}
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM ")
	sb.WriteString(quote(q.Collection) + " " + quote(baseAlias))
	for _, j := range joins {
		sb.WriteString(" ")
		sb.WriteString(j)
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(strings.Join(where, " AND "))
	sb.WriteString(" ORDER BY " + quote(baseAlias) + `."id"`)

	return sb.String(), args, nil
}

// columnRef resolves "field" against the base table and "alias.field"
// against a previously declared join.
func columnRef(field string, aliases map[string]bool) (string, error) {
	alias, name := baseAlias, field
	if i := strings.IndexByte(field, '.'); i >= 0 {
		alias, name = field[:i], field[i+1:]
	}
	if !aliases[alias] {
		return "", fmt.Errorf("unknown alias %q in %q", alias, field)
	}
	if !identPattern.MatchString(name) {
		return "", fmt.Errorf("invalid field %q", field)
	}
	return quote(alias) + "." + quote(name), nil
}

func quote(ident string) string {
	return `"` + ident + `"`
}
