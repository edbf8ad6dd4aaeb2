package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"budgetrollup/internal/sources"

	_ "modernc.org/sqlite"
)

// SQLiteRepository serves source reads from a SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

var _ sources.Reader = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks that the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Fetch implements sources.Reader.
func (r *SQLiteRepository) Fetch(ctx context.Context, q sources.Query) ([]sources.Record, error) {
	stmt, args, err := buildSelect(q)
	if err != nil {
		return nil, fmt.Errorf("build query for %s: %w", q.Collection, err)
	}

	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", q.Collection, err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns of %s: %w", q.Collection, err)
	}

	var out []sources.Record
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", q.Collection, err)
		}
		rec := make(sources.Record, len(cols))
		for i, c := range cols {
			rec[c] = values[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", q.Collection, err)
	}

	slog.DebugContext(ctx, "Source query completed",
		"collection", q.Collection,
		"project_id", q.ProjectID,
		"rows", len(out))

	return out, nil
}

// Seed inserts every fixture row in one transaction. Existing rows with the
// same primary key are replaced.
func (r *SQLiteRepository) Seed(ctx context.Context, f *sources.Fixture) (int, error) {
	known := make(map[string]bool, len(sources.Collections))
	for _, t := range sources.Collections {
		known[t] = true
	}
	for table := range f.Tables {
		if !known[table] {
			return 0, fmt.Errorf("unknown table %q in fixture", table)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	inserted := 0
	for _, table := range sources.Collections {
		for _, row := range f.Tables[table] {
			stmt, args, err := buildInsert(table, row)
			if err != nil {
				return 0, err
			}
			if _, err := tx.ExecContext(ctx, stmt, args...); err != nil {
				return 0, fmt.Errorf("insert into %s: %w", table, err)
			}
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit seed transaction: %w", err)
	}

	slog.InfoContext(ctx, "Fixture seeded", "rows", inserted)
	return inserted, nil
}

func buildInsert(table string, row sources.Record) (string, []any, error) {
	cols := make([]string, 0, len(row))
	for c := range row {
		if !identPattern.MatchString(c) {
			return "", nil, fmt.Errorf("invalid column %q for %s", c, table)
		}
		cols = append(cols, c)
	}
	if len(cols) == 0 {
		return "", nil, fmt.Errorf("empty row for %s", table)
	}
	sort.Strings(cols)

	quoted := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, c := range cols {
		quoted[i] = quote(c)
		args[i] = row[c]
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	stmt := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		quote(table), strings.Join(quoted, ", "), placeholders)
	return stmt, args, nil
}
