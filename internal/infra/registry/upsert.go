package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/boddenberg/spread-checker-go/internal/domain"
)

// keyColumn is the registry's natural key and the ON CONFLICT target.
const keyColumn = "company_number"

// Pool is the subset of pgxpool.Pool the importer needs. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// batch holds the rows of one COPY keyed on company number. Postgres
// rejects an ON CONFLICT DO UPDATE that touches the same key twice, so a
// company repeated in the extract keeps its first slot and its latest
// values.
type batch struct {
	rows  [][]any
	index map[string]int
}

func newBatch(capacity int) *batch {
	return &batch{
		rows:  make([][]any, 0, capacity),
		index: make(map[string]int, capacity),
	}
}

// add stores c and reports whether it replaced an earlier row.
func (b *batch) add(c *domain.Company) bool {
	if i, ok := b.index[c.Number]; ok {
		b.rows[i] = Row(c)
		return true
	}
	b.index[c.Number] = len(b.rows)
	b.rows = append(b.rows, Row(c))
	return false
}

func (b *batch) size() int { return len(b.rows) }

func (b *batch) reset() {
	b.rows = b.rows[:0]
	clear(b.index)
}

// merger loads a batch into a session temp table with COPY and merges it
// into the registry table. Statements are rendered once per table.
type merger struct {
	table  string
	temp   string
	create string
	merge  string
}

func newMerger(table string) *merger {
	temp := "_registry_load_" + strings.ReplaceAll(table, ".", "_")
	target := sanitizeTable(table)

	updates := make([]string, 0, len(Columns)-1)
	current := make([]string, 0, len(Columns)-1)
	incoming := make([]string, 0, len(Columns)-1)
	for _, col := range Columns {
		if col == keyColumn {
			continue
		}
		id := pgx.Identifier{col}.Sanitize()
		updates = append(updates, id+" = EXCLUDED."+id)
		current = append(current, "t."+id)
		incoming = append(incoming, "EXCLUDED."+id)
	}
	cols := quoteAndJoin(Columns)

	return &merger{
		table: table,
		temp:  temp,
		create: fmt.Sprintf("CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
			pgx.Identifier{temp}.Sanitize(), target),
		// Unchanged companies are left alone so the affected count is the
		// number of new or amended rows.
		merge: fmt.Sprintf("INSERT INTO %s AS t (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s WHERE (%s) IS DISTINCT FROM (%s)",
			target, cols, cols, pgx.Identifier{temp}.Sanitize(),
			pgx.Identifier{keyColumn}.Sanitize(),
			strings.Join(updates, ", "),
			strings.Join(current, ", "),
			strings.Join(incoming, ", "),
		),
	}
}

// apply merges rows in one transaction and returns the rows inserted or
// changed.
func (m *merger) apply(ctx context.Context, pool Pool, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "registry: begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, m.create); err != nil {
		return 0, eris.Wrapf(err, "registry: create load table for %s", m.table)
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{m.temp}, Columns, pgx.CopyFromRows(rows)); err != nil {
		return 0, eris.Wrapf(err, "registry: copy %d rows", len(rows))
	}
	tag, err := tx.Exec(ctx, m.merge)
	if err != nil {
		return 0, eris.Wrapf(err, "registry: merge into %s", m.table)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "registry: commit")
	}
	return tag.RowsAffected(), nil
}

// sanitizeTable quotes a table name, schema-qualified or not.
func sanitizeTable(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

func quoteAndJoin(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}
