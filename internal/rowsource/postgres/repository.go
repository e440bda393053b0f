package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/demanddesk/demanddesk/internal/rowsource"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) HealthCheck(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

// QueryReadOnly runs query inside a read-only transaction and returns every
// row as a column map.
func (r *Repository) QueryReadOnly(ctx context.Context, query string, args ...any) ([]rowsource.Row, error) {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin read-only tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	result, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit read-only tx: %w", err)
	}
	return result, nil
}

// QueryGenerated executes SQL produced by the natural-language generator.
// The generator doubles percent signs for format-style drivers; pgx binds
// positional parameters, so they are collapsed back first.
func (r *Repository) QueryGenerated(ctx context.Context, generated string) ([]rowsource.Row, error) {
	return r.QueryReadOnly(ctx, strings.ReplaceAll(generated, "%%", "%"))
}

func (r *Repository) DistinctRoles(ctx context.Context, table string) ([]string, error) {
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", rowsource.ErrInvalidIdentifier, table)
	}
	rows, err := r.QueryReadOnly(ctx, fmt.Sprintf(`SELECT DISTINCT role FROM %s WHERE role IS NOT NULL ORDER BY role`, quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("list distinct roles: %w", err)
	}
	roles := make([]string, 0, len(rows))
	for _, row := range rows {
		if role := strings.TrimSpace(fmt.Sprint(row["role"])); role != "" {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

func (r *Repository) ListTables(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'public'
ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table rows: %w", err)
	}
	return tables, nil
}

// ListRows returns up to limit rows of table in storage order.
func (r *Repository) ListRows(ctx context.Context, table string, limit int) ([]rowsource.Row, error) {
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", rowsource.ErrInvalidIdentifier, table)
	}
	if limit <= 0 {
		limit = 100
	}
	return r.QueryReadOnly(ctx, fmt.Sprintf(`SELECT * FROM %s LIMIT $1`, quoteIdent(table)), limit)
}

func scanRows(rows *sql.Rows) ([]rowsource.Row, error) {
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read result columns: %w", err)
	}
	result := make([]rowsource.Row, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		targets := make([]any, len(columns))
		for i := range values {
			targets[i] = &values[i]
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		row := make(rowsource.Row, len(columns))
		for i, column := range columns {
			row[column] = normalizeValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate result rows: %w", err)
	}
	return result, nil
}

func normalizeValue(value any) any {
	switch v := value.(type) {
	case []byte:
		return decodeJSONText(string(v))
	case string:
		return decodeJSONText(v)
	default:
		return v
	}
}

// decodeJSONText decodes strings that hold a JSON array or object and leaves
// everything else as text.
func decodeJSONText(text string) any {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || (trimmed[0] != '[' && trimmed[0] != '{') {
		return text
	}
	var decoded any
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return text
	}
	return decoded
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
