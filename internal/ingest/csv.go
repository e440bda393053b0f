package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

// parseCSV loads the file into an in-memory DuckDB and lets read_csv_auto
// detect the delimiter and column types.
func parseCSV(ctx context.Context, data []byte) (Sheet, error) {
	workDir, err := os.MkdirTemp("", "demanddesk-upload-")
	if err != nil {
		return Sheet{}, fmt.Errorf("create upload temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(workDir) }()

	localPath := filepath.Join(workDir, "upload.csv")
	if err := os.WriteFile(localPath, data, 0o600); err != nil {
		return Sheet{}, fmt.Errorf("write local csv file: %w", err)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return Sheet{}, fmt.Errorf("open duckdb: %w", err)
	}
	defer func() { _ = db.Close() }()

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM read_csv_auto(%s, header = true)`, quoteString(localPath)))
	if err != nil {
		return Sheet{}, fmt.Errorf("%w: read csv: %v", ErrInvalidUpload, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Sheet{}, fmt.Errorf("csv columns: %w", err)
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return Sheet{}, fmt.Errorf("csv column types: %w", err)
	}
	types := make([]ColumnType, len(columnTypes))
	for i, ct := range columnTypes {
		types[i] = duckDBColumnType(ct.DatabaseTypeName())
	}

	sheet := Sheet{Columns: columns, Types: types}
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Sheet{}, fmt.Errorf("scan csv row: %w", err)
		}
		for i, value := range values {
			values[i] = normalizeDuckDBValue(value, types[i])
		}
		sheet.Rows = append(sheet.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return Sheet{}, fmt.Errorf("%w: iterate csv rows: %v", ErrInvalidUpload, err)
	}
	return sheet, nil
}

func duckDBColumnType(name string) ColumnType {
	switch strings.ToUpper(name) {
	case "TINYINT", "SMALLINT", "INTEGER", "BIGINT", "UTINYINT", "USMALLINT", "UINTEGER":
		return TypeInteger
	case "FLOAT", "DOUBLE", "REAL":
		return TypeFloat
	case "BOOLEAN":
		return TypeBoolean
	case "DATE", "TIMESTAMP", "TIMESTAMP_S", "TIMESTAMP_MS", "TIMESTAMP_NS", "TIMESTAMPTZ", "TIMESTAMP WITH TIME ZONE":
		return TypeTimestamp
	default:
		return TypeText
	}
}

func normalizeDuckDBValue(value any, columnType ColumnType) any {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return string(v)
	case float32:
		if math.IsNaN(float64(v)) {
			return nil
		}
		return float64(v)
	case float64:
		if math.IsNaN(v) {
			return nil
		}
		return v
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case int64, bool, string, time.Time:
		return v
	default:
		if columnType == TypeText {
			return fmt.Sprint(v)
		}
		return v
	}
}

func quoteString(value string) string {
	return `'` + strings.ReplaceAll(value, `'`, `''`) + `'`
}
