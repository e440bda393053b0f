// Package ingest loads spreadsheet uploads into relational tables, creating
// the table from inferred column types when it does not exist yet.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ErrInvalidUpload marks problems with the uploaded file or its names. The
// HTTP layer reports these as client errors.
var ErrInvalidUpload = errors.New("invalid upload")

type ColumnType string

const (
	TypeInteger   ColumnType = "BIGINT"
	TypeFloat     ColumnType = "FLOAT"
	TypeBoolean   ColumnType = "BOOLEAN"
	TypeTimestamp ColumnType = "TIMESTAMP"
	TypeText      ColumnType = "TEXT"
)

var identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Sheet is a parsed upload with normalized column names. Cell values are
// nil, int64, float64, bool, time.Time or string, matching Types.
type Sheet struct {
	Columns []string
	Types   []ColumnType
	Rows    [][]any
}

// ParseSpreadsheet reads CSV files through DuckDB's CSV sniffer and every
// other file as an XLSX workbook.
func ParseSpreadsheet(ctx context.Context, filename string, data []byte) (Sheet, error) {
	if len(data) == 0 {
		return Sheet{}, fmt.Errorf("%w: file is empty", ErrInvalidUpload)
	}
	var (
		sheet Sheet
		err   error
	)
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		sheet, err = parseCSV(ctx, data)
	} else {
		sheet, err = parseXLSX(data)
	}
	if err != nil {
		return Sheet{}, err
	}
	if len(sheet.Rows) == 0 {
		return Sheet{}, fmt.Errorf("%w: file has no data rows", ErrInvalidUpload)
	}
	columns, err := NormalizeColumns(sheet.Columns)
	if err != nil {
		return Sheet{}, err
	}
	sheet.Columns = columns
	return sheet, nil
}

// NormalizeColumn replaces spaces with underscores and lower-cases the name.
func NormalizeColumn(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}

func NormalizeColumns(names []string) ([]string, error) {
	out := make([]string, len(names))
	seen := make(map[string]bool, len(names))
	for i, name := range names {
		column := NormalizeColumn(name)
		if !identifierPattern.MatchString(column) {
			return nil, fmt.Errorf("%w: column %q is not a valid identifier", ErrInvalidUpload, name)
		}
		if seen[column] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidUpload, column)
		}
		seen[column] = true
		out[i] = column
	}
	return out, nil
}

// NormalizeTableName lower-cases the requested table name and validates it.
func NormalizeTableName(name string) (string, error) {
	table := strings.ToLower(strings.TrimSpace(name))
	if !identifierPattern.MatchString(table) {
		return "", fmt.Errorf("%w: table name %q is not a valid identifier", ErrInvalidUpload, name)
	}
	return table, nil
}

func (s Sheet) hasColumn(name string) bool {
	for _, column := range s.Columns {
		if column == name {
			return true
		}
	}
	return false
}
