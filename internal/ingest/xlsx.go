package ingest

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var missingMarkers = map[string]struct{}{
	"":     {},
	"nan":  {},
	"null": {},
	"none": {},
	"na":   {},
	"n/a":  {},
	"#n/a": {},
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01-02-06",
	"1/2/2006",
	"1/2/06",
	"1/2/06 15:04",
}

// parseXLSX reads the first worksheet. The first row holds the headers;
// cell text is typed per column afterwards.
func parseXLSX(data []byte) (Sheet, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Sheet{}, fmt.Errorf("%w: open workbook: %v", ErrInvalidUpload, err)
	}
	defer func() { _ = file.Close() }()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return Sheet{}, fmt.Errorf("%w: workbook has no sheets", ErrInvalidUpload)
	}
	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return Sheet{}, fmt.Errorf("%w: read sheet %q: %v", ErrInvalidUpload, sheets[0], err)
	}
	if len(rows) == 0 {
		return Sheet{}, fmt.Errorf("%w: sheet %q is empty", ErrInvalidUpload, sheets[0])
	}
	return typeTextRows(rows[0], rows[1:]), nil
}

// typeTextRows converts text cells into typed values. Missing markers become
// nil and fully blank rows are dropped.
func typeTextRows(header []string, body [][]string) Sheet {
	width := len(header)
	cells := make([][]*string, 0, len(body))
	for _, row := range body {
		typed := make([]*string, width)
		blank := true
		for i := 0; i < width && i < len(row); i++ {
			text := strings.TrimSpace(row[i])
			if _, missing := missingMarkers[strings.ToLower(text)]; missing {
				continue
			}
			typed[i] = &text
			blank = false
		}
		if !blank {
			cells = append(cells, typed)
		}
	}

	types := make([]ColumnType, width)
	for col := 0; col < width; col++ {
		values := make([]string, 0, len(cells))
		for _, row := range cells {
			if row[col] != nil {
				values = append(values, *row[col])
			}
		}
		types[col] = inferTextType(values)
	}

	out := make([][]any, len(cells))
	for r, row := range cells {
		values := make([]any, width)
		for col, cell := range row {
			if cell != nil {
				values[col] = convertText(*cell, types[col])
			}
		}
		out[r] = values
	}
	return Sheet{Columns: append([]string(nil), header...), Types: types, Rows: out}
}

func inferTextType(values []string) ColumnType {
	if len(values) == 0 {
		return TypeText
	}
	candidates := []ColumnType{TypeInteger, TypeFloat, TypeBoolean, TypeTimestamp}
	for _, candidate := range candidates {
		ok := true
		for _, value := range values {
			if !textMatches(value, candidate) {
				ok = false
				break
			}
		}
		if ok {
			return candidate
		}
	}
	return TypeText
}

func textMatches(value string, columnType ColumnType) bool {
	switch columnType {
	case TypeInteger:
		_, err := strconv.ParseInt(value, 10, 64)
		return err == nil
	case TypeFloat:
		_, err := strconv.ParseFloat(value, 64)
		return err == nil
	case TypeBoolean:
		lower := strings.ToLower(value)
		return lower == "true" || lower == "false"
	case TypeTimestamp:
		_, ok := parseTimestamp(value)
		return ok
	default:
		return true
	}
}

func convertText(value string, columnType ColumnType) any {
	switch columnType {
	case TypeInteger:
		n, _ := strconv.ParseInt(value, 10, 64)
		return n
	case TypeFloat:
		f, _ := strconv.ParseFloat(value, 64)
		return f
	case TypeBoolean:
		return strings.EqualFold(value, "true")
	case TypeTimestamp:
		ts, _ := parseTimestamp(value)
		return ts
	default:
		return value
	}
}

func parseTimestamp(value string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
