package ingest

import (
	"fmt"
	"strings"
)

// upsertKeyCandidates are checked in order; the first column present in the
// upload becomes the conflict target.
var upsertKeyCandidates = []string{"id", "rolecode", "project_id"}

func ChooseUpsertKey(sheet Sheet) string {
	for _, key := range upsertKeyCandidates {
		if sheet.hasColumn(key) {
			return key
		}
	}
	return ""
}

// BuildCreateTable renders the DDL for a table that does not exist yet. An id
// column becomes the primary key; otherwise a serial internal_id is added. A
// non-id upsert key gets a unique constraint so ON CONFLICT can target it.
func BuildCreateTable(table string, sheet Sheet, upsertKey string) string {
	defs := make([]string, 0, len(sheet.Columns)+2)
	hasID := sheet.hasColumn("id")
	if !hasID {
		defs = append(defs, "internal_id SERIAL PRIMARY KEY")
	}
	for i, column := range sheet.Columns {
		defs = append(defs, fmt.Sprintf("%s %s", quoteIdent(column), sheet.Types[i]))
	}
	if hasID {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", quoteIdent("id")))
	}
	if upsertKey != "" && upsertKey != "id" {
		defs = append(defs, fmt.Sprintf("UNIQUE (%s)", quoteIdent(upsertKey)))
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
}

// BuildWriteStatement renders the per-row statement. With an upsert key it
// returns one boolean column that is true for a fresh insert.
func BuildWriteStatement(table string, columns []string, upsertKey string) string {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = quoteIdent(column)
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	if upsertKey == "" {
		return insert
	}

	updates := make([]string, 0, len(columns))
	for _, column := range columns {
		if column == upsertKey {
			continue
		}
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", quoteIdent(column), quoteIdent(column)))
	}
	if len(updates) == 0 {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", quoteIdent(upsertKey), quoteIdent(upsertKey)))
	}
	return fmt.Sprintf("%s ON CONFLICT (%s) DO UPDATE SET %s RETURNING (xmax = 0) AS inserted",
		insert, quoteIdent(upsertKey), strings.Join(updates, ", "))
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
