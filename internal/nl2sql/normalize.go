package nl2sql

import "strings"

const fence = "```"

var languageTags = map[string]struct{}{
	"sql":        {},
	"psql":       {},
	"pgsql":      {},
	"postgres":   {},
	"postgresql": {},
}

// Normalize reduces a raw model answer to a single-line SQL candidate. When
// the answer contains fenced blocks, the first block mentioning "select" is
// used; otherwise the whole text is. A leading language tag is dropped,
// whitespace runs collapse to one space and one trailing semicolon is removed.
func Normalize(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.Contains(text, fence) {
		parts := strings.Split(text, fence)
		for i := 1; i < len(parts); i += 2 {
			if strings.Contains(strings.ToLower(parts[i]), "select") {
				text = parts[i]
				break
			}
		}
	}

	fields := strings.Fields(text)
	if len(fields) > 1 {
		if _, ok := languageTags[strings.ToLower(fields[0])]; ok {
			fields = fields[1:]
		}
	}
	sql := strings.Join(fields, " ")
	sql = strings.TrimSuffix(sql, ";")
	return strings.TrimSpace(sql)
}

// EscapePercent doubles every percent sign for drivers that treat a bare
// percent as a placeholder marker.
func EscapePercent(sql string) string {
	return strings.ReplaceAll(sql, "%", "%%")
}
