package nl2sql

import (
	"fmt"
	"strings"
)

// RejectionKind classifies why a candidate was not accepted.
type RejectionKind string

const (
	RejectNotSelect          RejectionKind = "not-a-select"
	RejectForbiddenKeyword   RejectionKind = "contains-forbidden-keyword"
	RejectStatementSeparator RejectionKind = "contains-statement-separator"
	RejectUnparseableSelect  RejectionKind = "unparseable-select-clause"
	RejectDisallowedColumn   RejectionKind = "disallowed-column"
)

var forbiddenKeywords = []string{
	"insert ", "update ", "delete ", "drop ", "alter ", "create ", "truncate ",
}

// Verdict is the outcome of validating one candidate. When Rejection is empty
// the candidate was accepted and SQL holds it with every query FROM target
// pinned to the profile's table. Joins and comma-separated table lists are
// rejected as unparseable.
type Verdict struct {
	SQL       string
	Rejection RejectionKind
	Detail    string
}

func (v Verdict) Accepted() bool {
	return v.Rejection == ""
}

func reject(kind RejectionKind, detail string) Verdict {
	return Verdict{Rejection: kind, Detail: detail}
}

// Validate applies the read-only policy to a normalized candidate. Expected
// rejections are reported through the Verdict; the error is reserved for a
// malformed profile. Percent signs are left untouched.
func Validate(profile TableProfile, candidate string) (Verdict, error) {
	if err := profile.validate(); err != nil {
		return Verdict{}, err
	}

	sql := strings.TrimSpace(candidate)
	lowered := strings.ToLower(strings.Join(strings.Fields(sql), " "))

	if lowered == "" || !strings.HasPrefix(lowered, "select") {
		return reject(RejectNotSelect, ""), nil
	}
	if strings.Contains(sql, ";") {
		return reject(RejectStatementSeparator, ""), nil
	}
	for _, keyword := range forbiddenKeywords {
		if strings.Contains(lowered, keyword) {
			return reject(RejectForbiddenKeyword, strings.TrimSpace(keyword)), nil
		}
	}

	shape, problem := scanQuery(sql)
	if problem != "" {
		return reject(RejectUnparseableSelect, problem), nil
	}
	selectList := shape.selectList
	if selectList != "*" {
		for _, item := range splitTopLevel(selectList) {
			column := selectedColumn(item)
			if column == "" || !profile.allows(column) {
				return reject(RejectDisallowedColumn, column), nil
			}
		}
	}

	return Verdict{SQL: rewriteTargets(sql, shape.targets, profile.Table)}, nil
}

// selectedColumn reduces one select-list item to the bare column it names:
// the token before the first space with any qualifier and quotes removed.
func selectedColumn(item string) string {
	token := strings.TrimSpace(item)
	if idx := strings.IndexAny(token, " \t"); idx >= 0 {
		token = token[:idx]
	}
	if idx := strings.LastIndex(token, "."); idx >= 0 {
		token = token[idx+1:]
	}
	return strings.Trim(token, `"`)
}

// splitTopLevel splits on commas that are not nested in parentheses or
// quotes.
func splitTopLevel(list string) []string {
	var (
		items []string
		depth int
		quote rune
		start int
	)
	for i, r := range list {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case r == ',' && depth == 0:
			items = append(items, list[start:i])
			start = i + 1
		}
	}
	return append(items, list[start:])
}

// ValidationError is returned by the generator when the model produced a
// candidate that failed the read-only policy.
type ValidationError struct {
	Kind   RejectionKind
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("generated sql rejected: %s", e.Kind)
	}
	return fmt.Sprintf("generated sql rejected: %s (%s)", e.Kind, e.Detail)
}
