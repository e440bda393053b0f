package nl2sql

import (
	"regexp"
	"strings"
)

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenQuotedIdent
	tokenPunct
)

// token is one lexical element of a candidate. String literals, comments and
// operators are not emitted.
type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
}

func (t token) is(word string) bool {
	return t.kind == tokenWord && strings.EqualFold(t.text, word)
}

var dollarQuotePattern = regexp.MustCompile(`^\$[A-Za-z_]*\$`)

// clauseKeywords end a FROM clause at the level they appear in.
var clauseKeywords = map[string]bool{
	"where": true, "group": true, "order": true, "having": true, "limit": true,
	"offset": true, "union": true, "intersect": true, "except": true,
	"fetch": true, "window": true, "for": true, "on": true, "using": true,
}

func isWordByte(b byte) bool {
	return b == '_' || b >= 0x80 ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// tokenize splits sql into words, quoted identifiers and the punctuation
// that shapes a query: parentheses, commas and dots.
func tokenize(sql string) []token {
	var tokens []token
	for i := 0; i < len(sql); {
		b := sql[i]
		switch {
		case b == '\'':
			escapes := i > 0 && (sql[i-1] == 'e' || sql[i-1] == 'E') && (i < 2 || !isWordByte(sql[i-2]))
			i = skipString(sql, i, escapes)
		case b == '"':
			end := strings.IndexByte(sql[i+1:], '"')
			if end < 0 {
				end = len(sql) - i - 1
			}
			tokens = append(tokens, token{kind: tokenQuotedIdent, text: sql[i+1 : i+1+end], start: i, end: min(i+2+end, len(sql))})
			i = min(i+2+end, len(sql))
		case b == '-' && strings.HasPrefix(sql[i:], "--"):
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				end = len(sql) - i
			}
			i += end
		case b == '/' && strings.HasPrefix(sql[i:], "/*"):
			end := strings.Index(sql[i+2:], "*/")
			if end < 0 {
				i = len(sql)
			} else {
				i += end + 4
			}
		case b == '$' && dollarQuotePattern.MatchString(sql[i:]):
			tag := dollarQuotePattern.FindString(sql[i:])
			end := strings.Index(sql[i+len(tag):], tag)
			if end < 0 {
				i = len(sql)
			} else {
				i += len(tag) + end + len(tag)
			}
		case isWordByte(b):
			start := i
			for i < len(sql) && isWordByte(sql[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenWord, text: sql[start:i], start: start, end: i})
		case b == '(' || b == ')' || b == ',' || b == '.':
			tokens = append(tokens, token{kind: tokenPunct, text: string(b), start: i, end: i + 1})
			i++
		default:
			i++
		}
	}
	return tokens
}

// skipString returns the index just past the literal opening at start. A
// doubled quote stays inside the literal.
func skipString(sql string, start int, backslashEscapes bool) int {
	for i := start + 1; i < len(sql); i++ {
		switch sql[i] {
		case '\\':
			if backslashEscapes {
				i++
			}
		case '\'':
			if i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(sql)
}

// queryShape is what the scanner learned about a candidate: the select list
// of the outermost query and the source spans of every query FROM target.
type queryShape struct {
	selectList string
	targets    [][2]int
}

type scanLevel struct {
	query  bool
	inFrom bool
}

// scanQuery finds every FROM that belongs to a SELECT, at any nesting depth,
// and leaves function syntax such as EXTRACT(YEAR FROM x) alone. A query
// that reads more than one table, a missing or non-table FROM target, and
// any JOIN are reported as a rejection detail.
func scanQuery(sql string) (queryShape, string) {
	tokens := tokenize(sql)
	if len(tokens) == 0 || !tokens[0].is("select") {
		return queryShape{}, "select"
	}

	var shape queryShape
	outerFrom := -1
	levels := []scanLevel{{}}
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		level := &levels[len(levels)-1]
		switch {
		case tok.kind == tokenPunct && tok.text == "(":
			levels = append(levels, scanLevel{})
		case tok.kind == tokenPunct && tok.text == ")":
			if len(levels) > 1 {
				levels = levels[:len(levels)-1]
			}
		case tok.kind == tokenPunct && tok.text == ",":
			if level.inFrom {
				return queryShape{}, "multiple tables"
			}
		case tok.is("join"):
			return queryShape{}, "join"
		case tok.is("select"):
			level.query = true
			level.inFrom = false
		case tok.is("from") && level.query:
			end, ok := tableRefEnd(tokens, i+1)
			if !ok {
				return queryShape{}, "missing table"
			}
			shape.targets = append(shape.targets, [2]int{tok.start, tokens[end-1].end})
			if len(levels) == 1 && outerFrom < 0 {
				outerFrom = tok.start
			}
			level.inFrom = true
			i = end - 1
		case tok.kind == tokenWord && clauseKeywords[strings.ToLower(tok.text)]:
			level.inFrom = false
		}
	}
	if outerFrom < 0 {
		return queryShape{}, "missing from"
	}
	shape.selectList = strings.TrimSpace(sql[tokens[0].end:outerFrom])
	return shape, ""
}

// tableRefEnd returns the index past a possibly qualified table name that
// starts at tokens[i]. Table functions and derived tables are not names.
func tableRefEnd(tokens []token, i int) (int, bool) {
	if !isName(tokens, i) {
		return 0, false
	}
	i++
	for i+1 < len(tokens) && tokens[i].kind == tokenPunct && tokens[i].text == "." && isName(tokens, i+1) {
		i += 2
	}
	if i < len(tokens) && tokens[i].kind == tokenPunct && tokens[i].text == "(" {
		return 0, false
	}
	return i, true
}

func isName(tokens []token, i int) bool {
	if i >= len(tokens) {
		return false
	}
	switch tokens[i].kind {
	case tokenQuotedIdent:
		return true
	case tokenWord:
		lowered := strings.ToLower(tokens[i].text)
		return !clauseKeywords[lowered] && lowered != "select" && lowered != "from"
	}
	return false
}

// rewriteTargets replaces every span with "FROM <table>".
func rewriteTargets(sql string, targets [][2]int, table string) string {
	var b strings.Builder
	last := 0
	for _, span := range targets {
		b.WriteString(sql[last:span[0]])
		b.WriteString("FROM ")
		b.WriteString(table)
		last = span[1]
	}
	b.WriteString(sql[last:])
	return b.String()
}
