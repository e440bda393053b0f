package nl2sql

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/demanddesk/demanddesk/internal/llm"
)

type stubRoles struct {
	roles []string
	err   error
	table string
}

func (s *stubRoles) DistinctRoles(_ context.Context, table string) ([]string, error) {
	s.table = table
	return s.roles, s.err
}

type recordingCompleter struct {
	response string
	err      error
	prompts  []string
}

func (c *recordingCompleter) Complete(_ context.Context, prompt string) (string, error) {
	c.prompts = append(c.prompts, prompt)
	return c.response, c.err
}

func newTestGenerator(completer llm.Completer, roles RoleSource) *Generator {
	return &Generator{
		Completer:     completer,
		Roles:         roles,
		Catalog:       NewCatalog(TableProfile{Table: "employees", Columns: []string{"id", "name", "skills", "role"}}),
		LLMEnabled:    true,
		FallbackRoles: []string{"Backend Engineer"},
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestGenerateFencedAnswerEndToEnd(t *testing.T) {
	completer := &recordingCompleter{
		response: "```sql\nSELECT id, name, role FROM employees WHERE role ILIKE '%Frontend%';\n```",
	}
	roles := &stubRoles{roles: []string{"Sr. Frontend Developer", " ", "React Developer"}}
	g := newTestGenerator(completer, roles)

	sql, err := g.Generate(context.Background(), "I need a React frontend developer", "employees")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	want := "SELECT id, name, role FROM employees WHERE role ILIKE '%%Frontend%%'"
	if sql != want {
		t.Fatalf("Generate() = %q, want %q", sql, want)
	}
	if len(completer.prompts) != 1 {
		t.Fatalf("completion calls = %d, want 1", len(completer.prompts))
	}
	if roles.table != "employees" {
		t.Fatalf("roles table = %q", roles.table)
	}
	if !strings.Contains(completer.prompts[0], "- React Developer") {
		t.Fatalf("prompt missing fetched roles:\n%s", completer.prompts[0])
	}
}

func TestGenerateDropIsNotASelect(t *testing.T) {
	g := newTestGenerator(&recordingCompleter{response: "DROP TABLE employees"}, nil)
	_, err := g.Generate(context.Background(), "remove everyone", "employees")

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("Generate() error = %v, want ValidationError", err)
	}
	if validationErr.Kind != RejectNotSelect {
		t.Fatalf("Kind = %q, want %q", validationErr.Kind, RejectNotSelect)
	}
}

func TestGenerateDisallowedColumn(t *testing.T) {
	g := newTestGenerator(&recordingCompleter{response: "SELECT secret_column FROM employees"}, nil)
	_, err := g.Generate(context.Background(), "show secrets", "employees")

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) || validationErr.Kind != RejectDisallowedColumn {
		t.Fatalf("Generate() error = %v, want disallowed-column", err)
	}
}

func TestGeneratePinsTableAndEscapesOnce(t *testing.T) {
	g := newTestGenerator(&recordingCompleter{response: "SELECT * FROM staff WHERE name LIKE 'A%'"}, nil)
	sql, err := g.Generate(context.Background(), "names starting with A", "employees")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if sql != "SELECT * FROM employees WHERE name LIKE 'A%%'" {
		t.Fatalf("Generate() = %q", sql)
	}
}

func TestGenerateKeepsLiteralText(t *testing.T) {
	g := newTestGenerator(&recordingCompleter{response: "SELECT id, name FROM employees WHERE role ILIKE '%from Berlin%'"}, nil)
	sql, err := g.Generate(context.Background(), "people from Berlin", "employees")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if sql != "SELECT id, name FROM employees WHERE role ILIKE '%%from Berlin%%'" {
		t.Fatalf("Generate() = %q", sql)
	}
}

func TestGenerateRejectsExtraTables(t *testing.T) {
	for _, response := range []string{
		"SELECT s.name FROM employees, secrets s",
		"SELECT e.name FROM employees JOIN pg_authid e ON true",
		"SELECT id, name FROM",
	} {
		g := newTestGenerator(&recordingCompleter{response: response}, nil)
		_, err := g.Generate(context.Background(), "anyone", "employees")
		var rejected *ValidationError
		if !errors.As(err, &rejected) || rejected.Kind != RejectUnparseableSelect {
			t.Fatalf("Generate(%q) error = %v, want %s", response, err, RejectUnparseableSelect)
		}
	}
}

func TestGenerateFallsBackWhenRoleLookupFails(t *testing.T) {
	completer := &recordingCompleter{response: "SELECT id FROM employees"}
	g := newTestGenerator(completer, &stubRoles{err: errors.New("relation does not exist")})

	if _, err := g.Generate(context.Background(), "anyone", "employees"); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(completer.prompts[0], "- Backend Engineer") {
		t.Fatalf("prompt missing fallback roles:\n%s", completer.prompts[0])
	}
}

func TestGenerateCompletionFailure(t *testing.T) {
	cause := errors.New("timeout")
	g := newTestGenerator(&recordingCompleter{err: cause}, nil)
	_, err := g.Generate(context.Background(), "anyone", "employees")
	if !errors.Is(err, ErrGenerationFailed) || !errors.Is(err, cause) {
		t.Fatalf("Generate() error = %v, want generation failure wrapping cause", err)
	}
}

func TestGenerateFenceWithoutQueryIsRejected(t *testing.T) {
	g := newTestGenerator(&recordingCompleter{response: "```\n```"}, nil)
	_, err := g.Generate(context.Background(), "anyone", "employees")
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) || validationErr.Kind != RejectNotSelect {
		t.Fatalf("Generate() error = %v, want not-a-select", err)
	}
}

func TestGenerateWhitespaceAnswerIsGenerationFailure(t *testing.T) {
	g := newTestGenerator(&recordingCompleter{response: "  \n "}, nil)
	_, err := g.Generate(context.Background(), "anyone", "employees")
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("Generate() error = %v, want ErrGenerationFailed", err)
	}
}

func TestGenerateDisabled(t *testing.T) {
	completer := &recordingCompleter{response: "SELECT id FROM employees"}
	g := newTestGenerator(completer, nil)
	g.LLMEnabled = false

	_, err := g.Generate(context.Background(), "anyone", "employees")
	if !errors.Is(err, ErrGenerationFailed) || !errors.Is(err, llm.ErrDisabled) {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(completer.prompts) != 0 {
		t.Fatal("completer should not be called when disabled")
	}
}

func TestGenerateInputErrors(t *testing.T) {
	g := newTestGenerator(&recordingCompleter{}, nil)
	if _, err := g.Generate(context.Background(), "   ", "employees"); !errors.Is(err, ErrEmptyTask) {
		t.Fatalf("Generate() error = %v, want ErrEmptyTask", err)
	}
	if _, err := g.Generate(context.Background(), "x", "payroll"); !errors.Is(err, ErrUnknownTable) {
		t.Fatalf("Generate() error = %v, want ErrUnknownTable", err)
	}
}
