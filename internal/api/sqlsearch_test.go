package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/demanddesk/demanddesk/internal/llm"
	"github.com/demanddesk/demanddesk/internal/nl2sql"
	"github.com/demanddesk/demanddesk/internal/rowsource"
)

type fakeGenerator struct {
	sql   string
	err   error
	table string
	task  string
}

func (f *fakeGenerator) Generate(_ context.Context, task, table string) (string, error) {
	f.task = task
	f.table = table
	return f.sql, f.err
}

type fakeRows struct {
	rows      []rowsource.Row
	tables    []string
	err       error
	lastQuery string
	lastLimit int
}

func (f *fakeRows) QueryGenerated(_ context.Context, generated string) ([]rowsource.Row, error) {
	f.lastQuery = generated
	return f.rows, f.err
}

func (f *fakeRows) ListTables(context.Context) ([]string, error) {
	return f.tables, f.err
}

func (f *fakeRows) ListRows(_ context.Context, table string, limit int) ([]rowsource.Row, error) {
	f.lastQuery = table
	f.lastLimit = limit
	return f.rows, f.err
}

func TestDemandSQLSearchReturnsGeneratedSQLAndRows(t *testing.T) {
	generator := &fakeGenerator{sql: `SELECT id, role FROM demands WHERE role ILIKE '%%Frontend%%'`}
	rows := &fakeRows{rows: []rowsource.Row{{"id": float64(7), "role": "Frontend Developer"}}}
	h := NewHandler(loadConfig(t, nil), Dependencies{SQLGenerator: generator, Rows: rows})

	req := httptest.NewRequest(http.MethodPost, "/v1/demands/ai-sql-search", strings.NewReader(`{"task_description":"open frontend demands"}`))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}

	var body demandSQLSearchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.GeneratedSQL != generator.sql {
		t.Fatalf("generated_sql = %q", body.GeneratedSQL)
	}
	if len(body.Rows) != 1 || body.Rows[0]["role"] != "Frontend Developer" {
		t.Fatalf("rows = %+v", body.Rows)
	}
	if generator.table != nl2sql.TableDemands || generator.task != "open frontend demands" {
		t.Fatalf("generator called with %q/%q", generator.table, generator.task)
	}
	if rows.lastQuery != generator.sql {
		t.Fatalf("executed = %q", rows.lastQuery)
	}
}

func TestEmployeeSQLSearchMapsRows(t *testing.T) {
	generator := &fakeGenerator{sql: `SELECT * FROM employees`}
	rows := &fakeRows{rows: []rowsource.Row{
		{"id": int64(4), "name": "Dana", "skills": []any{"Go"}, "availability": "Available", "team": "Backend"},
		{"name": "no id"},
	}}
	h := NewHandler(loadConfig(t, nil), Dependencies{SQLGenerator: generator, Rows: rows})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/employees/ai-sql-search?task_description=go+people", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rr.Code, rr.Body.String())
	}
	var body employeeSQLSearchResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if generator.table != nl2sql.TableEmployees {
		t.Fatalf("table = %q", generator.table)
	}
	if len(body.Employees) != 1 || body.Employees[0].ID != 4 || body.Employees[0].Name != "Dana" {
		t.Fatalf("employees = %+v", body.Employees)
	}
}

func TestSQLSearchErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		genErr    error
		execErr   error
		status    int
		code      string
		retryable bool
	}{
		{
			name:   "rejected",
			genErr: &nl2sql.ValidationError{Kind: nl2sql.RejectDisallowedColumn, Detail: "secret_column"},
			status: http.StatusBadRequest,
			code:   "SQL_REJECTED",
		},
		{
			name:      "completion failed",
			genErr:    fmt.Errorf("%w: %w", nl2sql.ErrGenerationFailed, errors.New("upstream timeout")),
			status:    http.StatusBadGateway,
			code:      "GENERATION_FAILED",
			retryable: true,
		},
		{
			name:   "disabled",
			genErr: fmt.Errorf("%w: %w", nl2sql.ErrGenerationFailed, llm.ErrDisabled),
			status: http.StatusBadGateway,
			code:   "GENERATION_FAILED",
		},
		{
			name:   "internal",
			genErr: fmt.Errorf("%w: payroll", nl2sql.ErrUnknownTable),
			status: http.StatusInternalServerError,
			code:   "INTERNAL",
		},
		{
			name:      "execution",
			execErr:   errors.New("relation does not exist"),
			status:    http.StatusInternalServerError,
			code:      "QUERY_EXECUTION_FAILED",
			retryable: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generator := &fakeGenerator{sql: "SELECT id FROM demands", err: tt.genErr}
			h := NewHandler(loadConfig(t, nil), Dependencies{SQLGenerator: generator, Rows: &fakeRows{err: tt.execErr}})

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/demands/ai-sql-search?task_description=x", nil))
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d", rr.Code, tt.status)
			}
			body := decodeBody(t, rr)
			if body["error_code"] != tt.code || body["retryable"] != tt.retryable {
				t.Fatalf("body = %v", body)
			}
			if tt.code == "SQL_REJECTED" {
				extra, _ := body["context"].(map[string]any)
				if extra["reason"] != "disallowed-column" || extra["detail"] != "secret_column" {
					t.Fatalf("context = %v", body["context"])
				}
			}
		})
	}
}

func TestSQLSearchRequiresTask(t *testing.T) {
	generator := &fakeGenerator{}
	h := NewHandler(loadConfig(t, nil), Dependencies{SQLGenerator: generator, Rows: &fakeRows{}})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/demands/ai-sql-search", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	if generator.table != "" {
		t.Fatal("generator should not be called without a task")
	}
}

func TestListDemandsLimit(t *testing.T) {
	rows := &fakeRows{rows: []rowsource.Row{{"id": int64(1)}}}
	h := NewHandler(loadConfig(t, map[string]string{"DEMANDDESK_DEMANDS_LIMIT": "25"}), Dependencies{Rows: rows})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/demands", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if rows.lastQuery != nl2sql.TableDemands || rows.lastLimit != 25 {
		t.Fatalf("ListRows(%q, %d)", rows.lastQuery, rows.lastLimit)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/demands?limit=5", nil))
	if rr.Code != http.StatusOK || rows.lastLimit != 5 {
		t.Fatalf("status = %d limit = %d", rr.Code, rows.lastLimit)
	}

	for _, bad := range []string{"0", "-1", "abc", "5000"} {
		rr = httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/demands?limit="+bad, nil))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("limit=%s status = %d", bad, rr.Code)
		}
	}
}

func TestListTables(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{Rows: &fakeRows{tables: []string{"demands", "employees"}}})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/tables", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	tables, _ := decodeBody(t, rr)["tables"].([]any)
	if len(tables) != 2 || tables[0] != "demands" {
		t.Fatalf("tables = %v", tables)
	}

	h = NewHandler(loadConfig(t, nil), Dependencies{Rows: &fakeRows{err: errors.New("boom")}})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/tables", nil))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
}
