package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/demanddesk/demanddesk/internal/config"
	"github.com/demanddesk/demanddesk/internal/employee"
	"github.com/demanddesk/demanddesk/internal/llm"
	"github.com/demanddesk/demanddesk/internal/nl2sql"
	"github.com/demanddesk/demanddesk/internal/rowsource"
)

const maxDemandsLimit = 1000

type employeeSQLSearchResponse struct {
	GeneratedSQL string              `json:"generated_sql"`
	Employees    []employee.Employee `json:"employees"`
}

type demandSQLSearchResponse struct {
	GeneratedSQL string          `json:"generated_sql"`
	Rows         []rowsource.Row `json:"rows"`
}

func handleEmployeeSQLSearch(deps Dependencies, _ config.Config, w http.ResponseWriter, r *http.Request) {
	generated, rows, ok := runGeneratedSearch(deps, w, r, nl2sql.TableEmployees)
	if !ok {
		return
	}
	employees := employee.FromRows(rows)
	if employees == nil {
		employees = []employee.Employee{}
	}
	writeJSON(w, http.StatusOK, employeeSQLSearchResponse{GeneratedSQL: generated, Employees: employees})
}

func handleDemandSQLSearch(deps Dependencies, _ config.Config, w http.ResponseWriter, r *http.Request) {
	generated, rows, ok := runGeneratedSearch(deps, w, r, nl2sql.TableDemands)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, demandSQLSearchResponse{GeneratedSQL: generated, Rows: nonNilRows(rows)})
}

func runGeneratedSearch(deps Dependencies, w http.ResponseWriter, r *http.Request, table string) (string, []rowsource.Row, bool) {
	if deps.SQLGenerator == nil || deps.Rows == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "SQL_SEARCH_NOT_CONFIGURED", "sql search is not configured", false, nil)
		return "", nil, false
	}
	task, ok := readTask(w, r)
	if !ok {
		return "", nil, false
	}

	generated, err := deps.SQLGenerator.Generate(r.Context(), task, table)
	if err != nil {
		writeGenerationError(w, r, err)
		return "", nil, false
	}
	rows, err := deps.Rows.QueryGenerated(r.Context(), generated)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_EXECUTION_FAILED", "generated query failed to execute", true, map[string]any{
			"details":       err.Error(),
			"generated_sql": generated,
		})
		return "", nil, false
	}
	return generated, rows, true
}

func writeGenerationError(w http.ResponseWriter, r *http.Request, err error) {
	var rejected *nl2sql.ValidationError
	switch {
	case errors.As(err, &rejected):
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REJECTED", "generated sql failed validation", false, map[string]any{
			"reason": string(rejected.Kind),
			"detail": rejected.Detail,
		})
	case errors.Is(err, nl2sql.ErrEmptyTask):
		writeError(r.Context(), w, http.StatusBadRequest, "TASK_REQUIRED", err.Error(), false, nil)
	case errors.Is(err, nl2sql.ErrGenerationFailed):
		writeError(r.Context(), w, http.StatusBadGateway, "GENERATION_FAILED", "sql generation failed", !errors.Is(err, llm.ErrDisabled), map[string]any{"details": err.Error()})
	default:
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", "sql generation failed internally", false, map[string]any{"details": err.Error()})
	}
}

func handleListDemands(deps Dependencies, cfg config.Config, w http.ResponseWriter, r *http.Request) {
	if deps.Rows == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ROWS_NOT_CONFIGURED", "row source is not configured", false, nil)
		return
	}
	limit := cfg.NL2SQL.DemandsLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > maxDemandsLimit {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be between 1 and 1000", false, map[string]any{"limit": raw})
			return
		}
		limit = parsed
	}
	rows, err := deps.Rows.ListRows(r.Context(), nl2sql.TableDemands, limit)
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_EXECUTION_FAILED", "failed to list demands", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": nonNilRows(rows), "limit": limit})
}

func handleListTables(deps Dependencies, _ config.Config, w http.ResponseWriter, r *http.Request) {
	if deps.Rows == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "ROWS_NOT_CONFIGURED", "row source is not configured", false, nil)
		return
	}
	tables, err := deps.Rows.ListTables(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "TABLE_LIST_FAILED", "failed to list tables", true, map[string]any{"details": err.Error()})
		return
	}
	if tables == nil {
		tables = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}

func nonNilRows(rows []rowsource.Row) []rowsource.Row {
	if rows == nil {
		return []rowsource.Row{}
	}
	return rows
}
