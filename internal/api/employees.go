package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/demanddesk/demanddesk/internal/config"
	"github.com/demanddesk/demanddesk/internal/employee"
	"github.com/demanddesk/demanddesk/internal/ranking"
)

type taskRequest struct {
	TaskDescription string `json:"task_description"`
}

func handleListEmployees(deps Dependencies, _ config.Config, w http.ResponseWriter, r *http.Request) {
	if deps.Employees == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EMPLOYEES_NOT_CONFIGURED", "employee directory is not configured", false, nil)
		return
	}
	writeJSON(w, http.StatusOK, deps.Employees.List())
}

func handleFilterEmployees(deps Dependencies, _ config.Config, w http.ResponseWriter, r *http.Request) {
	if deps.Employees == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EMPLOYEES_NOT_CONFIGURED", "employee directory is not configured", false, nil)
		return
	}
	query := r.URL.Query()
	writeJSON(w, http.StatusOK, deps.Employees.Filter(employee.Filter{
		Skill:        query.Get("skill"),
		Availability: query.Get("availability"),
		Team:         query.Get("team"),
	}))
}

func handleGetEmployee(deps Dependencies, _ config.Config, w http.ResponseWriter, r *http.Request) {
	if deps.Employees == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EMPLOYEES_NOT_CONFIGURED", "employee directory is not configured", false, nil)
		return
	}
	id, err := strconv.Atoi(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_EMPLOYEE_ID", "employee id must be an integer", false, map[string]any{"id": r.PathValue("id")})
		return
	}
	found, err := deps.Employees.Get(id)
	if err != nil {
		if errors.Is(err, employee.ErrNotFound) {
			writeError(r.Context(), w, http.StatusNotFound, "EMPLOYEE_NOT_FOUND", "employee not found", false, map[string]any{"id": id})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", "failed to load employee", false, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, found)
}

func handleRankEmployees(deps Dependencies, _ config.Config, w http.ResponseWriter, r *http.Request) {
	if deps.Employees == nil || deps.Ranker == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "RANKING_NOT_CONFIGURED", "employee ranking is not configured", false, nil)
		return
	}
	task, ok := readTask(w, r)
	if !ok {
		return
	}
	result, err := deps.Ranker.Rank(r.Context(), task, deps.Employees.List())
	if err != nil {
		if errors.Is(err, ranking.ErrEmptyTask) {
			writeError(r.Context(), w, http.StatusBadRequest, "TASK_REQUIRED", err.Error(), false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "INTERNAL", "failed to rank employees", false, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// readTask takes the task from the task_description query parameter, then
// from a JSON body. It writes the 400 response itself when neither is set.
func readTask(w http.ResponseWriter, r *http.Request) (string, bool) {
	task := strings.TrimSpace(r.URL.Query().Get("task_description"))
	if task == "" && r.Body != nil {
		var request taskRequest
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil && !errors.Is(err, io.EOF) {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid request body", false, map[string]any{"details": err.Error()})
			return "", false
		}
		task = strings.TrimSpace(request.TaskDescription)
	}
	if task == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "TASK_REQUIRED", "task_description is required", false, nil)
		return "", false
	}
	return task, true
}
