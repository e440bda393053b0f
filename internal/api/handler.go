package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/demanddesk/demanddesk/internal/analytics"
	"github.com/demanddesk/demanddesk/internal/auth"
	"github.com/demanddesk/demanddesk/internal/config"
	"github.com/demanddesk/demanddesk/internal/employee"
	"github.com/demanddesk/demanddesk/internal/ingest"
	"github.com/demanddesk/demanddesk/internal/observability"
	"github.com/demanddesk/demanddesk/internal/ranking"
	"github.com/demanddesk/demanddesk/internal/rowsource"
)

type ReadinessCheck func(ctx context.Context) error

type EmployeeDirectory interface {
	List() []employee.Employee
	Get(id int) (employee.Employee, error)
	Filter(f employee.Filter) []employee.Employee
}

type EmployeeRanker interface {
	Rank(ctx context.Context, task string, employees []employee.Employee) (ranking.Result, error)
}

type SQLGenerator interface {
	Generate(ctx context.Context, task, table string) (string, error)
}

// RowReader runs accepted queries and browses tables. QueryGenerated expects
// SQL whose percent signs are doubled.
type RowReader interface {
	QueryGenerated(ctx context.Context, generated string) ([]rowsource.Row, error)
	ListTables(ctx context.Context) ([]string, error)
	ListRows(ctx context.Context, table string, limit int) ([]rowsource.Row, error)
}

type UploadIngester interface {
	Ingest(ctx context.Context, up ingest.Upload) (ingest.Report, error)
}

type Dependencies struct {
	Logger            *slog.Logger
	Readiness         ReadinessCheck
	AuthMiddleware    func(http.Handler) http.Handler
	DependencyTimeout time.Duration
	Employees         EmployeeDirectory
	Ranker            EmployeeRanker
	SQLGenerator      SQLGenerator
	Rows              RowReader
	Uploads           UploadIngester
}

type route struct {
	pattern string
	role    string
	handle  func(Dependencies, config.Config, http.ResponseWriter, *http.Request)
}

var protectedRoutes = []route{
	{pattern: "GET /v1/employees", role: auth.RoleReader, handle: handleListEmployees},
	{pattern: "GET /v1/employees/filter", role: auth.RoleReader, handle: handleFilterEmployees},
	{pattern: "GET /v1/employees/{id}", role: auth.RoleReader, handle: handleGetEmployee},
	{pattern: "POST /v1/employees/ai-search", role: auth.RoleReader, handle: handleRankEmployees},
	{pattern: "POST /v1/employees/ai-sql-search", role: auth.RoleReader, handle: handleEmployeeSQLSearch},
	{pattern: "POST /v1/demands/ai-sql-search", role: auth.RoleReader, handle: handleDemandSQLSearch},
	{pattern: "GET /v1/demands", role: auth.RoleReader, handle: handleListDemands},
	{pattern: "GET /v1/tables", role: auth.RoleReader, handle: handleListTables},
	{pattern: "GET /v1/analytics", role: auth.RoleReader, handle: handleAnalytics},
	{pattern: "POST /v1/uploads", role: auth.RoleUploader, handle: handleUpload},
	{pattern: "POST /v1/upload-excel", role: auth.RoleUploader, handle: handleUpload},
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.HandleFunc("GET /v1/ready", func(w http.ResponseWriter, r *http.Request) {
		if deps.Readiness == nil {
			writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
			return
		}
		timeout := deps.DependencyTimeout
		if timeout <= 0 {
			timeout = 2 * time.Second
		}
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		if err := deps.Readiness(ctx); err != nil {
			writeError(r.Context(), w, http.StatusServiceUnavailable, "NOT_READY", err.Error(), true, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	authenticate := func(next http.Handler) http.Handler { return next }
	if cfg.Auth.Required {
		if deps.AuthMiddleware == nil {
			if deps.Logger != nil {
				deps.Logger.Error("auth required but auth middleware missing")
			}
			authenticate = func(http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeError(r.Context(), w, http.StatusInternalServerError, "AUTH_MIDDLEWARE_MISSING", "auth middleware is required by configuration", false, nil)
				})
			}
		} else {
			authenticate = deps.AuthMiddleware
		}
	}
	for _, rt := range protectedRoutes {
		rt := rt
		mux.Handle(rt.pattern, authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := auth.RequireRole(r.Context(), rt.role); err != nil {
				writeError(r.Context(), w, http.StatusForbidden, "FORBIDDEN", err.Error(), false, nil)
				return
			}
			rt.handle(deps, cfg, w, r)
		})))
	}

	middlewares := []func(http.Handler) http.Handler{
		observability.TraceMiddleware,
		observability.MetricsMiddleware,
	}
	if deps.Logger != nil {
		middlewares = append(middlewares, observability.LoggingMiddleware(deps.Logger))
	}
	middlewares = append(middlewares, corsMiddleware(cfg.HTTP.CORSOrigins))
	return chain(mux, middlewares...)
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Trace-ID"},
	}).Handler
}

func handleAnalytics(deps Dependencies, _ config.Config, w http.ResponseWriter, r *http.Request) {
	if deps.Employees == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "EMPLOYEES_NOT_CONFIGURED", "employee directory is not configured", false, nil)
		return
	}
	writeJSON(w, http.StatusOK, analytics.Summarize(deps.Employees.List()))
}

// CheckDatabase reports the row source as not ready when a ping fails.
func CheckDatabase(ping func(ctx context.Context) error) ReadinessCheck {
	return func(ctx context.Context) error {
		if ping == nil {
			return errors.New("database is not configured")
		}
		return ping(ctx)
	}
}

func CombineReadinessChecks(checks ...ReadinessCheck) ReadinessCheck {
	filtered := make([]ReadinessCheck, 0, len(checks))
	for _, check := range checks {
		if check != nil {
			filtered = append(filtered, check)
		}
	}
	return func(ctx context.Context) error {
		for _, check := range filtered {
			if err := check(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}

func chain(base http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	wrapped := base
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}
	return wrapped
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string, retryable bool, extra map[string]any) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"context":    extra,
		"trace_id":   observability.TraceIDFromContext(ctx),
	})
}
