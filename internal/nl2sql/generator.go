package nl2sql

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/demanddesk/demanddesk/internal/llm"
	"github.com/demanddesk/demanddesk/internal/observability"
)

var (
	// ErrGenerationFailed means no SQL candidate could be obtained from the
	// model: the capability is disabled, the call failed, or the answer was
	// empty after normalization.
	ErrGenerationFailed = errors.New("sql generation failed")
	ErrEmptyTask        = errors.New("task description cannot be empty")
	ErrUnknownTable     = errors.New("table has no allow-list")
)

// RoleSource lists the distinct role values present in a table. Failures are
// tolerated by the generator.
type RoleSource interface {
	DistinctRoles(ctx context.Context, table string) ([]string, error)
}

type Generator struct {
	Completer     llm.Completer
	Roles         RoleSource
	Catalog       Catalog
	LLMEnabled    bool
	FallbackRoles []string
	Logger        *slog.Logger
}

// Generate runs one prompt/complete/normalize/validate pass for table and
// returns the accepted SQL with percent signs doubled. There are no retries.
func (g *Generator) Generate(ctx context.Context, task, table string) (string, error) {
	if strings.TrimSpace(task) == "" {
		return "", ErrEmptyTask
	}
	profile, ok := g.Catalog.Lookup(table)
	if !ok {
		observability.ObserveSQLGeneration("internal")
		return "", fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	if !g.LLMEnabled || g.Completer == nil {
		observability.ObserveSQLGeneration("generation_failed")
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, llm.ErrDisabled)
	}

	prompt := BuildPrompt(task, profile, g.knownRoles(ctx, profile.Table))
	raw, err := g.Completer.Complete(ctx, prompt)
	if err != nil {
		observability.ObserveSQLGeneration("generation_failed")
		return "", fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	candidate := Normalize(raw)
	if candidate == "" {
		observability.ObserveSQLGeneration("generation_failed")
		return "", fmt.Errorf("%w: model returned no sql", ErrGenerationFailed)
	}

	verdict, err := Validate(profile, candidate)
	if err != nil {
		observability.ObserveSQLGeneration("internal")
		return "", fmt.Errorf("validate generated sql: %w", err)
	}
	if !verdict.Accepted() {
		observability.ObserveSQLGeneration("rejected")
		g.logger().WarnContext(ctx, "generated sql rejected",
			slog.String("table", profile.Table),
			slog.String("reason", string(verdict.Rejection)),
			slog.String("detail", verdict.Detail),
		)
		return "", &ValidationError{Kind: verdict.Rejection, Detail: verdict.Detail}
	}

	observability.ObserveSQLGeneration("accepted")
	sql := EscapePercent(verdict.SQL)
	g.logger().DebugContext(ctx, "generated sql accepted", slog.String("table", profile.Table), slog.String("sql", sql))
	return sql, nil
}

func (g *Generator) knownRoles(ctx context.Context, table string) []string {
	if g.Roles == nil {
		return g.FallbackRoles
	}
	raw, err := g.Roles.DistinctRoles(ctx, table)
	if err != nil {
		g.logger().WarnContext(ctx, "role lookup failed, using fallback roles",
			slog.String("table", table),
			slog.String("error", err.Error()),
		)
		return g.FallbackRoles
	}
	roles := make([]string, 0, len(raw))
	for _, role := range raw {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return roles
}

func (g *Generator) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}
