// Package migrations owns the demanddesk schema: the employee directory, the
// demands table read by sql search and the demo employee seed. Steps are
// embedded SQL files named <version>_<name>.(up|down).sql.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

//go:embed sql/*.sql
var embeddedFS embed.FS

const ledgerTable = "demanddesk_schema_migrations"

var stepFilePattern = regexp.MustCompile(`^([0-9]+)_([a-z0-9_]+)\.(up|down)\.sql$`)

// ErrUnknownAppliedStep means the ledger records a version this binary does
// not embed, usually because a newer release already migrated the database.
var ErrUnknownAppliedStep = errors.New("applied schema step is not embedded")

type step struct {
	version int64
	name    string
	up      string
	down    string
}

func (s step) label() string {
	return fmt.Sprintf("%06d_%s", s.version, s.name)
}

type Runner struct {
	fsys fs.FS
}

func NewRunner() *Runner {
	return &Runner{fsys: embeddedFS}
}

// StepState is one embedded step as the ledger sees it.
type StepState struct {
	Version   int64
	Name      string
	Applied   bool
	AppliedAt time.Time
}

// Status lists every embedded step in version order. Unknown holds ledger
// versions with no embedded step.
type Status struct {
	Steps   []StepState
	Unknown []int64
}

func (s Status) Pending() []int64 {
	var pending []int64
	for _, st := range s.Steps {
		if !st.Applied {
			pending = append(pending, st.Version)
		}
	}
	return pending
}

// Up applies pending steps oldest first. steps <= 0 applies all of them.
func (r *Runner) Up(ctx context.Context, db *sql.DB, steps int) (int, error) {
	plan, applied, err := r.prepare(ctx, db)
	if err != nil {
		return 0, err
	}
	if unknown := unknownVersions(plan, applied); len(unknown) > 0 {
		return 0, fmt.Errorf("%w: %v", ErrUnknownAppliedStep, unknown)
	}

	count := 0
	for _, s := range plan {
		if _, done := applied[s.version]; done {
			continue
		}
		if steps > 0 && count >= steps {
			break
		}
		if err := runStep(ctx, db, s, true); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// Down reverts applied steps newest first. steps <= 0 reverts one.
func (r *Runner) Down(ctx context.Context, db *sql.DB, steps int) (int, error) {
	if steps <= 0 {
		steps = 1
	}
	plan, applied, err := r.prepare(ctx, db)
	if err != nil {
		return 0, err
	}

	byVersion := make(map[int64]step, len(plan))
	for _, s := range plan {
		byVersion[s.version] = s
	}
	versions := make([]int64, 0, len(applied))
	for version := range applied {
		versions = append(versions, version)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] > versions[j] })

	count := 0
	for _, version := range versions {
		if count >= steps {
			break
		}
		s, ok := byVersion[version]
		if !ok {
			return count, fmt.Errorf("%w: %d", ErrUnknownAppliedStep, version)
		}
		if err := runStep(ctx, db, s, false); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

func (r *Runner) Status(ctx context.Context, db *sql.DB) (Status, error) {
	plan, applied, err := r.prepare(ctx, db)
	if err != nil {
		return Status{}, err
	}
	status := Status{Unknown: unknownVersions(plan, applied)}
	for _, s := range plan {
		appliedAt, done := applied[s.version]
		status.Steps = append(status.Steps, StepState{
			Version:   s.version,
			Name:      s.name,
			Applied:   done,
			AppliedAt: appliedAt,
		})
	}
	return status, nil
}

func (r *Runner) prepare(ctx context.Context, db *sql.DB) ([]step, map[int64]time.Time, error) {
	plan, err := loadSteps(r.fsys)
	if err != nil {
		return nil, nil, err
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+ledgerTable+` (
	version BIGINT PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`); err != nil {
		return nil, nil, fmt.Errorf("create schema ledger: %w", err)
	}
	applied, err := readLedger(ctx, db)
	if err != nil {
		return nil, nil, err
	}
	return plan, applied, nil
}

func readLedger(ctx context.Context, db *sql.DB) (map[int64]time.Time, error) {
	rows, err := db.QueryContext(ctx, `SELECT version, applied_at FROM `+ledgerTable)
	if err != nil {
		return nil, fmt.Errorf("read schema ledger: %w", err)
	}
	defer func() { _ = rows.Close() }()

	applied := map[int64]time.Time{}
	for rows.Next() {
		var (
			version   int64
			appliedAt time.Time
		)
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("scan schema ledger: %w", err)
		}
		applied[version] = appliedAt
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read schema ledger: %w", err)
	}
	return applied, nil
}

func unknownVersions(plan []step, applied map[int64]time.Time) []int64 {
	known := make(map[int64]bool, len(plan))
	for _, s := range plan {
		known[s.version] = true
	}
	var unknown []int64
	for version := range applied {
		if !known[version] {
			unknown = append(unknown, version)
		}
	}
	sort.Slice(unknown, func(i, j int) bool { return unknown[i] < unknown[j] })
	return unknown
}

// runStep executes one script and its ledger change in a single transaction.
func runStep(ctx context.Context, db *sql.DB, s step, forward bool) error {
	direction, script := "down", s.down
	ledgerSQL, ledgerArgs := `DELETE FROM `+ledgerTable+` WHERE version = $1`, []any{s.version}
	if forward {
		direction, script = "up", s.up
		ledgerSQL, ledgerArgs = `INSERT INTO `+ledgerTable+` (version, name) VALUES ($1, $2)`, []any{s.version, s.name}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("schema step %s %s: begin: %w", s.label(), direction, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("schema step %s %s: %w", s.label(), direction, err)
	}
	if _, err := tx.ExecContext(ctx, ledgerSQL, ledgerArgs...); err != nil {
		return fmt.Errorf("schema step %s %s: record in ledger: %w", s.label(), direction, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("schema step %s %s: commit: %w", s.label(), direction, err)
	}
	return nil
}

// loadSteps pairs up and down scripts by version. Other files in sql/ are
// ignored.
func loadSteps(fsys fs.FS) ([]step, error) {
	entries, err := fs.ReadDir(fsys, "sql")
	if err != nil {
		return nil, fmt.Errorf("read schema steps: %w", err)
	}

	byVersion := map[int64]*step{}
	for _, entry := range entries {
		match := stepFilePattern.FindStringSubmatch(entry.Name())
		if entry.IsDir() || match == nil {
			continue
		}
		version, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("schema step %q: version: %w", entry.Name(), err)
		}
		body, err := fs.ReadFile(fsys, "sql/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("schema step %q: %w", entry.Name(), err)
		}

		s, ok := byVersion[version]
		if !ok {
			s = &step{version: version, name: match[2]}
			byVersion[version] = s
		}
		if s.name != match[2] {
			return nil, fmt.Errorf("schema version %d is named both %q and %q", version, s.name, match[2])
		}
		if match[3] == "up" {
			s.up = string(body)
		} else {
			s.down = string(body)
		}
	}

	plan := make([]step, 0, len(byVersion))
	for _, s := range byVersion {
		if strings.TrimSpace(s.up) == "" {
			return nil, fmt.Errorf("schema step %s has no up script", s.label())
		}
		if strings.TrimSpace(s.down) == "" {
			return nil, fmt.Errorf("schema step %s has no down script", s.label())
		}
		plan = append(plan, *s)
	}
	sort.Slice(plan, func(i, j int) bool { return plan[i].version < plan[j].version })
	return plan, nil
}
