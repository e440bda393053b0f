package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/demanddesk/demanddesk/internal/observability"
)

const (
	ActionCreateTable = "creating_new_table"
	ActionUpsert      = "upsert_into_existing_table"
)

type Upload struct {
	Filename  string
	TableName string
	Data      []byte
}

// Report describes one upload. The debug fields mirror what the service did
// so callers can inspect table creation and key selection.
type Report struct {
	UploadID       string   `json:"upload_id"`
	Table          string   `json:"table"`
	UploadColumns  []string `json:"upload_columns"`
	TableExists    bool     `json:"table_exists"`
	UpsertKey      string   `json:"upsert_key,omitempty"`
	Action         string   `json:"action"`
	CreateTableSQL string   `json:"create_table_sql,omitempty"`
	Inserted       int      `json:"inserted"`
	Updated        int      `json:"updated"`
	Failed         int      `json:"failed"`
	FirstError     string   `json:"first_error,omitempty"`
	ArchivePrefix  string   `json:"archive_prefix,omitempty"`
}

type Service struct {
	db       *sql.DB
	archiver *Archiver
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewService builds the ingest service. archiver may be nil when uploads are
// not archived.
func NewService(db *sql.DB, archiver *Archiver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:       db,
		archiver: archiver,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Ingest parses the upload and writes every row inside one transaction. Each
// row runs under its own savepoint so a bad row is counted as failed without
// aborting the rest.
func (s *Service) Ingest(ctx context.Context, up Upload) (Report, error) {
	table, err := NormalizeTableName(up.TableName)
	if err != nil {
		return Report{}, err
	}
	sheet, err := ParseSpreadsheet(ctx, up.Filename, up.Data)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		UploadID:      s.newID(),
		Table:         table,
		UploadColumns: sheet.Columns,
		UpsertKey:     ChooseUpsertKey(sheet),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Report{}, fmt.Errorf("begin upload tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.QueryRowContext(ctx, `
SELECT EXISTS (
    SELECT FROM information_schema.tables
    WHERE table_schema = 'public' AND table_name = $1
)`, table).Scan(&report.TableExists); err != nil {
		return Report{}, fmt.Errorf("check table existence: %w", err)
	}

	if report.TableExists {
		report.Action = ActionUpsert
	} else {
		report.Action = ActionCreateTable
		report.CreateTableSQL = BuildCreateTable(table, sheet, report.UpsertKey)
		if _, err := tx.ExecContext(ctx, report.CreateTableSQL); err != nil {
			return Report{}, fmt.Errorf("create table %s: %w", table, err)
		}
	}

	statement := BuildWriteStatement(table, sheet.Columns, report.UpsertKey)
	for i, values := range sheet.Rows {
		inserted, err := writeRow(ctx, tx, statement, report.UpsertKey != "", values)
		switch {
		case err != nil:
			report.Failed++
			if report.FirstError == "" {
				report.FirstError = fmt.Sprintf("row %d: %v", i+1, err)
			}
		case inserted:
			report.Inserted++
		default:
			report.Updated++
		}
	}

	if err := tx.Commit(); err != nil {
		return Report{}, fmt.Errorf("commit upload tx: %w", err)
	}
	observability.ObserveUploadRows(report.Inserted, report.Updated, report.Failed)
	s.logger.InfoContext(ctx, "upload ingested",
		slog.String("upload_id", report.UploadID),
		slog.String("table", table),
		slog.String("action", report.Action),
		slog.Int("inserted", report.Inserted),
		slog.Int("updated", report.Updated),
		slog.Int("failed", report.Failed),
	)

	if s.archiver != nil {
		prefix, err := s.archiver.Archive(ctx, ArchiveInput{
			UploadID:   report.UploadID,
			Table:      table,
			Filename:   up.Filename,
			UploadedAt: s.now(),
			Raw:        up.Data,
			Sheet:      sheet,
		})
		if err != nil {
			s.logger.WarnContext(ctx, "upload archive failed",
				slog.String("upload_id", report.UploadID),
				slog.String("error", err.Error()),
			)
		} else {
			report.ArchivePrefix = prefix
		}
	}
	return report, nil
}

func writeRow(ctx context.Context, tx *sql.Tx, statement string, upsert bool, values []any) (bool, error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT upload_row"); err != nil {
		return false, fmt.Errorf("savepoint: %w", err)
	}

	inserted := true
	var err error
	if upsert {
		err = tx.QueryRowContext(ctx, statement, values...).Scan(&inserted)
	} else {
		_, err = tx.ExecContext(ctx, statement, values...)
	}
	if err != nil {
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT upload_row"); rbErr != nil {
			return false, fmt.Errorf("%v (rollback to savepoint: %w)", err, rbErr)
		}
		return false, err
	}

	if _, err := tx.ExecContext(ctx, "RELEASE SAVEPOINT upload_row"); err != nil {
		return false, fmt.Errorf("release savepoint: %w", err)
	}
	return inserted, nil
}
