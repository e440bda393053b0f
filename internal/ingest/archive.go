package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/demanddesk/demanddesk/internal/storage"
)

const snapshotObjectName = "rows.parquet"

type archivedRow struct {
	RowNumber   int64  `parquet:"row_number"`
	PayloadJSON string `parquet:"payload_json"`
}

// Archiver keeps a copy of each accepted upload: the raw file and a parquet
// snapshot of the normalized rows.
type Archiver struct {
	Store storage.ObjectStore
}

type ArchiveInput struct {
	UploadID   string
	Table      string
	Filename   string
	UploadedAt time.Time
	Raw        []byte
	Sheet      Sheet
}

// Archive writes both objects under the upload prefix and returns it. When
// the snapshot cannot be written the raw object is removed again.
func (a *Archiver) Archive(ctx context.Context, in ArchiveInput) (string, error) {
	prefix, err := storage.BuildUploadPrefix(in.Table, in.UploadedAt, in.UploadID)
	if err != nil {
		return "", err
	}
	sourceKey, err := storage.BuildUploadObjectPath(prefix, sourceObjectName(in.Filename))
	if err != nil {
		return "", err
	}
	snapshotKey, err := storage.BuildUploadObjectPath(prefix, snapshotObjectName)
	if err != nil {
		return "", err
	}

	snapshot, err := EncodeRowsToParquet(in.Sheet)
	if err != nil {
		return "", err
	}

	if _, err := a.Store.Put(ctx, sourceKey, bytes.NewReader(in.Raw), int64(len(in.Raw)), storage.PutOptions{ContentType: contentType(in.Filename)}); err != nil {
		return "", fmt.Errorf("archive source file: %w", err)
	}
	if _, err := a.Store.Put(ctx, snapshotKey, bytes.NewReader(snapshot), int64(len(snapshot)), storage.PutOptions{ContentType: "application/octet-stream"}); err != nil {
		_ = a.Store.Delete(ctx, sourceKey)
		return "", fmt.Errorf("archive row snapshot: %w", err)
	}
	return prefix, nil
}

// EncodeRowsToParquet stores each row as a JSON object keyed by normalized
// column name, numbered from 1.
func EncodeRowsToParquet(sheet Sheet) ([]byte, error) {
	if len(sheet.Rows) == 0 {
		return nil, fmt.Errorf("rows are required")
	}
	rows := make([]archivedRow, 0, len(sheet.Rows))
	for i, values := range sheet.Rows {
		payload := make(map[string]any, len(sheet.Columns))
		for col, column := range sheet.Columns {
			if col < len(values) {
				payload[column] = values[col]
			}
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode row %d: %w", i+1, err)
		}
		rows = append(rows, archivedRow{RowNumber: int64(i + 1), PayloadJSON: string(encoded)})
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewGenericWriter[archivedRow](buf)
	if _, err := writer.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func sourceObjectName(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".csv", ".xlsx", ".xlsm", ".xls":
		return "source" + ext
	default:
		return "source.bin"
	}
}

func contentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "text/csv"
	case ".xlsx", ".xlsm":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}
