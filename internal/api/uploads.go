package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/demanddesk/demanddesk/internal/config"
	"github.com/demanddesk/demanddesk/internal/ingest"
)

const multipartMemoryBytes = 8 << 20

// handleUpload accepts a multipart form with a file part and a tableName
// field. The whole body is capped at the configured upload size.
func handleUpload(deps Dependencies, cfg config.Config, w http.ResponseWriter, r *http.Request) {
	if deps.Uploads == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "UPLOADS_NOT_CONFIGURED", "upload ingestion is not configured", false, nil)
		return
	}

	if cfg.HTTP.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.HTTP.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		writeUploadReadError(w, r, err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	tableName := strings.TrimSpace(r.FormValue("tableName"))
	if tableName == "" {
		tableName = strings.TrimSpace(r.FormValue("table_name"))
	}
	if tableName == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "TABLE_REQUIRED", "tableName form field is required", false, nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "FILE_REQUIRED", "file form field is required", false, map[string]any{"details": err.Error()})
		return
	}
	defer func() { _ = file.Close() }()
	data, err := io.ReadAll(file)
	if err != nil {
		writeUploadReadError(w, r, err)
		return
	}

	report, err := deps.Uploads.Ingest(r.Context(), ingest.Upload{
		Filename:  header.Filename,
		TableName: tableName,
		Data:      data,
	})
	if err != nil {
		if errors.Is(err, ingest.ErrInvalidUpload) {
			writeError(r.Context(), w, http.StatusBadRequest, "INVALID_UPLOAD", err.Error(), false, map[string]any{"file": header.Filename})
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "UPLOAD_FAILED", "failed to ingest upload", true, map[string]any{"details": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeUploadReadError(w http.ResponseWriter, r *http.Request, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(r.Context(), w, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", "upload exceeds the size limit", false, map[string]any{"limit_bytes": tooLarge.Limit})
		return
	}
	writeError(r.Context(), w, http.StatusBadRequest, "INVALID_MULTIPART", "invalid multipart upload", false, map[string]any{"details": err.Error()})
}
