package api

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/demanddesk/demanddesk/internal/ingest"
)

type fakeUploads struct {
	got    ingest.Upload
	report ingest.Report
	err    error
}

func (f *fakeUploads) Ingest(_ context.Context, up ingest.Upload) (ingest.Report, error) {
	f.got = up
	return f.report, f.err
}

func TestUploadPassesFileToIngester(t *testing.T) {
	uploads := &fakeUploads{report: ingest.Report{UploadID: "u-1", Table: "demands", Action: ingest.ActionCreateTable, Inserted: 2}}
	h := NewHandler(loadConfig(t, nil), Dependencies{Uploads: uploads})

	for _, path := range []string{"/v1/uploads", "/v1/upload-excel"} {
		req := multipartRequest(t, path, map[string]string{"tableName": "Demands"}, "demands.csv", []byte("id,role\n1,QA\n2,Dev\n"))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status = %d body=%s", path, rr.Code, rr.Body.String())
		}
		if uploads.got.TableName != "Demands" || uploads.got.Filename != "demands.csv" || string(uploads.got.Data) != "id,role\n1,QA\n2,Dev\n" {
			t.Fatalf("upload = %+v", uploads.got)
		}
		body := decodeBody(t, rr)
		if body["upload_id"] != "u-1" || body["action"] != ingest.ActionCreateTable || body["inserted"] != float64(2) {
			t.Fatalf("body = %v", body)
		}
	}
}

func TestUploadValidation(t *testing.T) {
	uploads := &fakeUploads{err: fmt.Errorf("%w: file has no data rows", ingest.ErrInvalidUpload)}
	h := NewHandler(loadConfig(t, nil), Dependencies{Uploads: uploads})

	cases := []struct {
		name string
		req  *http.Request
		code string
	}{
		{
			name: "missing table",
			req:  multipartRequest(t, "/v1/uploads", nil, "a.csv", []byte("id\n1\n")),
			code: "TABLE_REQUIRED",
		},
		{
			name: "missing file",
			req:  multipartRequest(t, "/v1/uploads", map[string]string{"tableName": "a"}, "", nil),
			code: "FILE_REQUIRED",
		},
		{
			name: "not multipart",
			req:  httptest.NewRequest(http.MethodPost, "/v1/uploads", bytes.NewReader([]byte("id\n1\n"))),
			code: "INVALID_MULTIPART",
		},
		{
			name: "invalid upload",
			req:  multipartRequest(t, "/v1/uploads", map[string]string{"table_name": "a"}, "a.csv", []byte("id\n")),
			code: "INVALID_UPLOAD",
		},
	}
	for _, tc := range cases {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, tc.req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s status = %d body=%s", tc.name, rr.Code, rr.Body.String())
		}
		if body := decodeBody(t, rr); body["error_code"] != tc.code {
			t.Fatalf("%s error_code = %v, want %s", tc.name, body["error_code"], tc.code)
		}
	}
}

func TestUploadInternalFailure(t *testing.T) {
	h := NewHandler(loadConfig(t, nil), Dependencies{Uploads: &fakeUploads{err: fmt.Errorf("begin upload tx: connection refused")}})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, multipartRequest(t, "/v1/uploads", map[string]string{"tableName": "a"}, "a.csv", []byte("id\n1\n")))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeBody(t, rr); body["error_code"] != "UPLOAD_FAILED" {
		t.Fatalf("body = %v", body)
	}
}

func multipartRequest(t *testing.T, path string, fields map[string]string, filename string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatalf("write part: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}
