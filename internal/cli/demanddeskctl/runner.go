package demanddeskctl

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
}

func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("demanddeskctl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	baseURL := fs.String("base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8000"), "demanddesk API base URL")
	apiKey := fs.String("api-key", defaults.APIKey, "API key for authenticated requests")
	timeout := fs.Duration("timeout", durationOr(defaults.Timeout, 30*time.Second), "HTTP timeout (e.g. 30s)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	client := defaults.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: *timeout}
	}

	command := strings.TrimSpace(fs.Arg(0))
	req, err := buildRequest(command, fs.Args()[1:], stderr)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "%v\n\n", err)
		writeUsage(stderr)
		return 2
	}

	endpoint := strings.TrimRight(*baseURL, "/") + req.path
	code, responseBody, err := doRequest(ctx, client, req, endpoint, *apiKey)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "request failed: %v\n", err)
		return 1
	}

	if code >= 400 {
		_, _ = fmt.Fprintf(stderr, "http %d: %s\n", code, strings.TrimSpace(string(responseBody)))
		return 1
	}

	if pretty, ok := prettyJSON(responseBody); ok {
		_, _ = fmt.Fprintln(stdout, pretty)
		return 0
	}
	if len(responseBody) > 0 {
		_, _ = fmt.Fprintln(stdout, string(responseBody))
	}
	return 0
}

func buildRequest(command string, args []string, stderr io.Writer) (request, error) {
	switch command {
	case "health":
		return request{method: http.MethodGet, path: "/v1/health"}, nil
	case "ready":
		return request{method: http.MethodGet, path: "/v1/ready"}, nil
	case "employees":
		return request{method: http.MethodGet, path: "/v1/employees"}, nil
	case "tables":
		return request{method: http.MethodGet, path: "/v1/tables"}, nil
	case "analytics":
		return request{method: http.MethodGet, path: "/v1/analytics"}, nil
	case "demands":
		sub := flag.NewFlagSet("demands", flag.ContinueOnError)
		sub.SetOutput(stderr)
		limit := sub.Int("limit", 0, "maximum rows to return")
		if err := sub.Parse(args); err != nil {
			return request{}, err
		}
		path := "/v1/demands"
		if *limit > 0 {
			path += "?limit=" + strconv.Itoa(*limit)
		}
		return request{method: http.MethodGet, path: path}, nil
	case "ai-search":
		task := strings.TrimSpace(strings.Join(args, " "))
		if task == "" {
			return request{}, fmt.Errorf("ai-search requires a task description")
		}
		return taskRequest("/v1/employees/ai-search", task)
	case "sql-search":
		sub := flag.NewFlagSet("sql-search", flag.ContinueOnError)
		sub.SetOutput(stderr)
		target := sub.String("target", "employees", "table to search: employees or demands")
		if err := sub.Parse(args); err != nil {
			return request{}, err
		}
		task := strings.TrimSpace(strings.Join(sub.Args(), " "))
		if task == "" {
			return request{}, fmt.Errorf("sql-search requires a task description")
		}
		switch *target {
		case "employees", "demands":
			return taskRequest("/v1/"+*target+"/ai-sql-search", task)
		default:
			return request{}, fmt.Errorf("unknown sql-search target %q", *target)
		}
	case "upload":
		sub := flag.NewFlagSet("upload", flag.ContinueOnError)
		sub.SetOutput(stderr)
		table := sub.String("table", "", "destination table name")
		if err := sub.Parse(args); err != nil {
			return request{}, err
		}
		if sub.NArg() != 1 || strings.TrimSpace(*table) == "" {
			return request{}, fmt.Errorf("upload requires -table and exactly one file")
		}
		return uploadRequest(sub.Arg(0), *table)
	default:
		return request{}, fmt.Errorf("unknown command %q", command)
	}
}

func taskRequest(path, task string) (request, error) {
	body, err := json.Marshal(map[string]string{"task_description": task})
	if err != nil {
		return request{}, err
	}
	return request{method: http.MethodPost, path: path, body: bytes.NewReader(body), contentType: "application/json"}, nil
}

func uploadRequest(file, table string) (request, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return request{}, fmt.Errorf("read upload file: %w", err)
	}
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("tableName", table); err != nil {
		return request{}, err
	}
	part, err := writer.CreateFormFile("file", filepath.Base(file))
	if err != nil {
		return request{}, err
	}
	if _, err := part.Write(data); err != nil {
		return request{}, err
	}
	if err := writer.Close(); err != nil {
		return request{}, err
	}
	return request{method: http.MethodPost, path: "/v1/uploads", body: &buf, contentType: writer.FormDataContentType()}, nil
}

func doRequest(ctx context.Context, client *http.Client, r request, endpoint, apiKey string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, r.method, endpoint, r.body)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if strings.TrimSpace(apiKey) != "" {
		req.Header.Set("X-API-Key", strings.TrimSpace(apiKey))
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func prettyJSON(raw []byte) (string, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", false
	}
	var anyValue any
	if err := json.Unmarshal(raw, &anyValue); err != nil {
		return "", false
	}
	formatted, err := json.MarshalIndent(anyValue, "", "  ")
	if err != nil {
		return "", false
	}
	return string(formatted), true
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "usage: demanddeskctl [flags] <command> [args]")
	_, _ = fmt.Fprintln(w, "")
	_, _ = fmt.Fprintln(w, "commands:")
	_, _ = fmt.Fprintln(w, "  health                                 GET /v1/health")
	_, _ = fmt.Fprintln(w, "  ready                                  GET /v1/ready")
	_, _ = fmt.Fprintln(w, "  employees                              GET /v1/employees")
	_, _ = fmt.Fprintln(w, "  tables                                 GET /v1/tables")
	_, _ = fmt.Fprintln(w, "  analytics                              GET /v1/analytics")
	_, _ = fmt.Fprintln(w, "  demands [-limit n]                     GET /v1/demands")
	_, _ = fmt.Fprintln(w, "  ai-search <task>                       POST /v1/employees/ai-search")
	_, _ = fmt.Fprintln(w, "  sql-search [-target t] <task>          POST /v1/{employees|demands}/ai-sql-search")
	_, _ = fmt.Fprintln(w, "  upload -table <name> <file>            POST /v1/uploads")
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
