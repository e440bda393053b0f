package employee

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/demanddesk/demanddesk/internal/rowsource"
)

const unknown = "Unknown"

// FromRow maps a query row onto an Employee. Only a usable integer id is
// required; other fields fall back to empty lists, zero or "Unknown".
func FromRow(row rowsource.Row) (Employee, error) {
	id, err := toInt(row["id"])
	if err != nil {
		return Employee{}, fmt.Errorf("employee id: %w", err)
	}
	strength := 0
	if raw, ok := row["strength"]; ok && raw != nil {
		if strength, err = toInt(raw); err != nil {
			return Employee{}, fmt.Errorf("employee strength: %w", err)
		}
	}
	skills, err := toStrings(row["skills"])
	if err != nil {
		return Employee{}, fmt.Errorf("employee skills: %w", err)
	}
	qualifications, err := toStrings(row["qualifications"])
	if err != nil {
		return Employee{}, fmt.Errorf("employee qualifications: %w", err)
	}

	return Employee{
		ID:             id,
		Name:           firstText(row, "name", "full_name"),
		Skills:         skills,
		Qualifications: qualifications,
		Strength:       strength,
		Availability:   firstText(row, "availability"),
		Team:           firstText(row, "team"),
		Role:           text(row["role"]),
	}, nil
}

// FromRows maps rows and skips the ones that cannot be mapped.
func FromRows(rows []rowsource.Row) []Employee {
	out := make([]Employee, 0, len(rows))
	for _, row := range rows {
		e, err := FromRow(row)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}

func firstText(row rowsource.Row, keys ...string) string {
	for _, key := range keys {
		if value := text(row[key]); value != "" {
			return value
		}
	}
	return unknown
}

func text(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []byte:
		return strings.TrimSpace(string(v))
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func toInt(value any) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("non-integer value %v", v)
		}
		return int(v), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", v, err)
		}
		return n, nil
	case []byte:
		return toInt(string(v))
	case nil:
		return 0, fmt.Errorf("missing value")
	default:
		return 0, fmt.Errorf("unsupported type %T", value)
	}
}

// toStrings accepts decoded JSON arrays, JSON text and Postgres array
// literals such as {React,"Node.js"}.
func toStrings(value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return append([]string{}, v...), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out, nil
	case []byte:
		return toStrings(string(v))
	case string:
		trimmed := strings.TrimSpace(v)
		switch {
		case trimmed == "":
			return []string{}, nil
		case strings.HasPrefix(trimmed, "["):
			var out []string
			if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
				return nil, fmt.Errorf("decode json list: %w", err)
			}
			return out, nil
		case strings.HasPrefix(trimmed, "{") && strings.HasSuffix(trimmed, "}"):
			return parseArrayLiteral(trimmed[1 : len(trimmed)-1]), nil
		default:
			return nil, fmt.Errorf("unsupported list text %q", trimmed)
		}
	default:
		return nil, fmt.Errorf("unsupported list type %T", value)
	}
}

func parseArrayLiteral(body string) []string {
	out := make([]string, 0)
	if strings.TrimSpace(body) == "" {
		return out
	}
	for _, item := range strings.Split(body, ",") {
		out = append(out, strings.Trim(strings.TrimSpace(item), `"`))
	}
	return out
}
