package nl2sql

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "plain statement",
			raw:  "  SELECT id FROM employees  ",
			want: "SELECT id FROM employees",
		},
		{
			name: "fenced with language tag and trailing semicolon",
			raw:  "```sql\nSELECT id,\n  name\nFROM employees;\n```",
			want: "SELECT id, name FROM employees",
		},
		{
			name: "prose around the fence",
			raw:  "Here is your query:\n```\nselect * from demands\n```\nLet me know if it helps.",
			want: "select * from demands",
		},
		{
			name: "first fenced block containing select wins",
			raw:  "```text\nno query here\n```\n```postgresql\nSELECT role FROM demands\n```\n```sql\nSELECT id FROM demands\n```",
			want: "SELECT role FROM demands",
		},
		{
			name: "fences without select keep the full text",
			raw:  "```\nnothing\n```",
			want: "``` nothing ```",
		},
		{
			name: "bare leading language tag",
			raw:  "sql SELECT id FROM employees",
			want: "SELECT id FROM employees",
		},
		{
			name: "lone tag is not stripped",
			raw:  "sql",
			want: "sql",
		},
		{
			name: "only one trailing semicolon removed",
			raw:  "SELECT 1 FROM employees;;",
			want: "SELECT 1 FROM employees;",
		},
		{
			name: "semicolon after whitespace",
			raw:  "SELECT id FROM employees ;",
			want: "SELECT id FROM employees",
		},
		{
			name: "empty",
			raw:  "   \n\t ",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.raw); got != tt.want {
				t.Fatalf("Normalize() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEscapePercent(t *testing.T) {
	got := EscapePercent("SELECT id FROM employees WHERE role ILIKE '%Dev%'")
	want := "SELECT id FROM employees WHERE role ILIKE '%%Dev%%'"
	if got != want {
		t.Fatalf("EscapePercent() = %q, want %q", got, want)
	}
}
