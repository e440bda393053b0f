package nl2sql

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the instruction text for the completion call. It is a
// pure function of its inputs.
func BuildPrompt(task string, profile TableProfile, roles []string) string {
	var b strings.Builder
	b.WriteString("You are a PostgreSQL expert. Convert the user's requirement into ONE safe SELECT query.\n\n")

	b.WriteString("### Known roles in this table:\n")
	if len(roles) == 0 {
		b.WriteString("- (none known)\n")
	}
	for _, role := range roles {
		fmt.Fprintf(&b, "- %s\n", role)
	}

	b.WriteString("\n### Instructions:\n")
	b.WriteString("1. Semantic matching: map skills to the closest known role (for example \"React\" -> \"Sr. Frontend Developer\").\n")
	b.WriteString("2. Filtering: use ILIKE with wildcards, for example WHERE role ILIKE '%Frontend%'.\n")
	b.WriteString("3. Constraints:\n")
	fmt.Fprintf(&b, "   - Table: %s\n", profile.Table)
	fmt.Fprintf(&b, "   - Select only these columns: %s, or a single *.\n", strings.Join(profile.Columns, ", "))
	b.WriteString("   - Write a SELECT statement only. Never INSERT, UPDATE, DELETE, DROP, ALTER, CREATE or TRUNCATE.\n")
	b.WriteString("   - Do not use a semicolon anywhere, including at the end.\n")
	fmt.Fprintf(&b, "   - Read from %s alone: no JOIN and no other table.\n", profile.Table)
	b.WriteString("   - Return the SQL only, without explanation.\n")

	b.WriteString("\n### User request:\n")
	fmt.Fprintf(&b, "%q\n", strings.TrimSpace(task))
	return b.String()
}
