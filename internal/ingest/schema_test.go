package ingest

import "testing"

func TestChooseUpsertKeyPrefersID(t *testing.T) {
	tests := []struct {
		columns []string
		want    string
	}{
		{columns: []string{"project_id", "rolecode", "id"}, want: "id"},
		{columns: []string{"project_id", "rolecode"}, want: "rolecode"},
		{columns: []string{"name", "project_id"}, want: "project_id"},
		{columns: []string{"name"}, want: ""},
	}
	for _, tt := range tests {
		if got := ChooseUpsertKey(Sheet{Columns: tt.columns}); got != tt.want {
			t.Fatalf("ChooseUpsertKey(%v) = %q, want %q", tt.columns, got, tt.want)
		}
	}
}

func TestBuildCreateTableWithID(t *testing.T) {
	sheet := Sheet{Columns: []string{"id", "role", "billingrate"}, Types: []ColumnType{TypeInteger, TypeText, TypeFloat}}
	got := BuildCreateTable("demands", sheet, "id")
	want := `CREATE TABLE "demands" ("id" BIGINT, "role" TEXT, "billingrate" FLOAT, PRIMARY KEY ("id"))`
	if got != want {
		t.Fatalf("BuildCreateTable() = %q, want %q", got, want)
	}
}

func TestBuildCreateTableWithoutID(t *testing.T) {
	sheet := Sheet{Columns: []string{"rolecode", "active", "addedon"}, Types: []ColumnType{TypeText, TypeBoolean, TypeTimestamp}}
	got := BuildCreateTable("roles", sheet, "rolecode")
	want := `CREATE TABLE "roles" (internal_id SERIAL PRIMARY KEY, "rolecode" TEXT, "active" BOOLEAN, "addedon" TIMESTAMP, UNIQUE ("rolecode"))`
	if got != want {
		t.Fatalf("BuildCreateTable() = %q, want %q", got, want)
	}
}

func TestBuildWriteStatement(t *testing.T) {
	got := BuildWriteStatement("demands", []string{"id", "role", "status"}, "id")
	want := `INSERT INTO "demands" ("id", "role", "status") VALUES ($1, $2, $3) ON CONFLICT ("id") DO UPDATE SET "role" = EXCLUDED."role", "status" = EXCLUDED."status" RETURNING (xmax = 0) AS inserted`
	if got != want {
		t.Fatalf("BuildWriteStatement() = %q, want %q", got, want)
	}

	got = BuildWriteStatement("notes", []string{"body"}, "")
	if got != `INSERT INTO "notes" ("body") VALUES ($1)` {
		t.Fatalf("BuildWriteStatement() = %q", got)
	}

	got = BuildWriteStatement("keys", []string{"id"}, "id")
	want = `INSERT INTO "keys" ("id") VALUES ($1) ON CONFLICT ("id") DO UPDATE SET "id" = EXCLUDED."id" RETURNING (xmax = 0) AS inserted`
	if got != want {
		t.Fatalf("BuildWriteStatement() = %q, want %q", got, want)
	}
}

func TestNormalizeNames(t *testing.T) {
	columns, err := NormalizeColumns([]string{"Role Code", " Billing Rate ", "ID"})
	if err != nil {
		t.Fatalf("NormalizeColumns() error = %v", err)
	}
	want := []string{"role_code", "billing_rate", "id"}
	for i := range want {
		if columns[i] != want[i] {
			t.Fatalf("NormalizeColumns() = %v, want %v", columns, want)
		}
	}

	for _, bad := range [][]string{{"a-b"}, {"1st"}, {"x", "X"}, {""}} {
		if _, err := NormalizeColumns(bad); err == nil {
			t.Fatalf("NormalizeColumns(%v) expected error", bad)
		}
	}

	table, err := NormalizeTableName(" Demands ")
	if err != nil || table != "demands" {
		t.Fatalf("NormalizeTableName() = %q, %v", table, err)
	}
	if _, err := NormalizeTableName(`demands"; drop table x`); err == nil {
		t.Fatal("expected invalid table name error")
	}
}
