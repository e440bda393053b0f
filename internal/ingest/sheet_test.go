package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestParseSpreadsheetCSV(t *testing.T) {
	data := []byte("ID,Role Code,Score,Active,Joined\n1,RC1,9.5,true,2024-01-02\n2,RC2,,false,2024-02-03\n")
	sheet, err := ParseSpreadsheet(context.Background(), "demands.CSV", data)
	if err != nil {
		t.Fatalf("ParseSpreadsheet() error = %v", err)
	}

	wantColumns := []string{"id", "role_code", "score", "active", "joined"}
	wantTypes := []ColumnType{TypeInteger, TypeText, TypeFloat, TypeBoolean, TypeTimestamp}
	for i := range wantColumns {
		if sheet.Columns[i] != wantColumns[i] || sheet.Types[i] != wantTypes[i] {
			t.Fatalf("column %d = %s %s, want %s %s", i, sheet.Columns[i], sheet.Types[i], wantColumns[i], wantTypes[i])
		}
	}
	if len(sheet.Rows) != 2 {
		t.Fatalf("rows = %d", len(sheet.Rows))
	}
	if sheet.Rows[0][0] != int64(1) || sheet.Rows[0][1] != "RC1" || sheet.Rows[0][3] != true {
		t.Fatalf("row 0 = %#v", sheet.Rows[0])
	}
	if sheet.Rows[1][2] != nil {
		t.Fatalf("blank score = %#v, want nil", sheet.Rows[1][2])
	}
	if _, ok := sheet.Rows[0][4].(time.Time); !ok {
		t.Fatalf("joined = %T, want time.Time", sheet.Rows[0][4])
	}
}

func TestParseSpreadsheetCSVWideIntegers(t *testing.T) {
	data := []byte("id,phone\n1,9876543210\n2,4155550100\n")
	sheet, err := ParseSpreadsheet(context.Background(), "contacts.csv", data)
	if err != nil {
		t.Fatalf("ParseSpreadsheet() error = %v", err)
	}
	if sheet.Types[1] != TypeInteger {
		t.Fatalf("phone type = %s, want %s", sheet.Types[1], TypeInteger)
	}
	if sheet.Rows[0][1] != int64(9876543210) {
		t.Fatalf("phone = %#v", sheet.Rows[0][1])
	}
	got := BuildCreateTable("contacts", sheet, "id")
	want := `CREATE TABLE "contacts" ("id" BIGINT, "phone" BIGINT, PRIMARY KEY ("id"))`
	if got != want {
		t.Fatalf("BuildCreateTable() = %q, want %q", got, want)
	}
}

func TestParseSpreadsheetXLSX(t *testing.T) {
	file := excelize.NewFile()
	rows := [][]any{
		{"Project ID", "Role", "Allocation Percentage", "Billable", "Start"},
		{"P-1", "Backend Engineer", "50", "TRUE", "2024-03-01"},
		{"P-2", "NaN", "", "false", "2024-04-01"},
		{},
		{"P-3", "QA Lead", "75.5", "true", ""},
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := file.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatalf("SetSheetRow() error = %v", err)
		}
	}
	buf, err := file.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer() error = %v", err)
	}

	sheet, err := ParseSpreadsheet(context.Background(), "plan.xlsx", buf.Bytes())
	if err != nil {
		t.Fatalf("ParseSpreadsheet() error = %v", err)
	}
	wantColumns := []string{"project_id", "role", "allocation_percentage", "billable", "start"}
	wantTypes := []ColumnType{TypeText, TypeText, TypeFloat, TypeBoolean, TypeTimestamp}
	for i := range wantColumns {
		if sheet.Columns[i] != wantColumns[i] || sheet.Types[i] != wantTypes[i] {
			t.Fatalf("column %d = %s %s, want %s %s", i, sheet.Columns[i], sheet.Types[i], wantColumns[i], wantTypes[i])
		}
	}
	if len(sheet.Rows) != 3 {
		t.Fatalf("rows = %d, want blank row dropped", len(sheet.Rows))
	}
	if sheet.Rows[1][1] != nil || sheet.Rows[1][2] != nil {
		t.Fatalf("row 1 = %#v, want missing markers as nil", sheet.Rows[1])
	}
	if sheet.Rows[2][2] != 75.5 || sheet.Rows[0][3] != true {
		t.Fatalf("typed values = %#v / %#v", sheet.Rows[2][2], sheet.Rows[0][3])
	}
	if sheet.Rows[2][4] != nil {
		t.Fatalf("blank start = %#v", sheet.Rows[2][4])
	}
}

func TestParseSpreadsheetRejectsEmptyInput(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty.csv":   nil,
		"header.csv":  []byte("id,name\n"),
		"garbage.xls": []byte("not a workbook"),
	} {
		if _, err := ParseSpreadsheet(context.Background(), name, data); !errors.Is(err, ErrInvalidUpload) {
			t.Fatalf("ParseSpreadsheet(%s) error = %v, want ErrInvalidUpload", name, err)
		}
	}
}

func TestInferTextType(t *testing.T) {
	tests := []struct {
		values []string
		want   ColumnType
	}{
		{values: []string{"1", "-2"}, want: TypeInteger},
		{values: []string{"9876543210", "4"}, want: TypeInteger},
		{values: []string{"1", "2.5"}, want: TypeFloat},
		{values: []string{"True", "false"}, want: TypeBoolean},
		{values: []string{"2024-01-02", "2024-01-03 10:00:00"}, want: TypeTimestamp},
		{values: []string{"1", "x"}, want: TypeText},
		{values: nil, want: TypeText},
	}
	for _, tt := range tests {
		if got := inferTextType(tt.values); got != tt.want {
			t.Fatalf("inferTextType(%v) = %s, want %s", tt.values, got, tt.want)
		}
	}
}
