package sink

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/invoice-watcher/internal/common"
)

func TestXLSXCreatesHeaderOnFirstAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoices.xlsx")
	x := NewXLSX(path, "Sheet1", nil)

	if err := x.Append(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("append: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (header + record)", len(rows))
	}
	if rows[0][0] != "Vendor" || rows[0][3] != "Processed Time" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "Acme Corp" {
		t.Errorf("first cell = %q, want vendor", rows[1][0])
	}
}

func TestXLSXHeaderStableAcrossAppends(t *testing.T) {
	// WHAT: appending N records never changes the established header's order.
	path := filepath.Join(t.TempDir(), "invoices.xlsx")
	x := NewXLSX(path, "Sheet1", nil)

	for i := 0; i < 3; i++ {
		if err := x.Append(context.Background(), sampleRecord()); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("rows = %d, want 4", len(rows))
	}
	if rows[0][0] != "Vendor" || rows[0][1] != "Invoice Date" || rows[0][2] != "Total Amount" {
		t.Errorf("header changed: %v", rows[0])
	}
}

func TestXLSXRespectsExistingHeaderOrder(t *testing.T) {
	// WHAT: a pre-existing header with its own order is followed, not rewritten.
	path := filepath.Join(t.TempDir(), "invoices.xlsx")

	f := excelize.NewFile()
	header := []any{"Total Amount", "Vendor"}
	if err := f.SetSheetRow("Sheet1", "A1", &header); err != nil {
		t.Fatal(err)
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}
	_ = f.Close()

	x := NewXLSX(path, "Sheet1", nil)
	if err := x.Append(context.Background(), sampleRecord()); err != nil {
		t.Fatalf("append: %v", err)
	}

	out, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	rows, err := out.GetRows("Sheet1")
	if err != nil {
		t.Fatal(err)
	}
	if rows[0][0] != "Total Amount" || rows[0][1] != "Vendor" {
		t.Errorf("header reordered: %v", rows[0])
	}
	if rows[1][1] != "Acme Corp" {
		t.Errorf("vendor cell = %q, want under Vendor column", rows[1][1])
	}
}

func TestSpreadsheetIDFromURL(t *testing.T) {
	id, err := SpreadsheetIDFromURL("https://docs.google.com/spreadsheets/d/1AbC_def-123/edit#gid=0")
	if err != nil {
		t.Fatal(err)
	}
	if id != "1AbC_def-123" {
		t.Errorf("id = %q", id)
	}

	if _, err := SpreadsheetIDFromURL("https://example.com/not-a-sheet"); err == nil {
		t.Error("expected error for non-sheet URL")
	}
}

func TestNewResolvesBackendByDestination(t *testing.T) {
	cfg := common.SinkConfig{WorksheetName: "Sheet1"}

	a, err := New(cfg, "https://docs.google.com/spreadsheets/d/abc123/edit", nil)
	if err != nil {
		t.Fatalf("sheets destination: %v", err)
	}
	if _, ok := a.(*Sheets); !ok {
		t.Errorf("backend = %T, want *Sheets", a)
	}

	a, err = New(cfg, filepath.Join(t.TempDir(), "out.xlsx"), nil)
	if err != nil {
		t.Fatalf("xlsx destination: %v", err)
	}
	if _, ok := a.(*XLSX); !ok {
		t.Errorf("backend = %T, want *XLSX", a)
	}

	if _, err := New(cfg, "ftp://nowhere", nil); err == nil {
		t.Error("expected error for unsupported destination")
	}
}
