package eod

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"kis-trading-bot/internal/tradelog"
)

func writeJournal(t *testing.T, dir string, day time.Time, lines string) {
	t.Helper()
	path := filepath.Join(dir, day.Format("2006-01-02")+".txt")
	if err := os.WriteFile(path, []byte(lines), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSummarizeDay(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)
	day := time.Date(2025, 6, 2, 12, 0, 0, 0, tradelog.KST)

	writeJournal(t, dir, day, `{"Symbol":"005930","Side":"BUY","Qty":10,"Price":100}
{"Symbol":"005930","Side":"SELL","Qty":10,"Price":110}
{"Symbol":"000660","Side":"BUY","Qty":5,"Price":200}
not json, skipped
`)

	outPath, err := SummarizeDay(day)
	if err != nil {
		t.Fatal(err)
	}
	if outPath == "" {
		t.Fatal("Expected a CSV path")
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// header + 2 symbols + total
	if len(rows) != 4 {
		t.Fatalf("Expected 4 rows, got %d: %v", len(rows), rows)
	}
	if rows[1][0] != "000660" || rows[2][0] != "005930" {
		t.Errorf("Expected symbols sorted, got %v %v", rows[1][0], rows[2][0])
	}
	// 005930 realized PnL: 10 matched shares at (110 - 100).
	if rows[2][5] != "100.00" {
		t.Errorf("Expected realized pnl 100.00, got %q", rows[2][5])
	}
	if rows[3][0] != "TOTAL" {
		t.Errorf("Expected TOTAL row, got %v", rows[3])
	}
}

func TestSummarizeDayNoJournal(t *testing.T) {
	t.Setenv("TRADER_LOG_DIR", t.TempDir())

	outPath, err := SummarizeDay(time.Date(2025, 6, 2, 0, 0, 0, 0, tradelog.KST))
	if err != nil {
		t.Fatal(err)
	}
	if outPath != "" {
		t.Errorf("Expected no CSV for missing journal, got %q", outPath)
	}
}

func TestSummarizeDayUnparseableOnly(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADER_LOG_DIR", dir)
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, tradelog.KST)
	writeJournal(t, dir, day, "garbage\nmore garbage\n")

	outPath, err := SummarizeDay(day)
	if err != nil {
		t.Fatal(err)
	}
	if outPath != "" {
		t.Errorf("Expected no CSV when nothing parses, got %q", outPath)
	}
}
