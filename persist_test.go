package main

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
)

func TestResultStorePaths(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(store.JSONPath(), "_videos.json") {
		t.Errorf("JSONPath() = %s", store.JSONPath())
	}
	if !strings.HasSuffix(store.CSVPath(), "_videos.csv") {
		t.Errorf("CSVPath() = %s", store.CSVPath())
	}
	if !strings.HasSuffix(store.XLSXPath(), "_videos.xlsx") {
		t.Errorf("XLSXPath() = %s", store.XLSXPath())
	}
	if _, err := os.Stat(store.DebugDir()); err != nil {
		t.Errorf("debug dir not created: %v", err)
	}
}

func TestCommitAfterEveryRecord(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	firstPath := store.JSONPath()
	for i, id := range []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"} {
		store.Append(&VideoRecord{VideoID: id, Title: "t" + id})
		if err := store.Commit(); err != nil {
			t.Fatalf("Commit %d: %v", i+1, err)
		}

		// The artifact name never changes and always parses with every
		// record committed so far.
		if store.JSONPath() != firstPath {
			t.Fatalf("artifact path changed mid-run: %s vs %s", store.JSONPath(), firstPath)
		}
		data, err := os.ReadFile(firstPath)
		if err != nil {
			t.Fatal(err)
		}
		var records []VideoRecord
		if err := json.Unmarshal(data, &records); err != nil {
			t.Fatalf("artifact not valid JSON after commit %d: %v", i+1, err)
		}
		if len(records) != i+1 {
			t.Fatalf("artifact has %d records after commit %d", len(records), i+1)
		}
		if records[i].VideoID != id {
			t.Errorf("records out of order: got %s at %d", records[i].VideoID, i)
		}
	}
}

func TestCommitEmptyStore(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	data, err := os.ReadFile(store.JSONPath())
	if err != nil {
		t.Fatal(err)
	}
	var records []VideoRecord
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("empty artifact not valid JSON: %v (%s)", err, data)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

func TestCommitCSVRendering(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store.Append(&VideoRecord{
		VideoID:   "aaaaaaaaaaa",
		Title:     "A Video",
		ViewCount: 1234,
		Tags:      []string{"go", "testing"},
	})
	if err := store.Commit(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(store.CSVPath())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want header + 1", len(rows))
	}
	if len(rows[0]) != len(csvColumns) {
		t.Errorf("header has %d columns, want %d", len(rows[0]), len(csvColumns))
	}
	if rows[1][0] != "aaaaaaaaaaa" || rows[1][3] != "1234" {
		t.Errorf("unexpected row: %v", rows[1])
	}
	if rows[1][8] != `["go","testing"]` {
		t.Errorf("tags cell = %q, want JSON list", rows[1][8])
	}
}

func TestCommitXLSXRendering(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	store.Append(&VideoRecord{VideoID: "aaaaaaaaaaa", Title: "A Video"})
	if err := store.Commit(); err != nil {
		t.Fatal(err)
	}

	f, err := excelize.OpenFile(store.XLSXPath())
	if err != nil {
		t.Fatalf("opening xlsx: %v", err)
	}
	defer f.Close()
	got, err := f.GetCellValue("Videos", "A2")
	if err != nil {
		t.Fatal(err)
	}
	if got != "aaaaaaaaaaa" {
		t.Errorf("Videos!A2 = %q, want aaaaaaaaaaa", got)
	}
}

func TestLogFailureAppends(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	entries := []*FailedVideo{
		{VideoID: "xxxxxxxxxxx", Reason: "blocked", Attempts: 3, FailedAt: now},
		{VideoID: "yyyyyyyyyyy", Reason: "transient_error", Attempts: 3, FailedAt: now},
	}
	for _, e := range entries {
		if err := store.LogFailure(e); err != nil {
			t.Fatalf("LogFailure: %v", err)
		}
	}

	f, err := os.Open(store.FailureLogPath())
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if rows[0][0] != "video_id" {
		t.Errorf("header = %v", rows[0])
	}
	if rows[1][0] != "xxxxxxxxxxx" || rows[1][1] != "blocked" || rows[1][2] != "3" {
		t.Errorf("first entry = %v", rows[1])
	}
	if rows[2][3] != "2026-08-01T12:00:00Z" {
		t.Errorf("timestamp = %q", rows[2][3])
	}
}
