package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeArtifact(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadLedger(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "2026-01-01_0900_videos.json",
		`[{"video_id":"aaaaaaaaaaa"},{"video_id":"bbbbbbbbbbb"}]`)
	writeArtifact(t, dir, "2026-01-02_1400_videos.json",
		`[{"video_id":"ccccccccccc"}]`)
	writeArtifact(t, dir, "notes.json", `{"not":"an artifact"}`)

	failureLog := filepath.Join(dir, "failed.csv")
	writeArtifact(t, dir, "failed.csv",
		"video_id,reason,attempts,failed_at\nxxxxxxxxxxx,blocked,3,2026-01-02T10:00:00Z\nyyyyyyyyyyy,transient_error,3,2026-01-02T10:05:00Z\nxxxxxxxxxxx,blocked,3,2026-01-03T09:00:00Z\n")

	ledger, err := LoadLedger(dir, failureLog)
	if err != nil {
		t.Fatalf("LoadLedger: %v", err)
	}

	for _, id := range []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"} {
		if !ledger.IsDuplicate(id) {
			t.Errorf("IsDuplicate(%s) = false, want true", id)
		}
	}
	if ledger.IsDuplicate("ddddddddddd") {
		t.Error("IsDuplicate(ddddddddddd) = true, want false")
	}
	if ledger.CompletedCount() != 3 {
		t.Errorf("CompletedCount() = %d, want 3", ledger.CompletedCount())
	}

	failed := ledger.FailedIDs()
	if len(failed) != 2 || failed[0] != "xxxxxxxxxxx" || failed[1] != "yyyyyyyyyyy" {
		t.Errorf("FailedIDs() = %v, want deduplicated [xxxxxxxxxxx yyyyyyyyyyy]", failed)
	}
}

func TestLoadLedgerEmpty(t *testing.T) {
	dir := t.TempDir()
	ledger, err := LoadLedger(dir, filepath.Join(dir, "failed.csv"))
	if err != nil {
		t.Fatalf("LoadLedger on empty dir: %v", err)
	}
	if ledger.CompletedCount() != 0 || len(ledger.FailedIDs()) != 0 {
		t.Errorf("expected empty ledger, got %d completed, %v failed",
			ledger.CompletedCount(), ledger.FailedIDs())
	}
}

func TestLoadLedgerSkipsMalformedArtifact(t *testing.T) {
	dir := t.TempDir()
	writeArtifact(t, dir, "2026-01-01_0900_videos.json", `{truncated`)
	writeArtifact(t, dir, "2026-01-02_0900_videos.json", `[{"video_id":"aaaaaaaaaaa"}]`)

	ledger, err := LoadLedger(dir, filepath.Join(dir, "failed.csv"))
	if err != nil {
		t.Fatalf("LoadLedger: %v", err)
	}
	if !ledger.IsDuplicate("aaaaaaaaaaa") {
		t.Error("readable artifact should still be loaded")
	}
	if ledger.CompletedCount() != 1 {
		t.Errorf("CompletedCount() = %d, want 1", ledger.CompletedCount())
	}
}
