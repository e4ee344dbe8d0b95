package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// Ledger holds the work already settled by prior runs: IDs recovered from
// every prior output artifact, and IDs from the failure log. Failures logged
// by the current run become visible to the next run only.
type Ledger struct {
	completed map[string]struct{}
	failed    []string
	failedSet map[string]struct{}
}

// LoadLedger scans resultsDir for prior output artifacts and reads the
// failure log. A missing directory or log yields an empty ledger; an
// unreadable artifact is skipped with a warning rather than failing the run.
func LoadLedger(resultsDir, failureLog string) (*Ledger, error) {
	l := &Ledger{
		completed: make(map[string]struct{}),
		failedSet: make(map[string]struct{}),
	}

	artifacts, err := filepath.Glob(filepath.Join(resultsDir, "*_videos.json"))
	if err != nil {
		return nil, fmt.Errorf("scanning results directory: %w", err)
	}
	for _, artifact := range artifacts {
		data, err := os.ReadFile(artifact)
		if err != nil {
			log.Printf("Skipping unreadable artifact %s: %v", filepath.Base(artifact), err)
			continue
		}
		var records []VideoRecord
		if err := json.Unmarshal(data, &records); err != nil {
			log.Printf("Skipping malformed artifact %s: %v", filepath.Base(artifact), err)
			continue
		}
		for _, r := range records {
			if r.VideoID != "" {
				l.completed[r.VideoID] = struct{}{}
			}
		}
	}

	f, err := os.Open(failureLog)
	if err != nil {
		if os.IsNotExist(err) {
			return l, nil
		}
		return nil, fmt.Errorf("opening failure log: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing failure log: %w", err)
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		id := strings.TrimSpace(row[0])
		if id == "" || (i == 0 && id == "video_id") {
			continue
		}
		if _, seen := l.failedSet[id]; seen {
			continue
		}
		l.failedSet[id] = struct{}{}
		l.failed = append(l.failed, id)
	}
	return l, nil
}

// IsDuplicate reports whether the video already appears in a prior artifact.
func (l *Ledger) IsDuplicate(videoID string) bool {
	_, ok := l.completed[videoID]
	return ok
}

// FailedIDs returns the previously failed videos in log order, deduplicated.
func (l *Ledger) FailedIDs() []string {
	out := make([]string, len(l.failed))
	copy(out, l.failed)
	return out
}

// CompletedCount reports how many videos prior runs finished.
func (l *Ledger) CompletedCount() int { return len(l.completed) }
