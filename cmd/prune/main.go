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

// prune drops failure-log rows whose videos were later scraped successfully,
// so --retry-failed stops re-attempting them.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: prune <results-directory>")
	}
	resultsDir := os.Args[1]

	completed, err := completedIDs(resultsDir)
	if err != nil {
		log.Fatal(err)
	}

	failureLog := filepath.Join(resultsDir, "failed.csv")
	removed, kept, err := pruneFailureLog(failureLog, completed)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("Pruned %s: %d entries removed, %d kept", failureLog, removed, kept)
}

func completedIDs(resultsDir string) (map[string]bool, error) {
	artifacts, err := filepath.Glob(filepath.Join(resultsDir, "*_videos.json"))
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", resultsDir, err)
	}
	completed := make(map[string]bool)
	for _, artifact := range artifacts {
		data, err := os.ReadFile(artifact)
		if err != nil {
			log.Printf("Skipping %s: %v", artifact, err)
			continue
		}
		var records []struct {
			VideoID string `json:"video_id"`
		}
		if err := json.Unmarshal(data, &records); err != nil {
			log.Printf("Skipping malformed %s: %v", artifact, err)
			continue
		}
		for _, r := range records {
			if r.VideoID != "" {
				completed[r.VideoID] = true
			}
		}
	}
	return completed, nil
}

func pruneFailureLog(path string, completed map[string]bool) (removed, kept int, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	f.Close()
	if err != nil {
		return 0, 0, fmt.Errorf("parsing %s: %w", path, err)
	}

	out := [][]string{{"video_id", "reason", "attempts", "failed_at"}}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		id := strings.TrimSpace(row[0])
		if id == "" || (i == 0 && id == "video_id") {
			continue
		}
		if completed[id] {
			removed++
			continue
		}
		kept++
		out = append(out, row)
	}

	tmp := path + ".tmp"
	w, err := os.Create(tmp)
	if err != nil {
		return 0, 0, fmt.Errorf("creating %s: %w", tmp, err)
	}
	writer := csv.NewWriter(w)
	if err := writer.WriteAll(out); err != nil {
		w.Close()
		return 0, 0, fmt.Errorf("writing %s: %w", tmp, err)
	}
	writer.Flush()
	if err := w.Close(); err != nil {
		return 0, 0, err
	}
	return removed, kept, os.Rename(tmp, path)
}
