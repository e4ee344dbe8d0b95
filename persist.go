package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"
)

const failureLogName = "failed.csv"

// csvColumns is the fixed column order shared by the CSV and XLSX renderings.
var csvColumns = []string{
	"video_id", "title", "description", "view_count", "like_count",
	"comment_count", "upload_date", "duration_seconds", "tags", "is_live",
	"video_category", "thumbnail_urls", "description_emails", "description_urls",
	"channel_name", "channel_url", "channel_id", "channel_handle",
	"channel_description", "channel_country", "business_email", "social_links",
	"contact_source", "channel_subscriber_count", "channel_video_count",
	"channel_view_count", "extraction_path", "field_sources",
}

// ResultStore owns the run's accumulated records and their durable mirror.
// The artifact basename is derived once at construction and never changes,
// so a run that dies mid-way leaves one artifact holding every record
// committed so far.
type ResultStore struct {
	dir        string
	base       string
	failureLog string
	records    []*VideoRecord
}

// NewResultStore prepares the results directory (and its debug subdirectory)
// and fixes the artifact basename for this run.
func NewResultStore(dir string) (*ResultStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "debug"), 0755); err != nil {
		return nil, fmt.Errorf("creating results directory: %w", err)
	}
	return &ResultStore{
		dir:        dir,
		base:       time.Now().Format("2006-01-02_1504") + "_videos",
		failureLog: filepath.Join(dir, failureLogName),
		records:    []*VideoRecord{},
	}, nil
}

// Append adds one completed record to the in-memory result set.
func (s *ResultStore) Append(rec *VideoRecord) { s.records = append(s.records, rec) }

// Records returns the accumulated result set in completion order.
func (s *ResultStore) Records() []*VideoRecord { return s.records }

// Len reports how many records have been accumulated.
func (s *ResultStore) Len() int { return len(s.records) }

// JSONPath is the authoritative artifact for this run.
func (s *ResultStore) JSONPath() string { return filepath.Join(s.dir, s.base+".json") }

// CSVPath is the flat rendering of the artifact.
func (s *ResultStore) CSVPath() string { return filepath.Join(s.dir, s.base+".csv") }

// XLSXPath is the spreadsheet rendering of the artifact.
func (s *ResultStore) XLSXPath() string { return filepath.Join(s.dir, s.base+".xlsx") }

// FailureLogPath is the cross-run append-only failure log.
func (s *ResultStore) FailureLogPath() string { return s.failureLog }

// DebugDir holds challenge-page snapshots for later inspection.
func (s *ResultStore) DebugDir() string { return filepath.Join(s.dir, "debug") }

// Commit rewrites every rendering of the result set in full. JSON and CSV
// write errors abort the run's durability promise and are returned; an XLSX
// rendering failure is logged and tolerated since the JSON artifact is
// authoritative.
func (s *ResultStore) Commit() error {
	if err := s.writeJSON(); err != nil {
		return fmt.Errorf("writing json artifact: %w", err)
	}
	if err := s.writeCSV(); err != nil {
		return fmt.Errorf("writing csv artifact: %w", err)
	}
	if err := s.writeXLSX(); err != nil {
		log.Printf("Warning: xlsx rendering failed: %v", err)
	}
	return nil
}

// LogFailure appends one entry to the shared failure log, creating it with a
// header row on first use.
func (s *ResultStore) LogFailure(f *FailedVideo) error {
	_, statErr := os.Stat(s.failureLog)
	file, err := os.OpenFile(s.failureLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening failure log: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if os.IsNotExist(statErr) {
		if err := w.Write([]string{"video_id", "reason", "attempts", "failed_at"}); err != nil {
			return fmt.Errorf("writing failure log header: %w", err)
		}
	}
	if err := w.Write([]string{
		f.VideoID, f.Reason, strconv.Itoa(f.Attempts),
		f.FailedAt.UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("writing failure log entry: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (s *ResultStore) writeJSON() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(s.JSONPath(), data)
}

func (s *ResultStore) writeCSV() error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvColumns); err != nil {
		return err
	}
	for _, rec := range s.records {
		if err := w.Write(rec.flatRow()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return atomicWrite(s.CSVPath(), buf.Bytes())
}

func (s *ResultStore) writeXLSX() error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Videos"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}
	header := make([]interface{}, len(csvColumns))
	for i, col := range csvColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, rec := range s.records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		flat := rec.flatRow()
		row := make([]interface{}, len(flat))
		for j, v := range flat {
			row[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return err
	}
	return atomicWrite(s.XLSXPath(), buf.Bytes())
}

// atomicWrite writes through a temp file and renames it over the target, so
// a crash mid-write never leaves a truncated artifact behind.
func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// flatRow renders the record into the fixed csvColumns order. List and map
// fields become JSON cells; zero counts render empty to keep absent values
// distinguishable.
func (r *VideoRecord) flatRow() []string {
	return []string{
		r.VideoID,
		r.Title,
		r.Description,
		intCell(r.ViewCount),
		intCell(r.LikeCount),
		intCell(r.CommentCount),
		r.UploadDate,
		intCell(int64(r.DurationSeconds)),
		jsonCell(r.Tags),
		strconv.FormatBool(r.IsLive),
		r.VideoCategory,
		jsonCell(r.ThumbnailURLs),
		jsonCell(r.DescriptionEmails),
		jsonCell(r.DescriptionURLs),
		r.ChannelName,
		r.ChannelURL,
		r.ChannelID,
		r.ChannelHandle,
		r.ChannelDescription,
		r.ChannelCountry,
		r.BusinessEmail,
		jsonCell(r.SocialLinks),
		jsonCell(r.ContactSource),
		intCell(r.ChannelSubscriberCount),
		intCell(r.ChannelVideoCount),
		intCell(r.ChannelViewCount),
		r.ExtractionPath,
		jsonCell(r.FieldSources),
	}
}

func intCell(n int64) string {
	if n == 0 {
		return ""
	}
	return strconv.FormatInt(n, 10)
}

func jsonCell(v interface{}) string {
	switch t := v.(type) {
	case []string:
		if len(t) == 0 {
			return ""
		}
	case map[string]string:
		if len(t) == 0 {
			return ""
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}
