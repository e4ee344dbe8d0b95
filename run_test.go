package main

import (
	"encoding/json"
	"os"
	"reflect"
	"testing"
)

func newTestLedger(completed, failed []string) *Ledger {
	l := &Ledger{
		completed: make(map[string]struct{}),
		failedSet: make(map[string]struct{}),
	}
	for _, id := range completed {
		l.completed[id] = struct{}{}
	}
	for _, id := range failed {
		l.failedSet[id] = struct{}{}
		l.failed = append(l.failed, id)
	}
	return l
}

func newTestOrchestrator(t *testing.T, fetcher Fetcher, ledger *Ledger) (*Orchestrator, *ResultStore) {
	t.Helper()
	store, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	pool := NewProxyPool(testProxies("p1:80", "p2:80"), 4, 5)
	return &Orchestrator{
		controller: NewAttemptController(pool, fetcher, 3),
		ledger:     ledger,
		store:      store,
		enricher:   NewYouTubeAPI(""), // no key, enrichment skipped
		notifier:   NewSummaryNotifier(NotifySettings{}),
		maxListing: 50,
	}, store
}

func watchURL(id string) string { return "https://www.youtube.com/watch?v=" + id }

func readArtifact(t *testing.T, store *ResultStore) []VideoRecord {
	t.Helper()
	data, err := os.ReadFile(store.JSONPath())
	if err != nil {
		t.Fatal(err)
	}
	var records []VideoRecord
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatal(err)
	}
	return records
}

func TestRunAllSucceed(t *testing.T) {
	ids := []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc", "ddddddddddd", "eeeeeeeeeee"}
	videos := make(map[string][]FetchResult)
	var targets []string
	for _, id := range ids {
		videos[id] = []FetchResult{okFetch(id)}
		targets = append(targets, watchURL(id))
	}
	fetcher := &scriptedFetcher{videos: videos}
	orch, store := newTestOrchestrator(t, fetcher, newTestLedger(nil, nil))

	summary, err := orch.Run(targets, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := Summary{Attempted: 5, Succeeded: 5}
	if *summary != want {
		t.Errorf("summary = %+v, want %+v", *summary, want)
	}

	records := readArtifact(t, store)
	if len(records) != 5 {
		t.Fatalf("artifact has %d records, want 5", len(records))
	}
	for i, rec := range records {
		if rec.VideoID != ids[i] {
			t.Errorf("record %d = %s, want %s (input order)", i, rec.VideoID, ids[i])
		}
	}
	if _, err := os.Stat(store.FailureLogPath()); !os.IsNotExist(err) {
		t.Error("failure log created on a clean run")
	}
}

func TestRunSkipsDuplicates(t *testing.T) {
	fetcher := &scriptedFetcher{videos: map[string][]FetchResult{
		"ddddddddddd": {okFetch("ddddddddddd")},
	}}
	ledger := newTestLedger([]string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"}, nil)
	orch, store := newTestOrchestrator(t, fetcher, ledger)

	summary, err := orch.Run([]string{
		watchURL("aaaaaaaaaaa"), watchURL("bbbbbbbbbbb"),
		watchURL("ccccccccccc"), watchURL("ddddddddddd"),
	}, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Attempted != 1 || summary.Succeeded != 1 || summary.DuplicatesSkipped != 3 {
		t.Errorf("summary = %+v", *summary)
	}
	if !reflect.DeepEqual(fetcher.calls, []string{"ddddddddddd"}) {
		t.Errorf("fetched %v, want only ddddddddddd", fetcher.calls)
	}
	records := readArtifact(t, store)
	if len(records) != 1 || records[0].VideoID != "ddddddddddd" {
		t.Errorf("artifact = %v", records)
	}
}

func TestRunRetryModeIgnoresTargets(t *testing.T) {
	fetcher := &scriptedFetcher{videos: map[string][]FetchResult{
		"xxxxxxxxxxx": {okFetch("xxxxxxxxxxx")},
		"yyyyyyyyyyy": {okFetch("yyyyyyyyyyy")},
	}}
	ledger := newTestLedger([]string{"aaaaaaaaaaa"}, []string{"xxxxxxxxxxx", "yyyyyyyyyyy"})
	orch, _ := newTestOrchestrator(t, fetcher, ledger)

	summary, err := orch.Run([]string{watchURL("aaaaaaaaaaa"), watchURL("zzzzzzzzzzz")}, true)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !reflect.DeepEqual(fetcher.calls, []string{"xxxxxxxxxxx", "yyyyyyyyyyy"}) {
		t.Errorf("retry mode fetched %v, want exactly the failed IDs", fetcher.calls)
	}
	if summary.Attempted != 2 || summary.Succeeded != 2 {
		t.Errorf("summary = %+v", *summary)
	}
}

func TestRunLogsTerminalFailureAndContinues(t *testing.T) {
	fetcher := &scriptedFetcher{videos: map[string][]FetchResult{
		"aaaaaaaaaaa": {blockedFetch(), blockedFetch(), blockedFetch()},
		"bbbbbbbbbbb": {okFetch("bbbbbbbbbbb")},
	}}
	orch, store := newTestOrchestrator(t, fetcher, newTestLedger(nil, nil))

	summary, err := orch.Run([]string{watchURL("aaaaaaaaaaa"), watchURL("bbbbbbbbbbb")}, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Attempted != 2 || summary.Succeeded != 1 || summary.Failed != 1 {
		t.Errorf("summary = %+v", *summary)
	}

	// Failure is durable and visible to the next run's ledger.
	ledger, err := LoadLedger(store.dir, store.FailureLogPath())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ledger.FailedIDs(), []string{"aaaaaaaaaaa"}) {
		t.Errorf("FailedIDs = %v", ledger.FailedIDs())
	}

	records := readArtifact(t, store)
	if len(records) != 1 || records[0].VideoID != "bbbbbbbbbbb" {
		t.Errorf("artifact = %v", records)
	}
}

func TestRunExpandsSearchListing(t *testing.T) {
	search := "https://www.youtube.com/results?search_query=sourdough"
	fetcher := &scriptedFetcher{
		videos: map[string][]FetchResult{
			"aaaaaaaaaaa": {okFetch("aaaaaaaaaaa")},
			"ccccccccccc": {okFetch("ccccccccccc")},
		},
		listings: map[string][]ListingResult{
			search: {{Status: FetchOK, VideoIDs: []string{"aaaaaaaaaaa", "bbbbbbbbbbb", "ccccccccccc"}}},
		},
	}
	// bbbbbbbbbbb was scraped before; the expansion must not re-queue it.
	ledger := newTestLedger([]string{"bbbbbbbbbbb"}, nil)
	orch, _ := newTestOrchestrator(t, fetcher, ledger)

	summary, err := orch.Run([]string{search}, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Attempted != 2 || summary.Succeeded != 2 || summary.DuplicatesSkipped != 1 {
		t.Errorf("summary = %+v", *summary)
	}
}

func TestRunSkipsFailedListingExpansion(t *testing.T) {
	search := "https://www.youtube.com/results?search_query=sourdough"
	fetcher := &scriptedFetcher{
		videos: map[string][]FetchResult{
			"aaaaaaaaaaa": {okFetch("aaaaaaaaaaa")},
		},
		listings: map[string][]ListingResult{},
	}
	orch, store := newTestOrchestrator(t, fetcher, newTestLedger(nil, nil))

	summary, err := orch.Run([]string{search, watchURL("aaaaaaaaaaa")}, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// The listing URL is not a video: it is skipped, not logged as failed.
	if summary.Attempted != 1 || summary.Succeeded != 1 || summary.Failed != 0 {
		t.Errorf("summary = %+v", *summary)
	}
	if _, err := os.Stat(store.FailureLogPath()); !os.IsNotExist(err) {
		t.Error("failure log written for a listing expansion")
	}
}

func TestRunEmptyQueue(t *testing.T) {
	fetcher := &scriptedFetcher{}
	orch, _ := newTestOrchestrator(t, fetcher, newTestLedger(nil, nil))

	summary, err := orch.Run([]string{"not a youtube url"}, false)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Attempted != 0 {
		t.Errorf("summary = %+v", *summary)
	}
	if len(fetcher.calls) != 0 {
		t.Errorf("fetcher called for an empty queue: %v", fetcher.calls)
	}
}
