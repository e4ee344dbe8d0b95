package main

import (
	"fmt"
	"log"
	"strings"
)

// Orchestrator wires the ledger, the attempt controller and the result store
// into one strictly sequential run.
type Orchestrator struct {
	controller *AttemptController
	ledger     *Ledger
	store      *ResultStore
	enricher   *YouTubeAPI
	locator    *ChannelLocator
	notifier   *SummaryNotifier
	maxListing int
}

// Run processes targets end to end and returns the run summary. Item
// failures are absorbed into the summary; only a broken durability promise
// (a failed commit or failure-log append) surfaces as an error.
func (o *Orchestrator) Run(targets []string, retryFailed bool) (*Summary, error) {
	summary := &Summary{}
	queue := o.buildQueue(targets, retryFailed, summary)
	if len(queue) == 0 {
		log.Printf("Nothing to do: queue is empty")
		return summary, nil
	}

	log.Printf("Processing %d videos...", len(queue))
	for i, videoID := range queue {
		log.Printf("[%d/%d] Processing %s", i+1, len(queue), videoID)
		summary.Attempted++

		record, failure := o.controller.Process(videoID)
		if failure != nil {
			summary.Failed++
			log.Printf("  ✗ Giving up on %s after %d attempts (%s)", videoID, failure.Attempts, failure.Reason)
			if err := o.store.LogFailure(failure); err != nil {
				return summary, fmt.Errorf("recording failure for %s: %w", videoID, err)
			}
		} else {
			summary.Succeeded++
			o.store.Append(record)
			log.Printf("  ✓ Scraped %s (channel: %s)", videoID, orUnknown(record.ChannelName))
		}

		if err := o.store.Commit(); err != nil {
			return summary, fmt.Errorf("committing results after %s: %w", videoID, err)
		}
	}

	if o.store.Len() > 0 {
		log.Printf("Enriching %d records...", o.store.Len())
		if err := o.enricher.Enrich(o.store.Records()); err != nil {
			log.Printf("Warning: enrichment incomplete: %v", err)
		}
		o.locator.Locate(o.store.Records())
		summary.APICalls = o.enricher.Calls()
		if err := o.store.Commit(); err != nil {
			return summary, fmt.Errorf("committing enriched results: %w", err)
		}
	}

	if o.notifier != nil {
		if err := o.notifier.Send(summary, o.store.JSONPath()); err != nil {
			log.Printf("Warning: %v", err)
		}
	}
	return summary, nil
}

// buildQueue resolves raw targets into a deduplicated video ID queue. In
// retry mode the queue is exactly the previously failed IDs and the supplied
// targets are ignored. In normal mode search listings are expanded and
// already-scraped videos are skipped.
func (o *Orchestrator) buildQueue(targets []string, retryFailed bool, summary *Summary) []string {
	if retryFailed {
		ids := o.ledger.FailedIDs()
		log.Printf("Retry mode: %d previously failed videos", len(ids))
		return ids
	}

	var queue []string
	seen := make(map[string]bool)
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		if o.ledger.IsDuplicate(id) {
			summary.DuplicatesSkipped++
			log.Printf("Skipping %s: already scraped in a previous run", id)
			return
		}
		queue = append(queue, id)
	}

	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" {
			continue
		}
		if isSearchURL(target) {
			log.Printf("Expanding search results: %s", target)
			ids, err := o.controller.ExpandListing(target, o.maxListing)
			if err != nil {
				log.Printf("✗ Could not expand search results: %v", err)
				continue
			}
			log.Printf("  ✓ Found %d videos", len(ids))
			for _, id := range ids {
				add(id)
			}
			continue
		}
		id := extractVideoID(target)
		if id == "" {
			log.Printf("Skipping unrecognized URL: %s", target)
			continue
		}
		add(id)
	}
	return queue
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
