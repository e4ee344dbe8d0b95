package main

import (
	"fmt"
	"log"
	"time"
)

const defaultMaxAttempts = 3

// Fetcher is the boundary to the page-fetching collaborator. Implementations
// must bound their own execution time and map every failure onto the closed
// FetchStatus set; they never report the pool themselves.
type Fetcher interface {
	FetchVideo(videoID string, proxy *Proxy) FetchResult
	FetchListing(searchURL string, proxy *Proxy, limit int) ListingResult
}

// AttemptController drives the bounded retry loop for a single work item,
// pulling the active descriptor from the pool before each attempt and
// reporting the outcome after it.
type AttemptController struct {
	pool        *ProxyPool
	fetcher     Fetcher
	maxAttempts int
}

// NewAttemptController builds a controller; a non-positive maxAttempts falls
// back to the default of 3.
func NewAttemptController(pool *ProxyPool, fetcher Fetcher, maxAttempts int) *AttemptController {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &AttemptController{pool: pool, fetcher: fetcher, maxAttempts: maxAttempts}
}

// Process fetches one video, retrying with the rotated descriptor after each
// blocked or transient attempt. It returns either the record or, once every
// attempt is spent, the terminal failure carrying the last classification.
func (c *AttemptController) Process(videoID string) (*VideoRecord, *FailedVideo) {
	var last FetchStatus
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		proxy := c.pool.Current()
		if proxy != nil {
			log.Printf("  Attempt %d/%d via %s", attempt, c.maxAttempts, proxy.Host)
		} else {
			log.Printf("  Attempt %d/%d without proxy", attempt, c.maxAttempts)
		}

		result := c.fetcher.FetchVideo(videoID, proxy)
		if result.Status == FetchOK {
			c.pool.ReportOutcome(proxy, true)
			return result.Record, nil
		}
		last = result.Status
		if result.Err != nil {
			log.Printf("  ✗ Attempt %d failed (%s): %v", attempt, result.Status, result.Err)
		} else {
			log.Printf("  ✗ Attempt %d failed (%s)", attempt, result.Status)
		}
		c.pool.ReportOutcome(proxy, false)
	}
	return nil, &FailedVideo{
		VideoID:  videoID,
		Reason:   last.String(),
		Attempts: c.maxAttempts,
		FailedAt: time.Now(),
	}
}

// ExpandListing resolves a search-results URL into video IDs under the same
// attempt budget as a single item.
func (c *AttemptController) ExpandListing(searchURL string, limit int) ([]string, error) {
	var lastErr error
	var last FetchStatus
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		proxy := c.pool.Current()
		result := c.fetcher.FetchListing(searchURL, proxy, limit)
		if result.Status == FetchOK {
			c.pool.ReportOutcome(proxy, true)
			return result.VideoIDs, nil
		}
		last = result.Status
		lastErr = result.Err
		c.pool.ReportOutcome(proxy, false)
	}
	if lastErr != nil {
		return nil, fmt.Errorf("expanding search results after %d attempts (%s): %w", c.maxAttempts, last, lastErr)
	}
	return nil, fmt.Errorf("expanding search results after %d attempts (%s)", c.maxAttempts, last)
}
