package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	youtubeAPIBase = "https://www.googleapis.com/youtube/v3"
	apiBatchSize   = 50
)

// YouTubeAPI is the Data API v3 client used for the post-run enrichment
// pass. Without a key the pass is skipped with a warning instead of failing.
type YouTubeAPI struct {
	apiKey  string
	baseURL string
	client  *http.Client
	calls   int
}

// NewYouTubeAPI builds a client; an empty key turns enrichment off.
func NewYouTubeAPI(apiKey string) *YouTubeAPI {
	return &YouTubeAPI{
		apiKey:  apiKey,
		baseURL: youtubeAPIBase,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type apiListResponse struct {
	Items []apiItem `json:"items"`
}

type apiItem struct {
	ID         string        `json:"id"`
	Snippet    apiSnippet    `json:"snippet"`
	Statistics apiStatistics `json:"statistics"`
}

type apiSnippet struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	ChannelID   string   `json:"channelId"`
	PublishedAt string   `json:"publishedAt"`
	Country     string   `json:"country"`
}

// The API serializes every count as a string.
type apiStatistics struct {
	ViewCount       string `json:"viewCount"`
	LikeCount       string `json:"likeCount"`
	CommentCount    string `json:"commentCount"`
	SubscriberCount string `json:"subscriberCount"`
	VideoCount      string `json:"videoCount"`
}

// Calls reports how many API requests this client has issued.
func (a *YouTubeAPI) Calls() int { return a.calls }

// list fetches a resource for the given IDs in batches of at most 50, the
// API's per-request ceiling, and indexes the items by ID.
func (a *YouTubeAPI) list(resource, part string, ids []string) (map[string]apiItem, error) {
	items := make(map[string]apiItem)
	for start := 0; start < len(ids); start += apiBatchSize {
		end := start + apiBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		q := url.Values{}
		q.Set("part", part)
		q.Set("id", strings.Join(ids[start:end], ","))
		q.Set("key", a.apiKey)
		q.Set("maxResults", strconv.Itoa(apiBatchSize))

		resp, err := a.client.Get(a.baseURL + "/" + resource + "?" + q.Encode())
		if err != nil {
			return nil, fmt.Errorf("requesting %s: %w", resource, err)
		}
		a.calls++
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("reading %s response: %w", resource, err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s request failed with status %d: %s", resource, resp.StatusCode, string(body))
		}
		var out apiListResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return nil, fmt.Errorf("decoding %s response: %w", resource, err)
		}
		for _, item := range out.Items {
			items[item.ID] = item
		}
	}
	return items, nil
}

// Enrich runs the batched videos and channels lookups and merges the answers
// into the records. A field already populated from the page is never
// overwritten; everything the API adds is tagged as such.
func (a *YouTubeAPI) Enrich(records []*VideoRecord) error {
	if a.apiKey == "" {
		log.Printf("No YouTube API key configured, skipping enrichment")
		return nil
	}
	if len(records) == 0 {
		return nil
	}

	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.VideoID)
	}
	videos, err := a.list("videos", "snippet,statistics", ids)
	if err != nil {
		return fmt.Errorf("fetching video details: %w", err)
	}
	for _, rec := range records {
		item, ok := videos[rec.VideoID]
		if !ok {
			continue
		}
		a.mergeVideo(rec, item)
	}

	var channelIDs []string
	seen := make(map[string]bool)
	for _, rec := range records {
		if rec.ChannelID != "" && !seen[rec.ChannelID] {
			seen[rec.ChannelID] = true
			channelIDs = append(channelIDs, rec.ChannelID)
		}
	}
	if len(channelIDs) > 0 {
		channels, err := a.list("channels", "snippet,statistics", channelIDs)
		if err != nil {
			return fmt.Errorf("fetching channel details: %w", err)
		}
		for _, rec := range records {
			if item, ok := channels[rec.ChannelID]; ok {
				a.mergeChannel(rec, item)
			}
		}
	}

	log.Printf("Enrichment complete: %d API calls", a.calls)
	return nil
}

func (a *YouTubeAPI) mergeVideo(rec *VideoRecord, item apiItem) {
	if rec.Title == "" && item.Snippet.Title != "" {
		rec.Title = item.Snippet.Title
		rec.markSource("title", "api")
	}
	if rec.Description == "" && item.Snippet.Description != "" {
		rec.Description = item.Snippet.Description
		rec.markSource("description", "api")
		rec.DescriptionEmails = extractEmails(rec.Description)
		rec.DescriptionURLs = extractURLs(rec.Description)
	}
	if rec.ViewCount == 0 {
		if n := parseAPICount(item.Statistics.ViewCount); n > 0 {
			rec.ViewCount = n
			rec.markSource("view_count", "api")
		}
	}
	if rec.LikeCount == 0 {
		if n := parseAPICount(item.Statistics.LikeCount); n > 0 {
			rec.LikeCount = n
			rec.markSource("like_count", "api")
		}
	}
	if rec.CommentCount == 0 {
		if n := parseAPICount(item.Statistics.CommentCount); n > 0 {
			rec.CommentCount = n
			rec.markSource("comment_count", "api")
		}
	}
	if len(rec.Tags) == 0 && len(item.Snippet.Tags) > 0 {
		rec.Tags = item.Snippet.Tags
		rec.markSource("tags", "api")
	}
	if rec.UploadDate == "" && item.Snippet.PublishedAt != "" {
		rec.UploadDate = item.Snippet.PublishedAt
		rec.markSource("upload_date", "api")
	}
	if rec.ChannelID == "" && item.Snippet.ChannelID != "" {
		rec.ChannelID = item.Snippet.ChannelID
		rec.markSource("channel_id", "api")
	}
}

func (a *YouTubeAPI) mergeChannel(rec *VideoRecord, item apiItem) {
	if n := parseAPICount(item.Statistics.SubscriberCount); n > 0 && rec.ChannelSubscriberCount == 0 {
		rec.ChannelSubscriberCount = n
		rec.markSource("channel_subscriber_count", "api")
	}
	if n := parseAPICount(item.Statistics.VideoCount); n > 0 && rec.ChannelVideoCount == 0 {
		rec.ChannelVideoCount = n
		rec.markSource("channel_video_count", "api")
	}
	if n := parseAPICount(item.Statistics.ViewCount); n > 0 && rec.ChannelViewCount == 0 {
		rec.ChannelViewCount = n
		rec.markSource("channel_view_count", "api")
	}
	if rec.ChannelDescription == "" && item.Snippet.Description != "" {
		rec.ChannelDescription = item.Snippet.Description
		rec.markSource("channel_description", "api")
	}
	if rec.ChannelCountry == "" && item.Snippet.Country != "" {
		rec.ChannelCountry = item.Snippet.Country
		rec.markSource("channel_country", "api")
	}
}

func parseAPICount(s string) int64 {
	if s == "" {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
