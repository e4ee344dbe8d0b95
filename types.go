package main

import "time"

// VideoRecord is one collected video plus the channel metadata gathered
// around it. Field names mirror the output artifacts, so list and map
// fields are JSON-encoded into single cells in the flat renderings.
type VideoRecord struct {
	VideoID           string   `json:"video_id"`
	Title             string   `json:"title,omitempty"`
	Description       string   `json:"description,omitempty"`
	ViewCount         int64    `json:"view_count,omitempty"`
	LikeCount         int64    `json:"like_count,omitempty"`
	CommentCount      int64    `json:"comment_count,omitempty"`
	UploadDate        string   `json:"upload_date,omitempty"`
	DurationSeconds   int      `json:"duration_seconds,omitempty"`
	Tags              []string `json:"tags,omitempty"`
	IsLive            bool     `json:"is_live,omitempty"`
	VideoCategory     string   `json:"video_category,omitempty"`
	ThumbnailURLs     []string `json:"thumbnail_urls,omitempty"`
	DescriptionEmails []string `json:"description_emails,omitempty"`
	DescriptionURLs   []string `json:"description_urls,omitempty"`

	ChannelName        string   `json:"channel_name,omitempty"`
	ChannelURL         string   `json:"channel_url,omitempty"`
	ChannelID          string   `json:"channel_id,omitempty"`
	ChannelHandle      string   `json:"channel_handle,omitempty"`
	ChannelDescription string   `json:"channel_description,omitempty"`
	ChannelCountry     string   `json:"channel_country,omitempty"`
	BusinessEmail      string   `json:"business_email,omitempty"`
	SocialLinks        []string `json:"social_links,omitempty"`
	ContactSource      []string `json:"contact_source,omitempty"`

	ChannelSubscriberCount int64 `json:"channel_subscriber_count,omitempty"`
	ChannelVideoCount      int64 `json:"channel_video_count,omitempty"`
	ChannelViewCount       int64 `json:"channel_view_count,omitempty"`

	ExtractionPath string            `json:"extraction_path,omitempty"`
	FieldSources   map[string]string `json:"field_sources,omitempty"`
}

// markSource records where a field's value came from (scraped, api, inferred).
func (r *VideoRecord) markSource(field, source string) {
	if r.FieldSources == nil {
		r.FieldSources = make(map[string]string)
	}
	r.FieldSources[field] = source
}

// FailedVideo is one failure-log entry: a video all permitted attempts were
// spent on without success.
type FailedVideo struct {
	VideoID  string
	Reason   string
	Attempts int
	FailedAt time.Time
}

// FetchStatus classifies the outcome of a single fetch attempt.
type FetchStatus int

const (
	// FetchOK means the collaborator produced a parsed record.
	FetchOK FetchStatus = iota
	// FetchBlocked means a bot challenge was detected.
	FetchBlocked
	// FetchTransient covers network, timeout and unexpected-content errors.
	FetchTransient
)

func (s FetchStatus) String() string {
	switch s {
	case FetchOK:
		return "ok"
	case FetchBlocked:
		return "blocked"
	case FetchTransient:
		return "transient_error"
	default:
		return "unknown"
	}
}

// FetchResult is the fetch collaborator's answer for one video attempt.
type FetchResult struct {
	Status FetchStatus
	Record *VideoRecord
	Err    error
}

// ListingResult is the fetch collaborator's answer for one search-results
// expansion attempt.
type ListingResult struct {
	Status   FetchStatus
	VideoIDs []string
	Err      error
}

// Summary is the authoritative end-of-run report.
type Summary struct {
	Attempted         int
	Succeeded         int
	DuplicatesSkipped int
	Failed            int
	APICalls          int
}
