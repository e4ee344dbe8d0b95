package main

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

var (
	videoIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com/watch\?v=|youtu\.be/)([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/embed/([a-zA-Z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/v/([a-zA-Z0-9_-]{11})`),
	}
	watchPathRe = regexp.MustCompile(`/watch\?v=([a-zA-Z0-9_-]{11})`)

	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	urlRe   = regexp.MustCompile(`https?://[^\s<>"\\^{}|` + "`" + `\[\]]+`)

	lengthSecondsRe = regexp.MustCompile(`"lengthSeconds":"(\d+)"`)
	keywordsRe      = regexp.MustCompile(`"keywords":\s*\[([^\]]*)\]`)
	isLiveRe        = regexp.MustCompile(`"isLiveContent":(true|false)`)
	categoryRe      = regexp.MustCompile(`"category":"([^"]+)"`)
	viewCountRe     = regexp.MustCompile(`"viewCount":"(\d+)"`)
	uploadDateRe    = regexp.MustCompile(`"uploadDate":"([^"]+)"`)

	countRe = regexp.MustCompile(`([\d.]+)\s*([KMB]?)`)
)

// extractVideoID pulls the 11-character video ID out of any supported
// YouTube URL form, or returns "" when none matches.
func extractVideoID(rawURL string) string {
	for _, re := range videoIDPatterns {
		if m := re.FindStringSubmatch(rawURL); m != nil {
			return m[1]
		}
	}
	return ""
}

// isSearchURL reports whether the target is a search-results listing rather
// than a single video.
func isSearchURL(rawURL string) bool {
	return strings.Contains(rawURL, "youtube.com/results") &&
		strings.Contains(rawURL, "search_query=")
}

// decodeRedirect unwraps YouTube's outbound-link wrappers (redirect and
// attribution_link) to the actual destination. Other URLs pass through
// unchanged.
func decodeRedirect(raw string) string {
	if !strings.Contains(raw, "youtube.com/redirect") &&
		!strings.Contains(raw, "/redirect?") &&
		!strings.Contains(raw, "attribution_link") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if q := u.Query().Get("q"); q != "" {
		return q
	}
	if q := u.Query().Get("u"); q != "" {
		return q
	}
	return raw
}

// extractEmails finds addresses in free text, dropping placeholder and
// platform domains. Order of first appearance is preserved.
func extractEmails(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range emailRe.FindAllString(text, -1) {
		lower := strings.ToLower(m)
		if strings.Contains(lower, "noreply") || strings.Contains(lower, "no-reply") ||
			strings.Contains(lower, "example.") || strings.HasPrefix(lower, "test@") ||
			strings.HasSuffix(lower, "@youtube.com") || strings.HasSuffix(lower, "@google.com") {
			continue
		}
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, m)
	}
	return out
}

// extractURLs finds external links in free text, trimming trailing
// punctuation and skipping YouTube's own domains.
func extractURLs(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range urlRe.FindAllString(text, -1) {
		m = strings.TrimRight(m, ".,;:!?)'\"")
		lower := strings.ToLower(m)
		if strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be") ||
			strings.Contains(lower, "yt.be") {
			continue
		}
		if seen[lower] {
			continue
		}
		seen[lower] = true
		out = append(out, m)
	}
	return out
}

// parseCount turns display counts like "1.2M views", "15K" or "1,234" into
// an integer. Unparseable text yields 0.
func parseCount(text string) int64 {
	text = strings.ToUpper(strings.TrimSpace(text))
	text = strings.ReplaceAll(text, ",", "")
	m := countRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	switch m[2] {
	case "K":
		n *= 1_000
	case "M":
		n *= 1_000_000
	case "B":
		n *= 1_000_000_000
	}
	return int64(math.Round(n))
}

// isChallengePage reports whether the HTML is a bot challenge instead of
// content.
func isChallengePage(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	if doc.Find(`iframe[src*="recaptcha"], #recaptcha, .g-recaptcha, form#captcha-form`).Length() > 0 {
		return true
	}
	text := strings.ToLower(doc.Text())
	return strings.Contains(text, "unusual traffic") ||
		strings.Contains(text, "verify you are human") ||
		strings.Contains(text, "our systems have detected")
}

// parseWatchPage extracts every field visible on a watch page into a fresh
// record. Counts that come from the page are tagged as scraped so the API
// pass never overwrites them.
func parseWatchPage(html, videoID string) (*VideoRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing watch page: %w", err)
	}
	rec := &VideoRecord{VideoID: videoID, ExtractionPath: "browser"}

	for _, sel := range []string{"h1.ytd-watch-metadata", "h1.title", "#title h1"} {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			rec.Title = t
			break
		}
	}
	if rec.Title == "" {
		if v, ok := doc.Find(`meta[name="title"]`).Attr("content"); ok {
			rec.Title = strings.TrimSpace(v)
		}
	}

	for _, sel := range []string{"#description-inline-expander", "ytd-expander#description", "#description"} {
		if t := strings.TrimSpace(doc.Find(sel).First().Text()); t != "" {
			rec.Description = t
			break
		}
	}
	if rec.Description == "" {
		if v, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
			rec.Description = strings.TrimSpace(v)
		}
	}

	if t := strings.TrimSpace(doc.Find("span.view-count, .view-count").First().Text()); t != "" {
		if n := parseCount(t); n > 0 {
			rec.ViewCount = n
			rec.markSource("view_count", "scraped")
		}
	}
	if rec.ViewCount == 0 {
		if m := viewCountRe.FindStringSubmatch(html); m != nil {
			if n, err := strconv.ParseInt(m[1], 10, 64); err == nil && n > 0 {
				rec.ViewCount = n
				rec.markSource("view_count", "scraped")
			}
		}
	}

	doc.Find(`button[aria-label]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		label, _ := s.Attr("aria-label")
		lower := strings.ToLower(label)
		if !strings.Contains(lower, "like") || strings.Contains(lower, "dislike") {
			return true
		}
		if n := parseCount(label); n > 0 {
			rec.LikeCount = n
			rec.markSource("like_count", "scraped")
			return false
		}
		return true
	})

	if t := strings.TrimSpace(doc.Find("#count.ytd-comments-header-renderer, ytd-comments-header-renderer #count").First().Text()); t != "" {
		if n := parseCount(t); n > 0 {
			rec.CommentCount = n
			rec.markSource("comment_count", "scraped")
		}
	}

	if t := strings.TrimSpace(doc.Find("#info-strings yt-formatted-string").First().Text()); t != "" {
		rec.UploadDate = t
	} else if m := uploadDateRe.FindStringSubmatch(html); m != nil {
		rec.UploadDate = m[1]
	}

	if m := lengthSecondsRe.FindStringSubmatch(html); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			rec.DurationSeconds = n
		}
	}
	if m := keywordsRe.FindStringSubmatch(html); m != nil {
		rec.Tags = parseKeywordList(m[1])
	}
	if m := isLiveRe.FindStringSubmatch(html); m != nil {
		rec.IsLive = m[1] == "true"
	}
	if m := categoryRe.FindStringSubmatch(html); m != nil {
		rec.VideoCategory = m[1]
	}

	channelAnchor := doc.Find("ytd-channel-name a, #channel-name a, #owner #text a").First()
	if channelAnchor.Length() > 0 {
		rec.ChannelName = strings.TrimSpace(channelAnchor.Text())
		if href, ok := channelAnchor.Attr("href"); ok && href != "" {
			rec.ChannelURL = absoluteYouTubeURL(href)
			if strings.Contains(href, "/channel/") {
				rec.ChannelID = strings.TrimSuffix(href[strings.Index(href, "/channel/")+len("/channel/"):], "/")
			}
			if i := strings.Index(href, "/@"); i >= 0 {
				rec.ChannelHandle = strings.TrimSuffix(href[i+1:], "/")
			}
		}
	}

	rec.ThumbnailURLs = []string{
		fmt.Sprintf("https://i.ytimg.com/vi/%s/maxresdefault.jpg", videoID),
		fmt.Sprintf("https://i.ytimg.com/vi/%s/hqdefault.jpg", videoID),
	}

	if rec.Description != "" {
		rec.DescriptionEmails = extractEmails(rec.Description)
		rec.DescriptionURLs = extractURLs(rec.Description)
		if len(rec.DescriptionEmails) > 0 {
			rec.BusinessEmail = rec.DescriptionEmails[0]
			rec.ContactSource = append(rec.ContactSource, "description_email")
		}
	}

	if rec.Title == "" && rec.ChannelName == "" {
		return nil, fmt.Errorf("page for %s did not contain video metadata", videoID)
	}
	return rec, nil
}

// parseKeywordList splits the quoted, comma-separated body of a keywords
// array found in the page source.
func parseKeywordList(body string) []string {
	var tags []string
	for _, part := range strings.Split(body, ",") {
		tag := strings.Trim(strings.TrimSpace(part), `"`)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func absoluteYouTubeURL(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return "https://www.youtube.com" + href
}

var socialDomains = []string{
	"twitter.com", "x.com", "instagram.com", "facebook.com",
	"tiktok.com", "linkedin.com", "twitch.tv", "discord.gg", "patreon.com",
}

func isSocialLink(link string) bool {
	lower := strings.ToLower(link)
	for _, domain := range socialDomains {
		if strings.Contains(lower, domain) {
			return true
		}
	}
	return false
}

// parseAboutPage mines a channel About page for the channel description and
// contact data, merging into the record. Everything here is best effort.
func parseAboutPage(html string, rec *VideoRecord, conv *md.Converter) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return
	}

	descSel := doc.Find("#description-container, ytd-channel-about-metadata-renderer #description, #description").First()
	if descSel.Length() > 0 {
		if descHTML, err := goquery.OuterHtml(descSel); err == nil && conv != nil {
			if mdText, err := conv.ConvertString(descHTML); err == nil {
				rec.ChannelDescription = strings.TrimSpace(mdText)
			}
		}
		if rec.ChannelDescription == "" {
			rec.ChannelDescription = strings.TrimSpace(descSel.Text())
		}
	}

	if rec.BusinessEmail == "" {
		if emails := extractEmails(doc.Text()); len(emails) > 0 {
			rec.BusinessEmail = emails[0]
			rec.ContactSource = append(rec.ContactSource, "about_page_email")
		}
	}

	var links []string
	seen := make(map[string]bool)
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		actual := decodeRedirect(href)
		if strings.HasPrefix(actual, "//") {
			actual = "https:" + actual
		}
		if !strings.HasPrefix(actual, "http") || !isSocialLink(actual) {
			return
		}
		actual = strings.TrimRight(actual, "/")
		key := strings.ToLower(strings.SplitN(actual, "?", 2)[0])
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, actual)
	})
	if len(links) > 0 {
		rec.SocialLinks = links
		rec.ContactSource = append(rec.ContactSource, "about_page_social")
	}
}

// parseListing extracts up to limit unique video IDs from search-results
// HTML, in page order.
func parseListing(html string, limit int) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing search results: %w", err)
	}
	var ids []string
	seen := make(map[string]bool)
	doc.Find(`a#video-title, ytd-video-renderer a[href*="/watch"], a[href*="/watch?v="]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		m := watchPathRe.FindStringSubmatch(href)
		if m == nil {
			return true
		}
		id := m[1]
		if seen[id] {
			return true
		}
		seen[id] = true
		ids = append(ids, id)
		return limit <= 0 || len(ids) < limit
	})
	return ids, nil
}
