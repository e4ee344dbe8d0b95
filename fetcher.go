package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"
)

// BrowserFetcher loads pages with a fresh headless browser per attempt,
// optionally routed through the supplied egress descriptor. A fresh browser
// keeps proxy state, cookies and fingerprints from leaking between attempts.
type BrowserFetcher struct {
	headless    bool
	binPath     string
	pageTimeout time.Duration
	debugDir    string
	converter   *md.Converter
}

// NewBrowserFetcher builds a fetcher from the browser settings. debugDir
// receives challenge-page snapshots; empty disables them.
func NewBrowserFetcher(settings *Settings, debugDir string) *BrowserFetcher {
	return &BrowserFetcher{
		headless:    settings.Browser.Headless,
		binPath:     settings.Browser.BinPath,
		pageTimeout: time.Duration(settings.Browser.PageTimeoutSeconds) * time.Second,
		debugDir:    debugDir,
		converter:   md.NewConverter("", true, nil),
	}
}

// launch starts a browser wired to the descriptor. Proxy credentials are
// answered through the browser's auth handler.
func (f *BrowserFetcher) launch(proxy *Proxy) (*rod.Browser, *launcher.Launcher, error) {
	l := launcher.New().Headless(f.headless).NoSandbox(true)
	if f.binPath != "" {
		l = l.Bin(f.binPath)
	}
	if proxy != nil {
		l = l.Proxy(proxy.Server())
	}
	wsURL, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launching browser: %w", err)
	}
	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, nil, fmt.Errorf("connecting to browser: %w", err)
	}
	if proxy != nil && proxy.Username != "" {
		go browser.MustHandleAuth(proxy.Username, proxy.Password)()
	}
	return browser, l, nil
}

// openPage creates a stealth page and navigates it within the page timeout.
func (f *BrowserFetcher) openPage(browser *rod.Browser, pageURL string) (*rod.Page, error) {
	page, err := stealth.Page(browser)
	if err != nil {
		return nil, fmt.Errorf("creating page: %w", err)
	}
	page = page.Timeout(f.pageTimeout)
	if err := page.Navigate(pageURL); err != nil {
		page.Close()
		return nil, fmt.Errorf("navigating to %s: %w", pageURL, err)
	}
	if err := page.WaitLoad(); err != nil {
		page.Close()
		return nil, fmt.Errorf("waiting for %s: %w", pageURL, err)
	}
	return page, nil
}

// FetchVideo loads the watch page, screens it for bot challenges, extracts
// the record and then follows the channel About page for contact data.
func (f *BrowserFetcher) FetchVideo(videoID string, proxy *Proxy) FetchResult {
	browser, l, err := f.launch(proxy)
	if err != nil {
		return FetchResult{Status: FetchTransient, Err: err}
	}
	defer l.Cleanup()
	defer browser.Close()

	watchURL := "https://www.youtube.com/watch?v=" + videoID
	page, err := f.openPage(browser, watchURL)
	if err != nil {
		return FetchResult{Status: FetchTransient, Err: err}
	}
	defer page.Close()

	html, err := page.HTML()
	if err != nil {
		return FetchResult{Status: FetchTransient, Err: fmt.Errorf("reading page html: %w", err)}
	}
	if isChallengePage(html) {
		f.saveSnapshot(videoID, html)
		return FetchResult{Status: FetchBlocked, Err: fmt.Errorf("bot challenge on %s", watchURL)}
	}

	rec, err := parseWatchPage(html, videoID)
	if err != nil {
		return FetchResult{Status: FetchTransient, Err: err}
	}

	if rec.ChannelURL != "" {
		f.fetchAbout(page, rec)
	}
	return FetchResult{Status: FetchOK, Record: rec}
}

// fetchAbout reuses the page for the channel About visit. Contact data is
// best effort and never fails the video fetch.
func (f *BrowserFetcher) fetchAbout(page *rod.Page, rec *VideoRecord) {
	aboutURL := strings.TrimRight(rec.ChannelURL, "/") + "/about"
	if err := page.Navigate(aboutURL); err != nil {
		debugLog("about page navigate failed for %s: %v", rec.ChannelURL, err)
		return
	}
	if err := page.WaitLoad(); err != nil {
		debugLog("about page load failed for %s: %v", rec.ChannelURL, err)
		return
	}
	html, err := page.HTML()
	if err != nil || isChallengePage(html) {
		return
	}
	parseAboutPage(html, rec, f.converter)
}

// FetchListing loads a search-results page, scrolls to trigger lazy loading
// and extracts video IDs up to the limit.
func (f *BrowserFetcher) FetchListing(searchURL string, proxy *Proxy, limit int) ListingResult {
	browser, l, err := f.launch(proxy)
	if err != nil {
		return ListingResult{Status: FetchTransient, Err: err}
	}
	defer l.Cleanup()
	defer browser.Close()

	page, err := f.openPage(browser, searchURL)
	if err != nil {
		return ListingResult{Status: FetchTransient, Err: err}
	}
	defer page.Close()

	for i := 0; i < 5; i++ {
		if _, err := page.Eval(`() => window.scrollTo(0, document.documentElement.scrollHeight)`); err != nil {
			break
		}
		time.Sleep(2 * time.Second)
	}

	html, err := page.HTML()
	if err != nil {
		return ListingResult{Status: FetchTransient, Err: fmt.Errorf("reading page html: %w", err)}
	}
	if isChallengePage(html) {
		f.saveSnapshot("search", html)
		return ListingResult{Status: FetchBlocked, Err: fmt.Errorf("bot challenge on %s", searchURL)}
	}

	ids, err := parseListing(html, limit)
	if err != nil {
		return ListingResult{Status: FetchTransient, Err: err}
	}
	if len(ids) == 0 {
		return ListingResult{Status: FetchTransient, Err: fmt.Errorf("no video links found on %s", searchURL)}
	}
	return ListingResult{Status: FetchOK, VideoIDs: ids}
}

// saveSnapshot writes the offending page so the challenge can be inspected.
func (f *BrowserFetcher) saveSnapshot(name, html string) {
	if f.debugDir == "" {
		return
	}
	file := fmt.Sprintf("%s_captcha_%s.html", name, time.Now().Format("20060102_150405"))
	if err := os.WriteFile(filepath.Join(f.debugDir, file), []byte(html), 0644); err != nil {
		log.Printf("Warning: could not save challenge snapshot: %v", err)
	}
}
