package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	retryFailed        bool
	proxyFile          string
	apiKey             string
	maxAttempts        int
	blacklistThreshold int
	debugMode          bool
	debugEnabled       bool
)

var rootCmd = &cobra.Command{
	Use:   "creator-scout [youtube-urls...]",
	Short: "Collects YouTube video and channel metadata through rotating proxies",
	Long: `Scrapes YouTube watch pages and channel About pages through a rotating
proxy pool, with crash-safe incremental results, a cross-run dedup ledger
and an optional YouTube Data API enrichment pass.

Targets are watch URLs or search-results URLs (expanded to their videos).
With no arguments, URLs are read interactively, comma separated.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := ensureConfigExists(); err != nil {
			log.Fatalf("Failed to prepare config: %v", err)
		}
		settings, err := loadSettings()
		if err != nil {
			log.Fatalf("Failed to load settings: %v", err)
		}

		if maxAttempts > 0 {
			settings.MaxAttempts = maxAttempts
		}
		if blacklistThreshold > 0 {
			settings.BlacklistThreshold = blacklistThreshold
		}
		if proxyFile != "" {
			settings.ProxyFile = proxyFile
		}
		if apiKey == "" {
			apiKey = os.Getenv("YOUTUBE_API_KEY")
		}
		if debugMode {
			SetDebugMode(true)
		}

		targets := args
		if len(targets) == 0 && !retryFailed {
			targets, err = readTargets()
			if err != nil {
				log.Fatalf("Failed to read URLs: %v", err)
			}
			if len(targets) == 0 {
				log.Fatal("No URLs provided")
			}
		}

		proxies, err := LoadProxies(settings.ProxyFile)
		if err != nil {
			log.Fatalf("Failed to load proxies: %v", err)
		}
		if len(proxies) > 0 {
			log.Printf("Loaded %d proxies from %s", len(proxies), settings.ProxyFile)
		} else {
			log.Printf("No proxies configured, running unproxied")
		}

		store, err := NewResultStore(settings.ResultsDirectory)
		if err != nil {
			log.Fatalf("Failed to prepare results directory: %v", err)
		}
		ledger, err := LoadLedger(settings.ResultsDirectory, store.FailureLogPath())
		if err != nil {
			log.Fatalf("Failed to load ledger: %v", err)
		}
		if ledger.CompletedCount() > 0 {
			log.Printf("Ledger: %d videos completed in prior runs", ledger.CompletedCount())
		}

		locator, err := NewChannelLocator(os.Getenv("ANTHROPIC_API_KEY"))
		if err != nil {
			log.Fatalf("Failed to create locator: %v", err)
		}

		pool := NewProxyPool(proxies, settings.StickinessThreshold, settings.BlacklistThreshold)
		controller := NewAttemptController(pool, NewBrowserFetcher(settings, store.DebugDir()), settings.MaxAttempts)

		orchestrator := &Orchestrator{
			controller: controller,
			ledger:     ledger,
			store:      store,
			enricher:   NewYouTubeAPI(apiKey),
			locator:    locator,
			notifier:   NewSummaryNotifier(settings.Notify),
			maxListing: settings.MaxListingVideos,
		}

		summary, err := orchestrator.Run(targets, retryFailed)
		if err != nil {
			log.Fatalf("Run aborted: %v", err)
		}

		log.Printf("Done: %d attempted, %d scraped, %d duplicates skipped, %d failed",
			summary.Attempted, summary.Succeeded, summary.DuplicatesSkipped, summary.Failed)
		if summary.Succeeded > 0 {
			log.Printf("Results written to %s", store.JSONPath())
		}
		if summary.Failed > 0 {
			log.Printf("Failures logged to %s (rerun with --retry-failed)", store.FailureLogPath())
		}
	},
}

func init() {
	rootCmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "Process exactly the videos in the failure log")
	rootCmd.Flags().StringVar(&proxyFile, "proxy-file", "", "Path to the proxy list (overrides settings)")
	rootCmd.Flags().StringVar(&apiKey, "api-key", "", "YouTube Data API key")
	rootCmd.Flags().IntVar(&maxAttempts, "max-attempts", 0, "Attempts per video (overrides settings)")
	rootCmd.Flags().IntVar(&blacklistThreshold, "blacklist-threshold", 0, "Failures before a proxy is retired (overrides settings)")
	rootCmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
}

// SetDebugMode enables or disables debug logging
func SetDebugMode(enabled bool) {
	debugEnabled = enabled
}

func debugLog(format string, args ...interface{}) {
	if debugEnabled {
		log.Printf("[DEBUG] "+format, args...)
	}
}

// readTargets prompts for a comma-separated URL list on stdin.
func readTargets() ([]string, error) {
	fmt.Println("Enter YouTube URLs (watch or search results), comma separated:")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return nil, err
	}
	var targets []string
	for _, part := range strings.Split(line, ",") {
		if part = strings.TrimSpace(part); part != "" {
			targets = append(targets, part)
		}
	}
	return targets, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
