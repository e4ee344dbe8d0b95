package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configDirName = ".creator-scout"

// Settings represents the YAML configuration structure
type Settings struct {
	ResultsDirectory    string `yaml:"results_directory"`
	ProxyFile           string `yaml:"proxy_file"`
	MaxAttempts         int    `yaml:"max_attempts"`
	StickinessThreshold int    `yaml:"stickiness_threshold"`
	BlacklistThreshold  int    `yaml:"blacklist_threshold"`
	MaxListingVideos    int    `yaml:"max_listing_videos"`
	Browser             struct {
		Headless           bool   `yaml:"headless"`
		BinPath            string `yaml:"bin_path"`
		PageTimeoutSeconds int    `yaml:"page_timeout_seconds"`
	} `yaml:"browser"`
	Notify NotifySettings `yaml:"notify"`
}

// NotifySettings configures the optional end-of-run summary email.
type NotifySettings struct {
	SMTPHost string `yaml:"smtp_host"`
	SMTPPort int    `yaml:"smtp_port"`
	SMTPUser string `yaml:"smtp_user"`
	SMTPPass string `yaml:"smtp_pass"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
}

// loadSettings loads settings from the default location
func loadSettings() (*Settings, error) {
	settingsPath := getConfigPath("settings.yaml")

	data, err := os.ReadFile(settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", settingsPath, err)
	}

	var settings Settings
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings YAML: %w", err)
	}

	if settings.ResultsDirectory == "" {
		settings.ResultsDirectory = "results"
	}
	if settings.MaxAttempts <= 0 {
		log.Printf("Warning: max_attempts is %d, defaulting to %d", settings.MaxAttempts, defaultMaxAttempts)
		settings.MaxAttempts = defaultMaxAttempts
	}
	if settings.StickinessThreshold <= 0 {
		settings.StickinessThreshold = defaultStickinessThreshold
	}
	if settings.BlacklistThreshold <= 0 {
		settings.BlacklistThreshold = defaultBlacklistThreshold
	}
	if settings.MaxListingVideos <= 0 {
		settings.MaxListingVideos = 50
	}
	if settings.Browser.PageTimeoutSeconds <= 0 {
		settings.Browser.PageTimeoutSeconds = 30
	}

	return &settings, nil
}

// getConfigPath returns the path to a config file in the .creator-scout directory
func getConfigPath(filename string) string {
	return filepath.Join(configDirName, filename)
}

// ensureConfigExists creates the config directory and default files if they don't exist
func ensureConfigExists() error {
	if _, err := os.Stat(configDirName); os.IsNotExist(err) {
		if err := os.MkdirAll(configDirName, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	// Write default settings if it doesn't exist
	settingsPath := getConfigPath("settings.yaml")
	if _, err := os.Stat(settingsPath); os.IsNotExist(err) {
		defaultSettings := `results_directory: results
proxy_file: proxies.txt
max_attempts: 3
stickiness_threshold: 4
blacklist_threshold: 5
max_listing_videos: 50
browser:
  headless: true
  bin_path: ""
  page_timeout_seconds: 30
notify:
  smtp_host: ""
  smtp_port: 587
  smtp_user: ""
  smtp_pass: ""
  from: ""
  to: ""
`
		if err := os.WriteFile(settingsPath, []byte(defaultSettings), 0644); err != nil {
			return fmt.Errorf("failed to write default settings: %w", err)
		}
	}

	return nil
}
