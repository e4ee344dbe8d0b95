package main

import (
	"os"
	"testing"
)

func TestEnsureConfigExistsAndLoad(t *testing.T) {
	t.Chdir(t.TempDir())

	if err := ensureConfigExists(); err != nil {
		t.Fatalf("ensureConfigExists: %v", err)
	}
	settings, err := loadSettings()
	if err != nil {
		t.Fatalf("loadSettings: %v", err)
	}

	if settings.ResultsDirectory != "results" {
		t.Errorf("ResultsDirectory = %q", settings.ResultsDirectory)
	}
	if settings.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d", settings.MaxAttempts)
	}
	if settings.StickinessThreshold != 4 || settings.BlacklistThreshold != 5 {
		t.Errorf("thresholds = %d/%d, want 4/5", settings.StickinessThreshold, settings.BlacklistThreshold)
	}
	if settings.MaxListingVideos != 50 {
		t.Errorf("MaxListingVideos = %d", settings.MaxListingVideos)
	}
	if !settings.Browser.Headless {
		t.Error("Browser.Headless = false, want true by default")
	}

	// A second call must not overwrite an existing settings file.
	custom := "results_directory: elsewhere\nmax_attempts: 7\n"
	if err := os.WriteFile(getConfigPath("settings.yaml"), []byte(custom), 0644); err != nil {
		t.Fatal(err)
	}
	if err := ensureConfigExists(); err != nil {
		t.Fatal(err)
	}
	settings, err = loadSettings()
	if err != nil {
		t.Fatal(err)
	}
	if settings.ResultsDirectory != "elsewhere" || settings.MaxAttempts != 7 {
		t.Errorf("custom settings lost: %+v", settings)
	}
	// Missing values fall back to safe defaults.
	if settings.StickinessThreshold != 4 {
		t.Errorf("StickinessThreshold = %d, want default 4", settings.StickinessThreshold)
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	if _, err := loadSettings(); err == nil {
		t.Error("expected error for a missing settings file")
	}
}
