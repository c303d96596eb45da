package app

import (
	"strings"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{EnvBaseURL, EnvOutputDir, EnvA11yDir, EnvWaitTime, EnvTimeout, EnvRetries, EnvFullPage, EnvBrowser, EnvHistoryDB} {
		t.Setenv(key, "")
	}

	// viper ignores empty environment variables, so defaults apply.
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Capture.BaseURL != "http://localhost:3000" {
		t.Errorf("BaseURL = %q", cfg.Capture.BaseURL)
	}
	if cfg.Capture.OutputDir != ".design-polish/screenshots" || cfg.Capture.A11yDir != ".design-polish/accessibility" {
		t.Errorf("unexpected dirs %q %q", cfg.Capture.OutputDir, cfg.Capture.A11yDir)
	}
	if cfg.Capture.Wait != 2*time.Second || cfg.Capture.Timeout != 30*time.Second || cfg.Capture.Retries != 2 {
		t.Errorf("unexpected timings %+v", cfg.Capture)
	}
	if cfg.Capture.RetryDelay != time.Second {
		t.Errorf("RetryDelay = %v, want 1s", cfg.Capture.RetryDelay)
	}
	if cfg.Capture.FullPage {
		t.Error("FullPage must default to false")
	}
	if cfg.Backend != "chromedp" || cfg.HistoryDB != "" {
		t.Errorf("unexpected backend/history defaults %q %q", cfg.Backend, cfg.HistoryDB)
	}
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv(EnvBaseURL, "http://127.0.0.1:5173")
	t.Setenv(EnvOutputDir, "shots")
	t.Setenv(EnvA11yDir, "a11y")
	t.Setenv(EnvWaitTime, "250")
	t.Setenv(EnvTimeout, "5000")
	t.Setenv(EnvRetries, "0")
	t.Setenv(EnvFullPage, "true")
	t.Setenv(EnvBrowser, "ROD")
	t.Setenv(EnvHistoryDB, "auto")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Capture.BaseURL != "http://127.0.0.1:5173" {
		t.Errorf("BaseURL = %q", cfg.Capture.BaseURL)
	}
	if cfg.Capture.OutputDir != "shots" || cfg.Capture.A11yDir != "a11y" {
		t.Errorf("unexpected dirs %q %q", cfg.Capture.OutputDir, cfg.Capture.A11yDir)
	}
	if cfg.Capture.Wait != 250*time.Millisecond || cfg.Capture.Timeout != 5*time.Second || cfg.Capture.Retries != 0 {
		t.Errorf("unexpected timings %+v", cfg.Capture)
	}
	if !cfg.Capture.FullPage {
		t.Error("FULL_PAGE=true must enable full-page capture")
	}
	if cfg.Backend != "rod" {
		t.Errorf("Backend = %q", cfg.Backend)
	}
	if cfg.HistoryDB != "auto" {
		t.Errorf("HistoryDB = %q", cfg.HistoryDB)
	}
}

func TestLoadConfig_FullPageOnlyForLiteralTrue(t *testing.T) {
	for _, v := range []string{"1", "yes", "TRUE", "false"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv(EnvFullPage, v)
			cfg, err := LoadConfig()
			if err != nil {
				t.Fatalf("LoadConfig: %v", err)
			}
			if cfg.Capture.FullPage {
				t.Errorf("FULL_PAGE=%q must not enable full-page capture", v)
			}
		})
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv(EnvBaseURL, "localhost")
	t.Setenv(EnvRetries, "-1")
	t.Setenv(EnvTimeout, "0")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{EnvBaseURL, EnvRetries, EnvTimeout} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %s to be reported, got %v", want, err)
		}
	}
}

func TestLoadConfig_NonNumeric(t *testing.T) {
	t.Setenv(EnvWaitTime, "abc")
	t.Setenv(EnvRetries, "two")
	t.Setenv(EnvViewportWidth, "1440px")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected error for non-numeric values")
	}
	for _, want := range []string{
		EnvWaitTime + ` must be an integer, got "abc"`,
		EnvRetries + ` must be an integer, got "two"`,
		EnvViewportWidth + ` must be an integer, got "1440px"`,
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}
