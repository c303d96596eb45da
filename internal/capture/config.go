package capture

import (
	"strings"
	"time"
)

// Config is the immutable per-run configuration of the Runner.
type Config struct {
	// BaseURL is the dev server that local routes are resolved against.
	BaseURL string

	// OutputDir receives screenshots.
	OutputDir string

	// A11yDir receives accessibility reports.
	A11yDir string

	// Wait is the settle delay after the network went idle.
	Wait time.Duration

	// Timeout bounds a single navigation attempt.
	Timeout time.Duration

	// Retries is the number of extra navigation attempts after the first.
	Retries int

	// RetryDelay is the fixed pause between navigation attempts.
	RetryDelay time.Duration

	// FullPage captures the whole document instead of the viewport.
	FullPage bool
}

// DefaultConfig returns the defaults used when no environment is set.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "http://localhost:3000",
		OutputDir:  ".design-polish/screenshots",
		A11yDir:    ".design-polish/accessibility",
		Wait:       2 * time.Second,
		Timeout:    30 * time.Second,
		Retries:    2,
		RetryDelay: time.Second,
		FullPage:   false,
	}
}

// URLFor joins route onto the base URL.
func (c Config) URLFor(route string) string {
	base := strings.TrimRight(c.BaseURL, "/")
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return base + route
}
