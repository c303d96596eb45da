package app

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/raysh454/design-polish/internal/browser"
	"github.com/raysh454/design-polish/internal/capture"
	"github.com/raysh454/design-polish/internal/webclient"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Config contains every runtime option of a capture invocation. It is built
// once at process start and passed explicitly to the components that need it.
type Config struct {
	Capture capture.Config

	// Browser backend name and launch options.
	Backend string
	Browser browser.Options

	// WebClient configuration for the liveness probe.
	WebClient webclient.Config

	// AxeCorePath points at axe.min.js; empty means search node_modules.
	AxeCorePath string

	// HistoryDB enables run history when non-empty. "auto" selects the
	// default location under the XDG data home.
	HistoryDB string

	LogLevel string

	// parseErrs holds environment values that were not numbers.
	parseErrs []error
}

// Environment variable names.
const (
	EnvBaseURL        = "BASE_URL"
	EnvOutputDir      = "OUTPUT_DIR"
	EnvA11yDir        = "A11Y_DIR"
	EnvWaitTime       = "WAIT_TIME"
	EnvTimeout        = "TIMEOUT"
	EnvRetries        = "RETRIES"
	EnvFullPage       = "FULL_PAGE"
	EnvViewportWidth  = "VIEWPORT_WIDTH"
	EnvViewportHeight = "VIEWPORT_HEIGHT"
	EnvBrowser        = "BROWSER"
	EnvAxeCorePath    = "AXE_CORE_PATH"
	EnvProbeTimeout   = "PROBE_TIMEOUT"
	EnvHistoryDB      = "HISTORY_DB"
	EnvLogLevel       = "LOG_LEVEL"
)

// DefaultConfig returns a Config populated with the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Capture: capture.DefaultConfig(),
		Backend: browser.BackendChromedp,
		Browser: browser.Options{
			ViewportWidth:  1440,
			ViewportHeight: 900,
		},
		WebClient: webclient.Config{
			ProbeTimeout: 5 * time.Second,
			UserAgent:    "design-polish-capture",
		},
		LogLevel: "info",
	}
}

// LoadConfig reads the environment through viper on top of DefaultConfig.
// Durations are given in milliseconds.
func LoadConfig() (*Config, error) {
	return loadConfig(viper.New())
}

func loadConfig(v *viper.Viper) (*Config, error) {
	def := DefaultConfig()

	defaults := map[string]any{
		EnvBaseURL:        def.Capture.BaseURL,
		EnvOutputDir:      def.Capture.OutputDir,
		EnvA11yDir:        def.Capture.A11yDir,
		EnvWaitTime:       def.Capture.Wait.Milliseconds(),
		EnvTimeout:        def.Capture.Timeout.Milliseconds(),
		EnvRetries:        def.Capture.Retries,
		EnvFullPage:       "false",
		EnvViewportWidth:  def.Browser.ViewportWidth,
		EnvViewportHeight: def.Browser.ViewportHeight,
		EnvBrowser:        def.Backend,
		EnvAxeCorePath:    "",
		EnvProbeTimeout:   def.WebClient.ProbeTimeout.Milliseconds(),
		EnvHistoryDB:      "",
		EnvLogLevel:       def.LogLevel,
	}
	for key, val := range defaults {
		v.SetDefault(key, val)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind %s: %w", key, err)
		}
	}

	cfg := def
	cfg.Capture.BaseURL = strings.TrimSpace(v.GetString(EnvBaseURL))
	cfg.Capture.OutputDir = v.GetString(EnvOutputDir)
	cfg.Capture.A11yDir = v.GetString(EnvA11yDir)
	cfg.Capture.Wait = time.Duration(cfg.intEnv(v, EnvWaitTime)) * time.Millisecond
	cfg.Capture.Timeout = time.Duration(cfg.intEnv(v, EnvTimeout)) * time.Millisecond
	cfg.Capture.Retries = int(cfg.intEnv(v, EnvRetries))
	// Only the literal "true" enables full-page capture.
	cfg.Capture.FullPage = v.GetString(EnvFullPage) == "true"
	cfg.Browser.ViewportWidth = int(cfg.intEnv(v, EnvViewportWidth))
	cfg.Browser.ViewportHeight = int(cfg.intEnv(v, EnvViewportHeight))
	cfg.Backend = strings.ToLower(strings.TrimSpace(v.GetString(EnvBrowser)))
	cfg.AxeCorePath = v.GetString(EnvAxeCorePath)
	cfg.WebClient.ProbeTimeout = time.Duration(cfg.intEnv(v, EnvProbeTimeout)) * time.Millisecond
	cfg.HistoryDB = strings.TrimSpace(v.GetString(EnvHistoryDB))
	cfg.LogLevel = v.GetString(EnvLogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// intEnv reads key as an integer. A value that is not a number is recorded
// for Validate and read as 0.
func (c *Config) intEnv(v *viper.Viper, key string) int64 {
	raw := v.Get(key)
	if s, ok := raw.(string); ok {
		raw = strings.TrimSpace(s)
	}
	n, err := cast.ToInt64E(raw)
	if err != nil {
		c.parseErrs = append(c.parseErrs, fmt.Errorf("%s must be an integer, got %q", key, v.GetString(key)))
		return 0
	}
	return n
}

// Validate reports every invalid option at once.
func (c *Config) Validate() error {
	errs := append([]error{}, c.parseErrs...)
	if u, err := url.Parse(c.Capture.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("%s must be an absolute URL, got %q", EnvBaseURL, c.Capture.BaseURL))
	}
	if strings.TrimSpace(c.Capture.OutputDir) == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", EnvOutputDir))
	}
	if strings.TrimSpace(c.Capture.A11yDir) == "" {
		errs = append(errs, fmt.Errorf("%s must not be empty", EnvA11yDir))
	}
	if c.Capture.Wait < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", EnvWaitTime))
	}
	if c.Capture.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvTimeout))
	}
	if c.Capture.Retries < 0 {
		errs = append(errs, fmt.Errorf("%s must not be negative", EnvRetries))
	}
	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		errs = append(errs, fmt.Errorf("viewport must be positive, got %dx%d", c.Browser.ViewportWidth, c.Browser.ViewportHeight))
	}
	if c.WebClient.ProbeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive", EnvProbeTimeout))
	}
	return errors.Join(errs...)
}
