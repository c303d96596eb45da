package browser

import (
	"context"

	"github.com/raysh454/design-polish/internal/logging"
)

const (
	BackendChromedp = "chromedp"
	BackendRod      = "rod"
)

// RegisterDefaultBackends registers the chromedp and rod backends. Call this
// early in main() to make them available to Open.
func RegisterDefaultBackends() {
	RegisterBackend(BackendChromedp, func(ctx context.Context, opts Options, logger logging.Logger) (Session, error) {
		return NewChromedpSession(ctx, opts, logger)
	})
	RegisterBackend(BackendRod, func(ctx context.Context, opts Options, logger logging.Logger) (Session, error) {
		return NewRodSession(ctx, opts, logger)
	})
}
