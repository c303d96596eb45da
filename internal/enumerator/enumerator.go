// Package enumerator discovers the routes of a local site by following
// same-origin links, so a whole project can be captured without listing
// every route by hand.
package enumerator

import (
	"context"

	"github.com/raysh454/design-polish/internal/webclient"
)

type Enumerator interface {
	Enumerate(ctx context.Context, target string) ([]string, error)
}

// Fetcher is the part of the web client the spider needs.
type Fetcher interface {
	Get(ctx context.Context, url string) (*webclient.Response, error)
}
