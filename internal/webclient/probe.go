package webclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/raysh454/design-polish/internal/logging"
)

// ErrServerUnreachable is returned when the target server does not answer a
// liveness probe with a successful status.
var ErrServerUnreachable = errors.New("server unreachable")

// Probe issues a GET against url bounded by the configured probe timeout.
// Any transport error or a status of 400 and above yields an error wrapping
// ErrServerUnreachable.
func (nhc *NetHTTPClient) Probe(ctx context.Context, url string) error {
	ctx, cancel := context.WithTimeout(ctx, nhc.cfg.probeTimeout())
	defer cancel()

	resp, err := nhc.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrServerUnreachable, url, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s answered HTTP %d", ErrServerUnreachable, url, resp.StatusCode)
	}

	nhc.logger.Info("server is reachable",
		logging.Field{Key: "url", Value: url},
		logging.Field{Key: "status", Value: resp.StatusCode})
	return nil
}
