package webclient

import "time"

// Config controls the plain HTTP client used for liveness probes.
type Config struct {
	// ProbeTimeout bounds a single liveness probe. Zero means 5s.
	ProbeTimeout time.Duration

	// UserAgent is sent with every request when non-empty.
	UserAgent string
}

func (c Config) probeTimeout() time.Duration {
	if c.ProbeTimeout <= 0 {
		return 5 * time.Second
	}
	return c.ProbeTimeout
}
