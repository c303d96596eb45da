package demoserver

import "time"

// Config holds configuration for the demo server.
type Config struct {
	// Port is the port on which the demo server listens.
	Port int

	// InitialVersion is the starting version for all pages (default: 1).
	InitialVersion int

	// MaxDelay caps the ?delay= parameter of /slow.
	MaxDelay time.Duration
}

// DefaultConfig returns a Config matching the capture tool's default BASE_URL.
func DefaultConfig() Config {
	return Config{
		Port:           3000,
		InitialVersion: 1,
		MaxDelay:       60 * time.Second,
	}
}
