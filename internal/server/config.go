package server

import "github.com/raysh454/design-polish/internal/capture"

type Config struct {
	// ListenAddr is the HTTP listen address of the results browser.
	ListenAddr string

	// Capture locates the screenshot and report directories.
	Capture capture.Config
}
