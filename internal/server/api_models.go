package server

import (
	"time"

	"github.com/raysh454/design-polish/internal/model"
)

// CaptureRequest starts a local capture of Routes. WCAG defaults to true.
type CaptureRequest struct {
	Routes []string `json:"routes"`
	WCAG   *bool    `json:"wcag,omitempty"`
}

// Artifact describes a file in one of the output directories.
type Artifact struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	URL      string    `json:"url"`
}

// ReportListing pairs a report file with its summary counts.
type ReportListing struct {
	Artifact
	PageURL string              `json:"pageUrl"`
	Summary model.ReportSummary `json:"summary"`
}

// ProgressEvent is pushed over the capture websocket.
type ProgressEvent struct {
	Type   string               `json:"type"`
	Result *model.CaptureResult `json:"result,omitempty"`
	Final  any                  `json:"final,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error"`
}
