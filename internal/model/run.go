package model

import "time"

// RunRecord summarises one completed invocation for the run history.
type RunRecord struct {
	Mode       Mode
	BaseURL    string
	StartedAt  time.Time
	FinishedAt time.Time
	Results    []CaptureResult
	Reports    []*AccessibilityReport
}

// Failures counts unsuccessful targets.
func (r RunRecord) Failures() int {
	n := 0
	for _, res := range r.Results {
		if !res.Success {
			n++
		}
	}
	return n
}
