package model

import "time"

// AccessibilityReport is the reduced outcome of one audit of one page.
type AccessibilityReport struct {
	Timestamp  time.Time         `json:"timestamp"`
	URL        string            `json:"url"`
	Summary    ReportSummary     `json:"summary"`
	Violations []Violation       `json:"violations"`
	Incomplete []IncompleteCheck `json:"incomplete"`
}

// ReportSummary holds the counts of each finding category.
type ReportSummary struct {
	Violations int `json:"violations"`
	Passes     int `json:"passes"`
	Incomplete int `json:"incomplete"`
}

// Violation is a rule that definitely failed on the page.
type Violation struct {
	ID          string          `json:"id"`
	Impact      string          `json:"impact"`
	Description string          `json:"description"`
	HelpURL     string          `json:"helpUrl"`
	Nodes       []ViolatingNode `json:"nodes"`
}

// ViolatingNode describes one DOM element that failed a rule.
type ViolatingNode struct {
	Target         []string `json:"target"`
	HTML           string   `json:"html"`
	FailureSummary string   `json:"failureSummary"`
}

// IncompleteCheck is a rule the engine could not resolve automatically.
type IncompleteCheck struct {
	ID          string `json:"id"`
	Impact      string `json:"impact"`
	Description string `json:"description"`
}

// AffectedNodes counts offending elements across all violations.
func (r *AccessibilityReport) AffectedNodes() int {
	n := 0
	for _, v := range r.Violations {
		n += len(v.Nodes)
	}
	return n
}
