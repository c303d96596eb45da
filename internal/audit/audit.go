package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/raysh454/design-polish/internal/browser"
	"github.com/raysh454/design-polish/internal/model"
)

// MaxSnippetLen bounds the HTML kept per offending node.
const MaxSnippetLen = 200

const loadedCheck = `() => typeof window.axe !== "undefined"`

// runScript trims the axe result in the page so only what the report needs
// crosses the DevTools connection.
const runScript = `() => axe.run(document, {runOnly: {type: "tag", values: %s}}).then(r => ({
	violations: r.violations.map(v => ({
		id: v.id, impact: v.impact, description: v.description, helpUrl: v.helpUrl,
		nodes: v.nodes.map(n => ({target: n.target, html: n.html, failureSummary: n.failureSummary}))
	})),
	passes: r.passes.length,
	incomplete: r.incomplete.map(v => ({id: v.id, impact: v.impact, description: v.description}))
}))`

// RawResult is the trimmed axe-core output.
type RawResult struct {
	Violations []RawViolation  `json:"violations"`
	Passes     int             `json:"passes"`
	Incomplete []RawIncomplete `json:"incomplete"`
}

type RawViolation struct {
	ID          string    `json:"id"`
	Impact      string    `json:"impact"`
	Description string    `json:"description"`
	HelpURL     string    `json:"helpUrl"`
	Nodes       []RawNode `json:"nodes"`
}

type RawNode struct {
	// Target holds CSS selectors; entries are nested arrays for elements
	// inside shadow roots or iframes.
	Target         []any  `json:"target"`
	HTML           string `json:"html"`
	FailureSummary string `json:"failureSummary"`
}

type RawIncomplete struct {
	ID          string `json:"id"`
	Impact      string `json:"impact"`
	Description string `json:"description"`
}

// Audit runs the rule engine against the page's current DOM. The engine is
// injected only if the page does not already carry it.
func (e *Engine) Audit(ctx context.Context, page browser.Page, url string, now time.Time) (*model.AccessibilityReport, error) {
	var loaded bool
	if err := page.Evaluate(ctx, loadedCheck, &loaded); err != nil {
		return nil, fmt.Errorf("probe for axe-core: %w", err)
	}
	if !loaded {
		if err := page.InjectScript(ctx, e.source); err != nil {
			return nil, fmt.Errorf("inject axe-core: %w", err)
		}
	}

	tags, err := json.Marshal(RuleTags)
	if err != nil {
		return nil, err
	}
	var raw RawResult
	if err := page.Evaluate(ctx, fmt.Sprintf(runScript, tags), &raw); err != nil {
		return nil, fmt.Errorf("run axe-core: %w", err)
	}
	return Reduce(raw, url, now), nil
}

// Reduce turns the raw engine output into a report.
func Reduce(raw RawResult, url string, now time.Time) *model.AccessibilityReport {
	report := &model.AccessibilityReport{
		Timestamp: now.UTC(),
		URL:       url,
		Summary: model.ReportSummary{
			Violations: len(raw.Violations),
			Passes:     raw.Passes,
			Incomplete: len(raw.Incomplete),
		},
		Violations: make([]model.Violation, 0, len(raw.Violations)),
		Incomplete: make([]model.IncompleteCheck, 0, len(raw.Incomplete)),
	}

	for _, v := range raw.Violations {
		nodes := make([]model.ViolatingNode, 0, len(v.Nodes))
		for _, n := range v.Nodes {
			nodes = append(nodes, model.ViolatingNode{
				Target:         flattenTarget(n.Target),
				HTML:           Snippet(n.HTML),
				FailureSummary: n.FailureSummary,
			})
		}
		report.Violations = append(report.Violations, model.Violation{
			ID:          v.ID,
			Impact:      v.Impact,
			Description: v.Description,
			HelpURL:     v.HelpURL,
			Nodes:       nodes,
		})
	}

	for _, c := range raw.Incomplete {
		report.Incomplete = append(report.Incomplete, model.IncompleteCheck{
			ID:          c.ID,
			Impact:      c.Impact,
			Description: c.Description,
		})
	}
	return report
}

// Snippet truncates html to MaxSnippetLen runes.
func Snippet(html string) string {
	r := []rune(html)
	if len(r) <= MaxSnippetLen {
		return html
	}
	return string(r[:MaxSnippetLen])
}

func flattenTarget(target []any) []string {
	out := make([]string, 0, len(target))
	for _, t := range target {
		switch v := t.(type) {
		case string:
			out = append(out, v)
		case []any:
			out = append(out, strings.Join(flattenTarget(v), " >>> "))
		default:
			out = append(out, fmt.Sprint(v))
		}
	}
	return out
}
