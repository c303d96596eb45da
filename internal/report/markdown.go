// Package report renders saved accessibility reports and the run history
// as Markdown for humans.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/raysh454/design-polish/internal/history"
	"github.com/raysh454/design-polish/internal/model"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// Load reads a report JSON file as written by a wcag audit.
func Load(path string) (*model.AccessibilityReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r model.AccessibilityReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode report %s: %w", path, err)
	}
	if r.URL == "" {
		return nil, fmt.Errorf("decode report %s: missing url", path)
	}
	return &r, nil
}

// WriteReport renders one accessibility report.
func WriteReport(w io.Writer, r *model.AccessibilityReport) error {
	md := markdown.NewMarkdown(w)

	md.H1("Accessibility Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", "`" + r.URL + "`"},
			{"Audited", r.Timestamp.UTC().Format(timeLayout)},
			{"Violations", strconv.Itoa(r.Summary.Violations)},
			{"Passes", strconv.Itoa(r.Summary.Passes)},
			{"Incomplete", strconv.Itoa(r.Summary.Incomplete)},
			{"Affected elements", strconv.Itoa(r.AffectedNodes())},
		},
	})
	md.PlainText("")

	writeAlert(md, r)
	writeViolations(md, r.Violations)
	writeIncomplete(md, r.Incomplete)

	return md.Build()
}

func writeAlert(md *markdown.Markdown, r *model.AccessibilityReport) {
	critical := 0
	for _, v := range r.Violations {
		if v.Impact == "critical" || v.Impact == "serious" {
			critical++
		}
	}
	switch {
	case critical > 0:
		md.Cautionf("%d critical or serious violation(s) block users of assistive technology.", critical)
	case len(r.Violations) > 0:
		md.Warningf("%d violation(s) found.", len(r.Violations))
	default:
		md.Tip("No WCAG 2.1 AA violations detected.")
	}
	md.PlainText("")
}

func writeViolations(md *markdown.Markdown, violations []model.Violation) {
	md.H2("Violations")
	md.PlainText("")
	if len(violations) == 0 {
		md.PlainText("None.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(violations))
	for i, v := range violations {
		rows[i] = []string{"`" + v.ID + "`", orDash(v.Impact), escapeCell(v.Description), strconv.Itoa(len(v.Nodes))}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rule", "Impact", "Description", "Elements"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, v := range violations {
		md.H3(v.ID)
		md.PlainText("")
		if v.HelpURL != "" {
			md.PlainTextf("See %s", v.HelpURL)
			md.PlainText("")
		}
		items := make([]string, 0, len(v.Nodes))
		for _, n := range v.Nodes {
			items = append(items, "`"+strings.Join(n.Target, ", ")+"`")
		}
		if len(items) > 0 {
			md.BulletList(items...)
			md.PlainText("")
		}
	}
}

func writeIncomplete(md *markdown.Markdown, checks []model.IncompleteCheck) {
	md.H2("Needs Review")
	md.PlainText("")
	if len(checks) == 0 {
		md.PlainText("None.")
		md.PlainText("")
		return
	}
	rows := make([][]string, len(checks))
	for i, c := range checks {
		rows[i] = []string{"`" + c.ID + "`", orDash(c.Impact), escapeCell(c.Description)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rule", "Impact", "Description"},
		Rows:   rows,
	})
	md.PlainText("")
}

// WriteRuns renders the run history as a table, newest first.
func WriteRuns(w io.Writer, runs []history.Run) error {
	md := markdown.NewMarkdown(w)
	md.H1("Capture History")
	md.PlainText("")

	if len(runs) == 0 {
		md.PlainText("No runs recorded.")
		return md.Build()
	}

	rows := make([][]string, len(runs))
	for i, r := range runs {
		rows[i] = []string{
			r.StartedAt.UTC().Format(timeLayout),
			string(r.Mode),
			orDash(r.BaseURL),
			strconv.Itoa(r.Targets),
			strconv.Itoa(r.Failures),
			r.FinishedAt.Sub(r.StartedAt).Round(10 * time.Millisecond).String(),
			shortID(r.ID),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Started", "Mode", "Base URL", "Targets", "Failures", "Duration", "Run"},
		Rows:   rows,
	})
	return md.Build()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
