package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// DiffLatest compares the two newest stored reports for url and returns a
// line diff from the older to the newer one.
func (s *Store) DiffLatest(ctx context.Context, url string) (string, error) {
	reports, err := s.LatestReports(ctx, url, 2)
	if err != nil {
		return "", err
	}
	if len(reports) < 2 {
		return "", fmt.Errorf("%w: %s", ErrNotEnoughReports, url)
	}
	older, newer := reports[1], reports[0]
	header := fmt.Sprintf("--- %s (run %s)\n+++ %s (run %s)\n",
		older.CreatedAt.UTC().Format("2006-01-02 15:04:05"), older.RunID,
		newer.CreatedAt.UTC().Format("2006-01-02 15:04:05"), newer.RunID)
	return header + LineDiff(older.Body, newer.Body), nil
}

// LineDiff renders a line-level diff of a and b. Unchanged lines are prefixed
// with two spaces, removed lines with "- " and added lines with "+ ".
func LineDiff(a, b string) string {
	dmp := diffmatchpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteByte('\n')
			}
		}
	}
	return sb.String()
}
