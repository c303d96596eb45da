package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/raysh454/design-polish/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReport(url string, ts time.Time, violations int) *model.AccessibilityReport {
	r := &model.AccessibilityReport{
		Timestamp:  ts,
		URL:        url,
		Summary:    model.ReportSummary{Violations: violations, Passes: 10},
		Violations: []model.Violation{},
		Incomplete: []model.IncompleteCheck{},
	}
	for i := 0; i < violations; i++ {
		r.Violations = append(r.Violations, model.Violation{
			ID:     "image-alt",
			Impact: "critical",
			Nodes:  []model.ViolatingNode{{Target: []string{"img"}, HTML: "<img src=x>"}},
		})
	}
	return r
}

func TestResolvePath(t *testing.T) {
	got, err := ResolvePath("/tmp/x.db")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/x.db", got)

	t.Setenv("XDG_DATA_HOME", t.TempDir())
	auto, err := ResolvePath(AutoPath)
	require.NoError(t, err)
	assert.Equal(t, "history.db", filepath.Base(auto))
	assert.Equal(t, "design-polish", filepath.Base(filepath.Dir(auto)))
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("", nil)
	require.Error(t, err)
}

func TestRecord_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	rec := model.RunRecord{
		Mode:       model.ModeLocal,
		BaseURL:    "http://localhost:3000",
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
		Results: []model.CaptureResult{
			{Route: "/", Filename: "current-main.png", Success: true},
			{Route: "/about", Filename: "current-about.png", Error: "navigation timeout"},
		},
		Reports: []*model.AccessibilityReport{sampleReport("http://localhost:3000/", start, 1)},
	}
	require.NoError(t, s.Record(ctx, rec))

	runs, err := s.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.ModeLocal, runs[0].Mode)
	assert.Equal(t, 2, runs[0].Targets)
	assert.Equal(t, 1, runs[0].Failures)
	assert.True(t, runs[0].StartedAt.Equal(start))

	results, err := s.Results(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Results, results)

	reports, err := s.LatestReports(ctx, "http://localhost:3000/", 5)
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, runs[0].ID, reports[0].RunID)
	assert.Equal(t, 1, reports[0].Report.Summary.Violations)
	assert.Equal(t, "image-alt", reports[0].Report.Violations[0].ID)
}

func TestRuns_NewestFirstAndLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, s.Record(ctx, model.RunRecord{
			Mode:       model.ModeReference,
			StartedAt:  ts,
			FinishedAt: ts,
		}))
	}

	runs, err := s.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, runs[0].StartedAt.After(runs[1].StartedAt))
	assert.True(t, runs[0].StartedAt.Equal(base.Add(2*time.Hour)))
}

func TestDiffLatest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	url := "http://localhost:3000/"
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, model.RunRecord{
		Mode: model.ModeWCAG, StartedAt: base, FinishedAt: base,
		Reports: []*model.AccessibilityReport{sampleReport(url, base, 0)},
	}))

	_, err := s.DiffLatest(ctx, url)
	require.ErrorIs(t, err, ErrNotEnoughReports)

	later := base.Add(time.Hour)
	require.NoError(t, s.Record(ctx, model.RunRecord{
		Mode: model.ModeWCAG, StartedAt: later, FinishedAt: later,
		Reports: []*model.AccessibilityReport{sampleReport(url, later, 1)},
	}))

	out, err := s.DiffLatest(ctx, url)
	require.NoError(t, err)
	assert.Contains(t, out, "--- 2026-03-01 00:00:00")
	assert.Contains(t, out, "+++ 2026-03-01 01:00:00")
	assert.Contains(t, out, `+     "violations": 1,`)
	assert.Contains(t, out, `-     "violations": 0,`)
}

func TestLineDiff(t *testing.T) {
	out := LineDiff("a\nb\nc\n", "a\nc\nd\n")
	assert.Equal(t, "  a\n- b\n  c\n+ d\n", out)
}

func TestLineDiff_Identical(t *testing.T) {
	assert.Equal(t, "  same\n", LineDiff("same\n", "same\n"))
}
