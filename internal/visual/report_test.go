package visual

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClockComparator(t *testing.T) *Comparator {
	t.Helper()
	comp, _ := newTestComparator(t)
	comp.now = func() time.Time {
		return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	}
	return comp
}

func TestRenderReport_MixedOutcomes(t *testing.T) {
	comp := fixedClockComparator(t)

	summary := &Summary{
		Total:  4,
		Passed: 1,
		Failed: 2,
		New:    1,
		Outcomes: []Outcome{
			{Filename: "home.png", Status: StatusPassed, DiffPercentage: 0.42,
				BaselinePath: "baselines/home.png", CurrentPath: "captures/home.png"},
			{Filename: "login.png", Status: StatusFailed, DiffPercentage: 8.1234,
				BaselinePath: "baselines/login.png", CurrentPath: "captures/login.png",
				DiffPath: "diffs/run1-login.png"},
			{Filename: "cart.png", Status: StatusError, DiffPercentage: 100,
				BaselinePath: "baselines/cart.png", CurrentPath: "captures/cart.png",
				Err: "decode captures/cart.png: png: invalid format"},
			{Filename: "promo.png", Status: StatusNew,
				BaselinePath: "baselines/promo.png", CurrentPath: "captures/promo.png"},
		},
	}

	report := comp.RenderReport(summary, "run1")

	assert.Contains(t, report, "# Visual Regression Report")
	assert.Contains(t, report, "- **Run:** run1")
	assert.Contains(t, report, "- **Generated:** 2026-03-14T09:26:53Z")
	assert.Contains(t, report, "- **Images compared:** 4")

	assert.Contains(t, report, "| Passed | 1 |")
	assert.Contains(t, report, "| Failed | 2 |")
	assert.Contains(t, report, "| New | 1 |")

	// Percentages to two decimals; "N/A" for new baselines and absent
	// artifacts.
	assert.Contains(t, report, "8.12%")
	assert.Contains(t, report, "| promo.png | 🆕 new | N/A |")
	assert.Contains(t, report, "[run1-login.png](diffs/run1-login.png)")
	failedRow := rowFor(t, report, "cart.png")
	assert.Contains(t, failedRow, "N/A |", "errored row has no diff artifact link")

	// All three recommendation paragraphs fire for this summary.
	assert.Contains(t, report, "Review failures")
	assert.Contains(t, report, "New baselines adopted")
	assert.Contains(t, report, "Matches")

	assert.Contains(t, report, "Comparison method: pixelmatch")
	assert.Contains(t, report, "Per-pixel threshold: 0.10")
	assert.Contains(t, report, "Pass threshold: 5.00%")
}

func TestRenderReport_RecommendationsGatedOnCounters(t *testing.T) {
	comp := fixedClockComparator(t)

	allPassed := &Summary{Total: 1, Passed: 1, Outcomes: []Outcome{
		{Filename: "home.png", Status: StatusPassed},
	}}
	report := comp.RenderReport(allPassed, "run1")
	assert.NotContains(t, report, "Review failures")
	assert.NotContains(t, report, "New baselines adopted")
	assert.Contains(t, report, "Matches")

	allNew := &Summary{Total: 1, New: 1, Outcomes: []Outcome{
		{Filename: "home.png", Status: StatusNew},
	}}
	report = comp.RenderReport(allNew, "run2")
	assert.NotContains(t, report, "Review failures")
	assert.Contains(t, report, "New baselines adopted")
	assert.NotContains(t, report, "Matches")
}

func TestRenderReport_AllErrorRunStillRenders(t *testing.T) {
	comp := fixedClockComparator(t)

	summary := &Summary{Total: 2, Failed: 2, Outcomes: []Outcome{
		{Filename: "a.png", Status: StatusError, DiffPercentage: 100, Err: "boom"},
		{Filename: "b.png", Status: StatusError, DiffPercentage: 100, Err: "boom"},
	}}

	report := comp.RenderReport(summary, "run1")
	assert.Contains(t, report, "| Failed | 2 |")
	assert.Contains(t, report, "a.png")
	assert.Contains(t, report, "b.png")
}

func TestRenderReport_Deterministic(t *testing.T) {
	comp := fixedClockComparator(t)
	summary := &Summary{Total: 1, Passed: 1, Outcomes: []Outcome{
		{Filename: "home.png", Status: StatusPassed, DiffPercentage: 0.5},
	}}
	assert.Equal(t, comp.RenderReport(summary, "run1"), comp.RenderReport(summary, "run1"))
}

func TestWriteReport_PersistsUnderReportsDir(t *testing.T) {
	root := t.TempDir()
	store := NewStore(filepath.Join(root, "baselines"), filepath.Join(root, "reports", "diffs"))
	comp := NewComparator(store, filepath.Join(root, "reports"), DefaultConfig())

	summary := &Summary{Total: 1, Passed: 1, Outcomes: []Outcome{
		{Filename: "home.png", Status: StatusPassed},
	}}

	path, err := comp.WriteReport(summary, "run1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "reports", ReportFilename), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "- **Run:** run1")
}

// rowFor returns the results-table line mentioning filename.
func rowFor(t *testing.T, report, filename string) string {
	t.Helper()
	for _, line := range strings.Split(report, "\n") {
		if strings.HasPrefix(line, "| "+filename) {
			return line
		}
	}
	t.Fatalf("no table row for %s", filename)
	return ""
}
