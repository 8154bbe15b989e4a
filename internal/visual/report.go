package visual

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/lo"
)

// ReportFilename is the fixed name of the Markdown report inside the
// reports directory.
const ReportFilename = "visual-regression-report.md"

var statusGlyphs = map[Status]string{
	StatusNew:    "🆕",
	StatusPassed: "✅",
	StatusFailed: "❌",
	StatusError:  "⚠️",
}

// RenderReport produces the deterministic Markdown report for a run.
// Row order matches summary.Outcomes, which matches capture input
// order.
func (c *Comparator) RenderReport(summary *Summary, runID string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Visual Regression Report\n\n")
	fmt.Fprintf(&b, "- **Run:** %s\n", runID)
	fmt.Fprintf(&b, "- **Generated:** %s\n", c.now().Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Images compared:** %d\n\n", summary.Total)

	errored := lo.CountBy(summary.Outcomes, func(o Outcome) bool {
		return o.Status == StatusError
	})

	b.WriteString("## Summary\n\n")
	b.WriteString("| Status | Count |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| Passed | %d |\n", summary.Passed)
	fmt.Fprintf(&b, "| Failed | %d |\n", summary.Failed)
	fmt.Fprintf(&b, "| New | %d |\n", summary.New)
	if errored > 0 {
		fmt.Fprintf(&b, "| (of failed, errored) | %d |\n", errored)
	}
	b.WriteString("\n")

	b.WriteString("## Results\n\n")
	b.WriteString("| Image | Status | Diff | Baseline | Current | Diff Image |\n")
	b.WriteString("|-------|--------|------|----------|---------|------------|\n")
	for _, o := range summary.Outcomes {
		fmt.Fprintf(&b, "| %s | %s %s | %s | %s | %s | %s |\n",
			o.Filename,
			statusGlyphs[o.Status], o.Status,
			formatDiff(o),
			linkOrNA(o.BaselinePath),
			linkOrNA(o.CurrentPath),
			linkOrNA(o.DiffPath),
		)
	}
	b.WriteString("\n")

	b.WriteString("## Recommendations\n\n")
	if summary.Failed > 0 {
		fmt.Fprintf(&b, "- **Review failures.** %d comparison(s) exceeded the "+
			"pass threshold or could not be compared. Inspect the diff images; "+
			"promote the capture if the change is intentional.\n", summary.Failed)
	}
	if summary.New > 0 {
		fmt.Fprintf(&b, "- **New baselines adopted.** %d capture(s) had no prior "+
			"baseline and were adopted as-is. Verify they look correct before "+
			"trusting future comparisons against them.\n", summary.New)
	}
	if summary.Passed > 0 {
		fmt.Fprintf(&b, "- **Matches.** %d capture(s) matched their baselines "+
			"within tolerance. No action needed.\n", summary.Passed)
	}
	b.WriteString("\n")

	b.WriteString("## Technical Details\n\n")
	b.WriteString("- Comparison method: pixelmatch\n")
	fmt.Fprintf(&b, "- Per-pixel threshold: %.2f\n", c.cfg.PixelDiffThreshold)
	fmt.Fprintf(&b, "- Alpha weight: %.2f\n", c.cfg.AlphaWeight)
	fmt.Fprintf(&b, "- Pass threshold: %.2f%%\n", c.cfg.PassThreshold)
	fmt.Fprintf(&b, "- Baseline directory: %s\n", c.store.BaselineDir())
	fmt.Fprintf(&b, "- Diff directory: %s\n", c.store.DiffDir())

	return b.String()
}

// WriteReport renders the report and persists it under the reports
// directory. A failed write propagates: a report that silently fails to
// persist is worse than a visible error.
func (c *Comparator) WriteReport(summary *Summary, runID string) (string, error) {
	if err := os.MkdirAll(c.reportsDir, 0o755); err != nil {
		return "", fmt.Errorf("create reports dir: %w", err)
	}
	path := filepath.Join(c.reportsDir, ReportFilename)
	if err := os.WriteFile(path, []byte(c.RenderReport(summary, runID)), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	return path, nil
}

func formatDiff(o Outcome) string {
	if o.Status == StatusNew {
		return "N/A"
	}
	return fmt.Sprintf("%.2f%%", o.DiffPercentage)
}

func linkOrNA(path string) string {
	if path == "" {
		return "N/A"
	}
	return fmt.Sprintf("[%s](%s)", filepath.Base(path), path)
}
