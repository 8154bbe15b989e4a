package visual

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/orisano/pixelmatch"
)

// Status classifies one image's comparison outcome.
type Status string

const (
	// StatusNew marks a capture with no prior baseline; it was adopted.
	StatusNew Status = "new"
	// StatusPassed marks a capture within the pass threshold.
	StatusPassed Status = "passed"
	// StatusFailed marks a capture exceeding the pass threshold.
	StatusFailed Status = "failed"
	// StatusError marks a capture that could not be compared (dimension
	// mismatch, decode failure). Counted under Failed in summaries.
	StatusError Status = "error"
)

// Capture is one freshly produced screenshot awaiting judgment.
type Capture struct {
	// Name is the human-meaningful filename keying the baseline.
	Name string
	// Path is where the capture's bytes live on disk.
	Path string
}

// Outcome is the immutable record of one image's comparison.
type Outcome struct {
	Filename       string  `json:"filename"`
	Status         Status  `json:"status"`
	DiffPercentage float64 `json:"diff_percentage"`
	BaselinePath   string  `json:"baseline_path,omitempty"`
	CurrentPath    string  `json:"current_path,omitempty"`
	// DiffPath is empty when no artifact was written.
	DiffPath string `json:"diff_path,omitempty"`
	// Err carries the failure text for StatusError outcomes.
	Err string `json:"error,omitempty"`
}

// Summary aggregates one run's outcomes. Error-status outcomes are
// folded into Failed, so Total == Passed + Failed + New always holds.
type Summary struct {
	Total    int       `json:"total"`
	Passed   int       `json:"passed"`
	Failed   int       `json:"failed"`
	New      int       `json:"new"`
	Outcomes []Outcome `json:"outcomes"`
}

// Comparator judges captured screenshots against the baseline store and
// materializes diff artifacts and reports. Images are processed
// sequentially in input order; one image's failure never affects
// another's classification.
type Comparator struct {
	store      *Store
	reportsDir string
	cfg        Config
	now        func() time.Time
}

// NewComparator builds a comparator. Zero-valued Config fields fall
// back to defaults.
func NewComparator(store *Store, reportsDir string, cfg Config) *Comparator {
	return &Comparator{
		store:      store,
		reportsDir: reportsDir,
		cfg:        cfg.withDefaults(),
		now:        time.Now,
	}
}

// Config returns the effective configuration.
func (c *Comparator) Config() Config {
	return c.cfg
}

// Store returns the underlying baseline store.
func (c *Comparator) Store() *Store {
	return c.store
}

// CompareAll applies the per-image comparison to every capture, in
// input order, and returns the run summary. Per-image failures are
// folded into that image's outcome; structural failures (unwritable
// store, failed adoption) abort and propagate.
func (c *Comparator) CompareAll(captures []Capture, runID string) (*Summary, error) {
	if err := c.store.EnsureReady(); err != nil {
		return nil, err
	}

	summary := &Summary{}
	for _, capture := range captures {
		outcome, err := c.compareOne(capture, runID)
		if err != nil {
			return nil, err
		}
		summary.Outcomes = append(summary.Outcomes, outcome)
		summary.Total++
		switch outcome.Status {
		case StatusNew:
			summary.New++
		case StatusPassed:
			summary.Passed++
		default:
			// failed and error both count against Failed.
			summary.Failed++
		}
	}
	return summary, nil
}

// compareOne judges a single capture. The returned error is structural
// only (adoption/store writes); comparison trouble lands in the
// outcome.
func (c *Comparator) compareOne(capture Capture, runID string) (Outcome, error) {
	outcome := Outcome{
		Filename:    capture.Name,
		CurrentPath: capture.Path,
	}

	exists, err := c.store.HasBaseline(capture.Name)
	if err != nil {
		return c.erroredOutcome(outcome, err), nil
	}

	if !exists {
		if err := c.store.Adopt(capture.Path, capture.Name); err != nil {
			return Outcome{}, fmt.Errorf("adopt %s: %w", capture.Name, err)
		}
		outcome.Status = StatusNew
		outcome.BaselinePath = c.store.BaselinePath(capture.Name)
		slog.Info("adopted new baseline", "filename", capture.Name)
		return outcome, nil
	}

	outcome.BaselinePath = c.store.BaselinePath(capture.Name)

	baseline, err := decodePNG(outcome.BaselinePath)
	if err != nil {
		return c.erroredOutcome(outcome, err), nil
	}
	current, err := decodePNG(capture.Path)
	if err != nil {
		return c.erroredOutcome(outcome, err), nil
	}

	if !baseline.Bounds().Size().Eq(current.Bounds().Size()) {
		err := fmt.Errorf("dimension mismatch: baseline %v vs capture %v",
			baseline.Bounds().Size(), current.Bounds().Size())
		return c.erroredOutcome(outcome, err), nil
	}

	var diffImg image.Image
	diffPixels, err := pixelmatch.MatchPixel(baseline, current,
		pixelmatch.Threshold(c.cfg.PixelDiffThreshold),
		pixelmatch.Alpha(c.cfg.AlphaWeight),
		pixelmatch.DiffColor(color.RGBA{R: 255, A: 255}),
		pixelmatch.AntiAliasedColor(color.RGBA{R: 255, G: 255, A: 255}),
		pixelmatch.WriteTo(&diffImg),
	)
	if err != nil {
		return c.erroredOutcome(outcome, err), nil
	}

	bounds := baseline.Bounds()
	totalPixels := bounds.Dx() * bounds.Dy()
	if totalPixels > 0 {
		outcome.DiffPercentage = float64(diffPixels) / float64(totalPixels) * 100
	}

	if outcome.DiffPercentage < c.cfg.PassThreshold {
		outcome.Status = StatusPassed
		return outcome, nil
	}

	outcome.Status = StatusFailed
	diffPath := c.store.DiffPath(runID, capture.Name)
	if err := encodePNG(diffPath, diffImg); err != nil {
		// Classification stands; the artifact is advisory.
		slog.Warn("diff artifact write failed", "filename", capture.Name, "error", err)
	} else {
		outcome.DiffPath = diffPath
	}
	return outcome, nil
}

// erroredOutcome pins the sentinel 100% so an uncomparable image biases
// the run toward review instead of silently passing.
func (c *Comparator) erroredOutcome(outcome Outcome, err error) Outcome {
	outcome.Status = StatusError
	outcome.DiffPercentage = 100
	outcome.Err = err.Error()
	slog.Warn("comparison errored", "filename", outcome.Filename, "error", err)
	return outcome
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

func encodePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
