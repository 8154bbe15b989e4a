// Package journey drives a browser through a persona's scripted
// journey and collects screenshot captures for the current run.
package journey

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vantage/internal/persona"

	"github.com/playwright-community/playwright-go"
)

// Options configure a run.
type Options struct {
	BaseURL     string // prefix for relative navigate targets
	PersonaPath string
	Headless    bool
	Workspace   string // base path; defaults to cwd
	ViewportW   int
	ViewportH   int
}

// StepRecord is the transcript entry for one executed journey step.
type StepRecord struct {
	Index  int       `json:"index"`
	Kind   string    `json:"kind"`
	Detail string    `json:"detail"`
	OK     bool      `json:"ok"`
	Error  string    `json:"error,omitempty"`
	At     time.Time `json:"at"`
}

// Capture is one screenshot produced during the run.
type Capture struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// Manifest is persisted to run.json.
type Manifest struct {
	RunID       string       `json:"run_id"`
	StartedAt   time.Time    `json:"started_at"`
	FinishedAt  time.Time    `json:"finished_at"`
	PersonaName string       `json:"persona_name"`
	PersonaGoal string       `json:"persona_goal,omitempty"`
	BaseURL     string       `json:"base_url,omitempty"`
	Captures    []Capture    `json:"captures"`
	Steps       []StepRecord `json:"steps"`
	LogPath     string       `json:"log_path"`
}

// Result contains the run's artifacts and transcript.
type Result struct {
	RunID    string
	RunDir   string
	Manifest Manifest
	Captures []Capture
	Steps    []StepRecord
	LogPath  string
}

// Run walks one persona journey and produces captures. Individual step
// failures are logged and recorded but do not stop the journey; the
// evaluator and comparator judge whatever the run managed to produce.
func Run(opts Options) (Result, error) {
	if opts.PersonaPath == "" {
		return Result{}, errors.New("PersonaPath is required")
	}
	if opts.Workspace == "" {
		cwd, _ := os.Getwd()
		opts.Workspace = cwd
	}
	if opts.ViewportW == 0 {
		opts.ViewportW = 1280
	}
	if opts.ViewportH == 0 {
		opts.ViewportH = 720
	}

	p, err := persona.Load(opts.PersonaPath)
	if err != nil {
		return Result{}, fmt.Errorf("load persona: %w", err)
	}

	runID := fmt.Sprintf("%x", time.Now().UnixNano())
	runDir := filepath.Join(opts.Workspace, "runs", runID)
	capturesDir := filepath.Join(runDir, "captures")
	logsDir := filepath.Join(runDir, "logs")
	if err := os.MkdirAll(capturesDir, 0o755); err != nil {
		return Result{}, err
	}
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return Result{}, err
	}

	logPath := filepath.Join(logsDir, "journey.ndjson")
	logFile, err := os.Create(logPath)
	if err != nil {
		return Result{}, err
	}
	defer logFile.Close()
	logger := newNDJSONLogger(logFile)

	logger.info("runner", "installing playwright browsers", nil)
	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
		return Result{}, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return Result{}, err
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     []string{"--disable-dev-shm-usage"},
	})
	if err != nil {
		return Result{}, fmt.Errorf("launch browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.NewPage(playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{Width: opts.ViewportW, Height: opts.ViewportH},
	})
	if err != nil {
		return Result{}, err
	}

	start := time.Now()
	logger.info("runner", "journey starting", map[string]any{
		"persona": p.Name, "steps": len(p.Journey),
	})

	var (
		captures []Capture
		steps    []StepRecord
	)
	for i, step := range p.Journey {
		rec := StepRecord{
			Index:  i + 1,
			Kind:   string(step.Kind),
			Detail: describeStep(step),
			OK:     true,
			At:     time.Now(),
		}
		capture, err := execStep(page, step, opts, capturesDir)
		if err != nil {
			rec.OK = false
			rec.Error = err.Error()
			logger.warn("step", "step failed; continuing", map[string]any{
				"index": rec.Index, "kind": rec.Kind, "error": err.Error(),
			})
		} else {
			logger.info("step", "step done", map[string]any{
				"index": rec.Index, "kind": rec.Kind, "detail": rec.Detail,
			})
			if capture != nil {
				captures = append(captures, *capture)
			}
		}
		steps = append(steps, rec)
	}

	if err := page.Close(); err != nil {
		logger.warn("runner", "close page", map[string]any{"error": err.Error()})
	}

	manifest := Manifest{
		RunID:       runID,
		StartedAt:   start,
		FinishedAt:  time.Now(),
		PersonaName: p.Name,
		PersonaGoal: p.Goal,
		BaseURL:     opts.BaseURL,
		Captures:    captures,
		Steps:       steps,
		LogPath:     logPath,
	}
	if err := writeManifest(filepath.Join(runDir, "run.json"), manifest); err != nil {
		logger.warn("runner", "write manifest failed", map[string]any{"error": err.Error()})
	}

	logger.info("runner", "journey finished", map[string]any{
		"run_id": runID, "captures": len(captures),
	})

	return Result{
		RunID:    runID,
		RunDir:   runDir,
		Manifest: manifest,
		Captures: captures,
		Steps:    steps,
		LogPath:  logPath,
	}, nil
}

// execStep performs one journey step. A non-nil Capture is returned for
// screenshot steps.
func execStep(page playwright.Page, step persona.Step, opts Options, capturesDir string) (*Capture, error) {
	switch step.Kind {
	case persona.StepNavigate:
		target := resolveURL(opts.BaseURL, step.URL)
		_, err := page.Goto(target, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateNetworkidle,
			Timeout:   playwright.Float(40_000),
		})
		if err != nil {
			return nil, fmt.Errorf("navigate %s: %w", target, err)
		}
		return nil, nil

	case persona.StepFill:
		if err := page.Fill(step.Selector, step.Value); err != nil {
			return nil, fmt.Errorf("fill %s: %w", step.Selector, err)
		}
		return nil, nil

	case persona.StepClick:
		if err := page.Click(step.Selector); err != nil {
			return nil, fmt.Errorf("click %s: %w", step.Selector, err)
		}
		return nil, nil

	case persona.StepExpect:
		count, err := page.Locator(step.Selector).Count()
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", step.Selector, err)
		}
		if count != step.Count {
			return nil, fmt.Errorf("expected %d of %s, found %d", step.Count, step.Selector, count)
		}
		return nil, nil

	case persona.StepWait:
		page.WaitForTimeout(float64(step.Millis))
		return nil, nil

	case persona.StepScreenshot:
		path := filepath.Join(capturesDir, step.Name)
		if _, err := page.Screenshot(playwright.PageScreenshotOptions{
			Path:     playwright.String(path),
			FullPage: playwright.Bool(true),
		}); err != nil {
			return nil, fmt.Errorf("screenshot %s: %w", step.Name, err)
		}
		return &Capture{Name: step.Name, Path: path}, nil

	default:
		return nil, fmt.Errorf("unknown step kind %q", step.Kind)
	}
}

// resolveURL joins relative navigate targets onto the configured base.
func resolveURL(base, target string) string {
	if base == "" || strings.Contains(target, "://") {
		return target
	}
	b, err := url.Parse(base)
	if err != nil {
		return target
	}
	t, err := url.Parse(target)
	if err != nil {
		return target
	}
	return b.ResolveReference(t).String()
}

func describeStep(step persona.Step) string {
	switch step.Kind {
	case persona.StepNavigate:
		return step.URL
	case persona.StepFill:
		return step.Selector + " = " + step.Value
	case persona.StepClick, persona.StepExpect:
		return step.Selector
	case persona.StepWait:
		return fmt.Sprintf("%dms", step.Millis)
	case persona.StepScreenshot:
		return step.Name
	}
	return ""
}
