package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"vantage/internal/evaluator"
	"vantage/internal/journey"
	"vantage/internal/persona"
	"vantage/internal/visual"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	switch os.Args[1] {
	case "run":
		runCmd(os.Args[2:])
	case "compare":
		compareCmd(os.Args[2:])
	case "promote":
		promoteCmd(os.Args[2:])
	case "delete":
		deleteCmd(os.Args[2:])
	case "prune":
		pruneCmd(os.Args[2:])
	case "list":
		listCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Println("vantage usage:")
	fmt.Println("  vantage run     --persona <path> [--base-url <url>] [--headless=false] [--eval]")
	fmt.Println("  vantage compare --dir <captures> --run-id <id>")
	fmt.Println("  vantage promote --file <capture> --name <filename>")
	fmt.Println("  vantage delete  --name <filename>")
	fmt.Println("  vantage prune   [--max-age 168h]")
	fmt.Println("  vantage list    # list run ids and baselines")
	fmt.Println("  vantage serve   [--port 8787]")
}

// newComparator wires the standard workspace layout: baselines under
// <workspace>/baselines, reports and diff artifacts under
// <workspace>/reports.
func newComparator(workspace string) *visual.Comparator {
	reportsDir := filepath.Join(workspace, "reports")
	store := visual.NewStore(
		filepath.Join(workspace, "baselines"),
		filepath.Join(reportsDir, "diffs"),
	)
	return visual.NewComparator(store, reportsDir, visual.DefaultConfig())
}

func runCmd(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	personaPath := fs.String("persona", "", "Persona definition (YAML)")
	baseURL := fs.String("base-url", "", "Base URL for relative navigate steps")
	headless := fs.Bool("headless", true, "Headless mode")
	workspace := fs.String("workspace", ".", "Workspace root")
	eval := fs.Bool("eval", false, "Score the journey with an LLM (needs OPENAI_API_KEY)")
	model := fs.String("model", "", "Evaluation model name")
	llmURL := fs.String("llm-url", os.Getenv("OPENAI_BASE_URL"), "Evaluation API base URL")
	fs.Parse(args)

	res, err := journey.Run(journey.Options{
		BaseURL:     *baseURL,
		PersonaPath: *personaPath,
		Headless:    *headless,
		Workspace:   *workspace,
	})
	if err != nil {
		log.Fatalf("journey failed: %v", err)
	}

	comp := newComparator(*workspace)
	summary, err := comp.CompareAll(toVisualCaptures(res.Captures), res.RunID)
	if err != nil {
		log.Fatalf("comparison failed: %v", err)
	}
	reportPath, err := comp.WriteReport(summary, res.RunID)
	if err != nil {
		log.Fatalf("report write failed: %v", err)
	}

	out := map[string]any{
		"manifest": res.Manifest,
		"visual":   summary,
		"report":   reportPath,
	}

	if *eval {
		p, err := persona.Load(*personaPath)
		if err != nil {
			log.Fatalf("load persona for evaluation: %v", err)
		}
		e, err := evaluator.New(evaluator.Config{
			BaseURL: *llmURL,
			APIKey:  os.Getenv("OPENAI_API_KEY"),
			Model:   *model,
		})
		if err != nil {
			log.Fatalf("evaluator: %v", err)
		}
		evaluation, err := e.Evaluate(context.Background(), p, res.Steps, res.Captures)
		if err != nil {
			log.Printf("evaluation failed: %v", err)
		} else {
			out["evaluation"] = evaluation
		}
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func compareCmd(args []string) {
	fs := flag.NewFlagSet("compare", flag.ExitOnError)
	dir := fs.String("dir", "", "Directory of captured PNGs")
	runID := fs.String("run-id", "", "Run identifier")
	workspace := fs.String("workspace", ".", "Workspace root")
	fs.Parse(args)

	if *dir == "" || *runID == "" {
		log.Fatal("--dir and --run-id are required")
	}

	entries, err := os.ReadDir(*dir)
	if err != nil {
		log.Fatalf("read captures dir: %v", err)
	}
	var captures []visual.Capture
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".png") {
			continue
		}
		captures = append(captures, visual.Capture{
			Name: e.Name(),
			Path: filepath.Join(*dir, e.Name()),
		})
	}
	sort.Slice(captures, func(i, j int) bool { return captures[i].Name < captures[j].Name })

	comp := newComparator(*workspace)
	summary, err := comp.CompareAll(captures, *runID)
	if err != nil {
		log.Fatalf("comparison failed: %v", err)
	}
	reportPath, err := comp.WriteReport(summary, *runID)
	if err != nil {
		log.Fatalf("report write failed: %v", err)
	}

	b, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(b))
	fmt.Println("report:", reportPath)

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func promoteCmd(args []string) {
	fs := flag.NewFlagSet("promote", flag.ExitOnError)
	file := fs.String("file", "", "Capture file to promote")
	name := fs.String("name", "", "Baseline filename")
	workspace := fs.String("workspace", ".", "Workspace root")
	fs.Parse(args)

	if *file == "" || *name == "" {
		log.Fatal("--file and --name are required")
	}

	comp := newComparator(*workspace)
	if err := comp.Store().EnsureReady(); err != nil {
		log.Fatal(err)
	}
	if err := comp.Store().Adopt(*file, *name); err != nil {
		log.Fatalf("promote failed: %v", err)
	}
	fmt.Printf("promoted %s as baseline %s\n", *file, *name)
}

func deleteCmd(args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	name := fs.String("name", "", "Baseline filename")
	workspace := fs.String("workspace", ".", "Workspace root")
	fs.Parse(args)

	if *name == "" {
		log.Fatal("--name is required")
	}

	comp := newComparator(*workspace)
	if err := comp.Store().Remove(*name); err != nil {
		log.Fatalf("delete failed: %v", err)
	}
	fmt.Printf("deleted baseline %s\n", *name)
}

func pruneCmd(args []string) {
	fs := flag.NewFlagSet("prune", flag.ExitOnError)
	maxAge := fs.Duration("max-age", visual.DefaultConfig().RetentionWindow, "Delete diff artifacts older than this")
	workspace := fs.String("workspace", ".", "Workspace root")
	fs.Parse(args)

	comp := newComparator(*workspace)
	deleted := comp.PruneDiffArtifacts(*maxAge)
	fmt.Printf("pruned %d diff artifact(s)\n", deleted)
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	workspace := fs.String("workspace", ".", "Workspace root")
	fs.Parse(args)

	runs, err := journey.FindRuns(*workspace)
	if err == nil {
		for _, id := range runs {
			fmt.Println("run:", id)
		}
	}

	comp := newComparator(*workspace)
	baselines, err := comp.Store().ListAll()
	if err != nil {
		log.Fatal(err)
	}
	for _, name := range baselines {
		fmt.Println("baseline:", name)
	}
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", 8787, "Port to listen on")
	workspace := fs.String("workspace", ".", "Workspace root")
	fs.Parse(args)

	s := newServer(*workspace)
	addr := fmt.Sprintf(":%d", *port)
	log.Printf("vantage serve listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, s.routes()))
}

func toVisualCaptures(captures []journey.Capture) []visual.Capture {
	out := make([]visual.Capture, 0, len(captures))
	for _, c := range captures {
		out = append(out, visual.Capture{Name: c.Name, Path: c.Path})
	}
	return out
}
