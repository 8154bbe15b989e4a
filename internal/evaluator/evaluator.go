// Package evaluator scores a completed journey against a fixed
// usability rubric by asking an OpenAI-compatible chat model. The model
// is an opaque scoring oracle; this package only assembles the prompt,
// ships it with the run's screenshots, and parses the scores back out.
package evaluator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"vantage/internal/journey"
	"vantage/internal/persona"
)

// Rubric is the fixed set of criteria every run is scored on, 1-10
// each.
var Rubric = []string{"clarity", "efficiency", "feedback", "accessibility", "trust"}

// Config points the evaluator at a chat-completions endpoint. All
// fields are explicit; the caller wires environment variables in.
type Config struct {
	BaseURL string // default https://api.openai.com/v1
	APIKey  string
	Model   string // default gpt-4o-mini
	Timeout time.Duration
}

// CriterionScore is one rubric line from the model.
type CriterionScore struct {
	Criterion string `json:"criterion"`
	Score     int    `json:"score"`
	Rationale string `json:"rationale"`
}

// Evaluation is the parsed scoring result.
type Evaluation struct {
	Scores  []CriterionScore `json:"scores"`
	Overall float64          `json:"overall"`
	Summary string           `json:"summary"`
}

// Evaluator is a thin chat-completions client.
type Evaluator struct {
	cfg    Config
	client *http.Client
}

// New builds an evaluator. APIKey is required.
func New(cfg Config) (*Evaluator, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("evaluator: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Evaluator{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Evaluate scores the run. Screenshots that cannot be read are skipped;
// the transcript alone is still scorable.
func (e *Evaluator) Evaluate(ctx context.Context, p persona.Persona, steps []journey.StepRecord, captures []journey.Capture) (Evaluation, error) {
	parts := []contentPart{{Type: "text", Text: BuildPrompt(p, steps)}}
	for _, c := range captures {
		data, err := os.ReadFile(c.Path)
		if err != nil {
			continue
		}
		parts = append(parts, contentPart{
			Type: "image_url",
			ImageURL: &imageURL{
				URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
			},
		})
	}

	body, err := json.Marshal(chatRequest{
		Model:    e.cfg.Model,
		Messages: []chatMessage{{Role: "user", Content: parts}},
	})
	if err != nil {
		return Evaluation{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(e.cfg.BaseURL, "/")+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Evaluation{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return Evaluation{}, fmt.Errorf("evaluation request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Evaluation{}, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Evaluation{}, fmt.Errorf("malformed evaluation response: %w", err)
	}
	if parsed.Error != nil {
		return Evaluation{}, fmt.Errorf("evaluation API: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return Evaluation{}, fmt.Errorf("evaluation API: status %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return Evaluation{}, errors.New("evaluation API returned no choices")
	}

	return parseEvaluation(parsed.Choices[0].Message.Content)
}

// BuildPrompt assembles the scoring prompt from the persona and the
// step transcript.
func BuildPrompt(p persona.Persona, steps []journey.StepRecord) string {
	var b strings.Builder
	b.WriteString("You are evaluating a web product's user experience through the eyes of this persona:\n\n")
	b.WriteString(p.Describe())
	b.WriteString("\nThe persona walked this journey (failed steps are marked FAILED):\n")
	for _, s := range steps {
		status := "ok"
		if !s.OK {
			status = "FAILED: " + s.Error
		}
		fmt.Fprintf(&b, "%d. %s %s — %s\n", s.Index, s.Kind, s.Detail, status)
	}
	b.WriteString("\nScreenshots from the journey are attached.\n")
	fmt.Fprintf(&b, "\nScore the experience 1-10 on each criterion: %s.\n", strings.Join(Rubric, ", "))
	b.WriteString(`Respond with JSON only, in this shape:
{"scores":[{"criterion":"clarity","score":7,"rationale":"..."}],"summary":"..."}` + "\n")
	return b.String()
}

// parseEvaluation pulls the scores JSON out of the completion text.
// Models wrap JSON in prose or code fences often enough that a strict
// parse is not viable.
func parseEvaluation(content string) (Evaluation, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return Evaluation{}, fmt.Errorf("no JSON object in evaluation: %q", content)
	}

	var eval Evaluation
	if err := json.Unmarshal([]byte(content[start:end+1]), &eval); err != nil {
		return Evaluation{}, fmt.Errorf("parse evaluation JSON: %w", err)
	}
	if len(eval.Scores) == 0 {
		return Evaluation{}, errors.New("evaluation contains no scores")
	}

	total := 0
	for _, s := range eval.Scores {
		total += s.Score
	}
	eval.Overall = float64(total) / float64(len(eval.Scores))
	return eval, nil
}
