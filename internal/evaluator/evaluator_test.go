package evaluator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vantage/internal/journey"
	"vantage/internal/persona"
)

func testPersona(t *testing.T) persona.Persona {
	t.Helper()
	p, err := persona.Parse([]byte(`
name: Busy Parent
goal: Book a class fast
traits: [impatient]
journey:
  - navigate: https://example.test
  - screenshot: home.png
`))
	require.NoError(t, err)
	return p
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestBuildPrompt(t *testing.T) {
	steps := []journey.StepRecord{
		{Index: 1, Kind: "navigate", Detail: "https://example.test", OK: true},
		{Index: 2, Kind: "click", Detail: "text=Sign up", OK: false, Error: "timeout"},
	}

	prompt := BuildPrompt(testPersona(t), steps)

	assert.Contains(t, prompt, "Name: Busy Parent")
	assert.Contains(t, prompt, "Goal: Book a class fast")
	for _, criterion := range Rubric {
		assert.Contains(t, prompt, criterion)
	}
	assert.Contains(t, prompt, "1. navigate https://example.test — ok")
	assert.Contains(t, prompt, "FAILED: timeout")
	assert.Contains(t, prompt, `"scores"`)
}

func TestParseEvaluation(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		eval, err := parseEvaluation(`{"scores":[{"criterion":"clarity","score":8,"rationale":"clear"},{"criterion":"trust","score":6,"rationale":"meh"}],"summary":"decent"}`)
		require.NoError(t, err)
		assert.Len(t, eval.Scores, 2)
		assert.Equal(t, 7.0, eval.Overall)
		assert.Equal(t, "decent", eval.Summary)
	})

	t.Run("fenced JSON", func(t *testing.T) {
		content := "Here you go:\n```json\n{\"scores\":[{\"criterion\":\"clarity\",\"score\":5,\"rationale\":\"ok\"}],\"summary\":\"fine\"}\n```\n"
		eval, err := parseEvaluation(content)
		require.NoError(t, err)
		assert.Equal(t, 5.0, eval.Overall)
	})

	t.Run("no JSON", func(t *testing.T) {
		_, err := parseEvaluation("I cannot score this.")
		assert.Error(t, err)
	})

	t.Run("empty scores", func(t *testing.T) {
		_, err := parseEvaluation(`{"scores":[],"summary":"?"}`)
		assert.Error(t, err)
	})
}

func TestEvaluate_EndToEnd(t *testing.T) {
	var gotAuth string
	var gotReq chatRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{
					"content": `{"scores":[{"criterion":"clarity","score":9,"rationale":"good"}],"summary":"smooth"}`,
				}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e, err := New(Config{BaseURL: server.URL, APIKey: "test-key", Model: "test-model"})
	require.NoError(t, err)

	// One readable capture, one missing: the missing one is skipped.
	dir := t.TempDir()
	shot := filepath.Join(dir, "home.png")
	require.NoError(t, os.WriteFile(shot, []byte("fake png bytes"), 0o644))

	eval, err := e.Evaluate(context.Background(), testPersona(t),
		[]journey.StepRecord{{Index: 1, Kind: "navigate", Detail: "https://example.test", OK: true}},
		[]journey.Capture{
			{Name: "home.png", Path: shot},
			{Name: "gone.png", Path: filepath.Join(dir, "gone.png")},
		})
	require.NoError(t, err)

	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotReq.Model)
	require.Len(t, gotReq.Messages, 1)
	// Prompt text plus exactly one image part.
	require.Len(t, gotReq.Messages[0].Content, 2)
	assert.Equal(t, "text", gotReq.Messages[0].Content[0].Type)
	assert.Equal(t, "image_url", gotReq.Messages[0].Content[1].Type)
	assert.Contains(t, gotReq.Messages[0].Content[1].ImageURL.URL, "data:image/png;base64,")

	assert.Equal(t, 9.0, eval.Overall)
	assert.Equal(t, "smooth", eval.Summary)
}

func TestEvaluate_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "rate limited"},
		})
	}))
	defer server.Close()

	e, err := New(Config{BaseURL: server.URL, APIKey: "k"})
	require.NoError(t, err)

	_, err = e.Evaluate(context.Background(), testPersona(t), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
}
