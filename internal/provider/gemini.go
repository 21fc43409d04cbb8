// internal/provider/gemini.go
//
// Gemini-backed implementation of the Ranker and Hinter interfaces.
// Responsibilities:
//   - Build the contextual-distance prompt for a (secret, guess) pair and
//     request a strict JSON response ({isWord, rank}) via a response schema.
//   - Build the hint prompt and read back a single plain-text word.
//   - Short-circuit secret == guess to rank 1 without a network call.
//
// Environment variables:
//   GEMINI_API_KEY   (required for live use)
//   GEMINI_MODEL     (default "gemini-2.5-flash")

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultModel = "gemini-2.5-flash"

// Gemini calls the Generative Language REST API.
type Gemini struct {
	APIKey  string
	Model   string
	BaseURL string // overridable for tests
	HTTP    *http.Client
}

// NewGemini constructs a client with sane defaults.
func NewGemini(apiKey, model string) *Gemini {
	if model == "" {
		model = defaultModel
	}
	return &Gemini{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// --- request/response payloads (subset of the API we use) ---

type genRequest struct {
	Contents         []genContent  `json:"contents"`
	GenerationConfig *genGenConfig `json:"generationConfig,omitempty"`
}
type genContent struct {
	Parts []genPart `json:"parts"`
}
type genPart struct {
	Text string `json:"text"`
}
type genGenConfig struct {
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   json.RawMessage `json:"responseSchema,omitempty"`
}
type genResponse struct {
	Candidates []struct {
		Content genContent `json:"content"`
	} `json:"candidates"`
}

// rankSchema constrains the model to the {isWord, rank} shape.
var rankSchema = json.RawMessage(`{
  "type": "OBJECT",
  "properties": {
    "isWord": {"type": "BOOLEAN", "description": "True if the guessed word is a valid Persian word."},
    "rank":   {"type": "INTEGER", "description": "The estimated rank distance (e.g., 5, 400, 5000)."}
  },
  "required": ["isWord", "rank"]
}`)

// Rank asks the model for the contextual distance between secret and guess.
func (g *Gemini) Rank(ctx context.Context, secret, guess string) (Result, error) {
	if secret == guess {
		return Result{IsWord: true, Rank: 1}, nil
	}

	prompt := fmt.Sprintf(`I am building a game called Contexto. The secret Persian word is %q.
The user guessed %q.

Task 1: Is %q a valid Persian word?
Task 2: Estimate the "contextual distance" or rank of the guess relative to the secret word based on how often they appear in similar contexts in Persian literature, news, and daily conversation.

Rules:
- Rank 1 is the secret word itself.
- Synonyms or highly related words should have low ranks (2-100).
- Somewhat related words should be mid-rank (101-1000).
- Unrelated words should be high rank (1000+).
- Be consistent.

Return JSON only.`, secret, guess, guess)

	text, err := g.generate(ctx, prompt, &genGenConfig{
		ResponseMimeType: "application/json",
		ResponseSchema:   rankSchema,
	})
	if err != nil {
		return Result{}, err
	}

	var out Result
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		return Result{}, fmt.Errorf("parse rank response: %w", err)
	}
	if out.Rank == 0 {
		// Model satisfied the schema but returned nonsense; treat as far away.
		out = Result{IsWord: true, Rank: 5000}
	}
	return out, nil
}

// Hint asks the model for one related word near targetRank.
func (g *Gemini) Hint(ctx context.Context, secret string, targetRank int) (string, error) {
	prompt := fmt.Sprintf(`The secret Persian word is %q.
Provide a single Persian word that is contextually related to this word, with an estimated rank of approximately %d.
(Rank 1 is the word itself. Rank 10 is very close. Rank 100 is moderately related. Rank 1000 is far).
Do not use the secret word itself.
Return only the word string, nothing else.`, secret, targetRank)

	text, err := g.generate(ctx, prompt, &genGenConfig{ResponseMimeType: "text/plain"})
	if err != nil {
		return "", err
	}
	word := strings.TrimSpace(text)
	if word == "" {
		return "", fmt.Errorf("empty hint response")
	}
	return word, nil
}

// generate performs one generateContent round-trip and returns the first
// candidate's text.
func (g *Gemini) generate(ctx context.Context, prompt string, cfg *genGenConfig) (string, error) {
	body, err := json.Marshal(genRequest{
		Contents:         []genContent{{Parts: []genPart{{Text: prompt}}}},
		GenerationConfig: cfg,
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.BaseURL, g.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.APIKey)

	res, err := g.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generateContent: status %d", res.StatusCode)
	}

	var parsed genResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode generateContent response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("generateContent: no candidates")
	}
	return parsed.Candidates[0].Content.Parts[0].Text, nil
}
