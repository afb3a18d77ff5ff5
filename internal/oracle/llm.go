package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"llmchess/internal/config"
)

type provider struct {
	endpoint string
	model    string
	bearer   bool // key in Authorization header; otherwise in the query string
	payload  func(model, prompt string, temperature float64, maxTokens int) any
	text     func(body []byte) (string, error)
}

var providers = map[string]provider{
	config.ProviderOpenAI: {
		endpoint: "https://api.openai.com/v1/chat/completions",
		model:    "gpt-3.5-turbo",
		bearer:   true,
		payload:  openAIPayload,
		text:     openAIText,
	},
	config.ProviderGemini: {
		endpoint: "https://generativelanguage.googleapis.com/v1/models/%s:generateContent",
		model:    "gemini-2.0-flash",
		payload:  geminiPayload,
		text:     geminiText,
	},
	config.ProviderCohere: {
		endpoint: "https://api.cohere.ai/v1/generate",
		model:    "command",
		bearer:   true,
		payload:  coherePayload,
		text:     cohereText,
	},
}

// LLM asks a language model provider for a move
type LLM struct {
	name        string
	provider    provider
	endpoint    string
	model       string
	apiKey      string
	temperature float64
	maxTokens   int
	HTTPClient  *http.Client
}

func NewLLM(cfg config.Oracle) (*LLM, error) {
	p, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}

	l := &LLM{
		name:        cfg.Provider,
		provider:    p,
		endpoint:    p.endpoint,
		model:       p.model,
		apiKey:      cfg.APIKey,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	if cfg.Model != "" {
		l.model = cfg.Model
	}
	if cfg.Endpoint != "" {
		l.endpoint = cfg.Endpoint
	}
	if cfg.Provider == config.ProviderGemini && cfg.Endpoint == "" {
		l.endpoint = fmt.Sprintf(p.endpoint, l.model)
	}
	return l, nil
}

func (l *LLM) Name() string {
	return l.name + ":" + l.model
}

func (l *LLM) SuggestMove(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(l.provider.payload(l.model, BuildPrompt(req), l.temperature, l.maxTokens))
	if err != nil {
		return "", l.fail(0, err)
	}

	endpoint := l.endpoint
	if !l.provider.bearer {
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", l.fail(0, err)
		}
		q := u.Query()
		q.Set("key", l.apiKey)
		u.RawQuery = q.Encode()
		endpoint = u.String()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", l.fail(0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if l.provider.bearer {
		httpReq.Header.Set("Authorization", "Bearer "+l.apiKey)
	}

	resp, err := l.HTTPClient.Do(httpReq)
	if err != nil {
		return "", l.fail(0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", l.fail(resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", l.fail(resp.StatusCode, fmt.Errorf("LLM API error: %s", bytes.TrimSpace(respBody)))
	}

	text, err := l.provider.text(respBody)
	if err != nil {
		return "", l.fail(0, fmt.Errorf("decode response: %w", err))
	}
	move, ok := ExtractMove(text)
	if !ok {
		return "", l.fail(0, fmt.Errorf("%w: %q", ErrNoMove, text))
	}
	return move, nil
}

func (l *LLM) fail(status int, err error) error {
	return &Error{Oracle: l.Name(), Status: status, Err: err}
}

var errEmptyResponse = errors.New("empty response")

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func openAIPayload(model, prompt string, temperature float64, maxTokens int) any {
	return map[string]any{
		"model": model,
		"messages": []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		"temperature": temperature,
		"max_tokens":  maxTokens,
	}
}

func openAIText(body []byte) (string, error) {
	var resp struct {
		Choices []struct {
			Message openAIMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

func geminiPayload(_, prompt string, temperature float64, maxTokens int) any {
	return map[string]any{
		"contents": []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		"generationConfig": map[string]any{
			"temperature":     temperature,
			"maxOutputTokens": maxTokens,
		},
	}
}

func geminiText(body []byte) (string, error) {
	var resp struct {
		Candidates []struct {
			Content geminiContent `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", errEmptyResponse
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

func coherePayload(model, prompt string, temperature float64, maxTokens int) any {
	return map[string]any{
		"model":       model,
		"prompt":      prompt,
		"max_tokens":  maxTokens,
		"temperature": temperature,
	}
}

func cohereText(body []byte) (string, error) {
	var resp struct {
		Generations []struct {
			Text string `json:"text"`
		} `json:"generations"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", err
	}
	if len(resp.Generations) == 0 {
		return "", errEmptyResponse
	}
	return resp.Generations[0].Text, nil
}
