package ai

import (
	"context"
	"net/http"
	"strings"
)

const (
	defaultGroqBaseURL = "https://api.groq.com/openai/v1"
	defaultGroqModel   = "llama-3.3-70b-versatile"
)

// chatProvider speaks the OpenAI-compatible chat completions protocol shared
// by several hosted backends.
type chatProvider struct {
	name     string
	apiKey   string
	baseURL  string
	model    string
	jsonMode bool
	headers  map[string]string
	client   *http.Client
}

type chatRequest struct {
	Model          string              `json:"model"`
	Messages       []chatMsg           `json:"messages"`
	Temperature    float64             `json:"temperature"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *chatProvider) Name() string {
	return p.name
}

func (p *chatProvider) DefaultModel() string {
	return p.model
}

func (p *chatProvider) CheckAvailability(ctx context.Context) bool {
	if p.apiKey == "" {
		return false
	}
	return probe(ctx, p.client, joinURL(p.baseURL, "/models"), p.authHeader())
}

func (p *chatProvider) authHeader() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+p.apiKey)
	for k, v := range p.headers {
		h.Set(k, v)
	}
	return h
}

func (p *chatProvider) Stream(ctx context.Context, req *GenerateRequest) (<-chan Event, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	model := req.Model
	if model == "" {
		model = p.model
	}
	body := chatRequest{
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if strings.TrimSpace(req.System) != "" {
		body.Messages = append(body.Messages, chatMsg{Role: "system", Content: req.System})
	}
	body.Messages = append(body.Messages, chatMsg{Role: "user", Content: req.Prompt})
	if p.jsonMode {
		body.ResponseFormat = &chatResponseFormat{Type: "json_object"}
	}
	httpReq, err := newJSONRequest(ctx, http.MethodPost, joinURL(p.baseURL, "/chat/completions"), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range p.authHeader() {
		httpReq.Header[k] = vs
	}
	var out chatResponse
	if err := do(p.client, p.name, httpReq, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, &ProviderError{Provider: p.name, Status: http.StatusOK, Message: "response has no choices"}
	}
	return singleEvent(strings.TrimSpace(out.Choices[0].Message.Content)), nil
}

func createGroqFactory(args interface{}) (IProvider, error) {
	cfg, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = defaultGroqModel
	}
	if cfg.deployed() {
		return newProxyProvider("groq", model, cfg), nil
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}
	return &chatProvider{
		name:     "groq",
		apiKey:   cfg.APIKey,
		baseURL:  baseURL,
		model:    model,
		jsonMode: true,
		client:   cfg.httpClient(),
	}, nil
}

func init() {
	Register("groq", createGroqFactory)
}
