package ai

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	defaultGeminiBaseURL    = "https://generativelanguage.googleapis.com/"
	defaultGeminiAPIVersion = "v1beta"
	defaultGeminiModel      = "gemini-2.0-flash"
)

type geminiProvider struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	client     *http.Client
}

func (p *geminiProvider) Name() string {
	return "gemini"
}

func (p *geminiProvider) DefaultModel() string {
	return p.model
}

// CheckAvailability lists a single model with the configured key.
func (p *geminiProvider) CheckAvailability(ctx context.Context) bool {
	if p.apiKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	client, err := p.newClient(ctx)
	if err != nil {
		return false
	}
	if _, err := client.Models.List(ctx, &genai.ListModelsConfig{PageSize: 1}); err != nil {
		logutil.GetLogger(ctx).Debug("gemini model listing failed", zap.Error(err))
		return false
	}
	return true
}

func (p *geminiProvider) newClient(ctx context.Context) (*genai.Client, error) {
	return genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     p.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: p.client,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    p.baseURL,
			APIVersion: p.apiVersion,
		},
	})
}

func (p *geminiProvider) Stream(ctx context.Context, req *GenerateRequest) (<-chan Event, error) {
	if p.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := p.newClient(ctx)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}
	model := req.Model
	if model == "" {
		model = p.model
	}
	temperature := float32(req.Temperature)
	resp, err := client.Models.GenerateContent(
		ctx,
		model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: req.fullPrompt()}}}},
		&genai.GenerateContentConfig{
			Temperature:      &temperature,
			MaxOutputTokens:  int32(req.MaxTokens),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, p.wrapError(err)
	}
	return singleEvent(strings.TrimSpace(resp.Text())), nil
}

func (p *geminiProvider) wrapError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &ProviderError{Provider: p.Name(), Status: apiErr.Code, Message: apiErr.Message, Err: err}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &ProviderError{Provider: p.Name(), Status: apiErrPtr.Code, Message: apiErrPtr.Message, Err: err}
	}
	return &ProviderError{Provider: p.Name(), Err: err}
}

func createGeminiFactory(args interface{}) (IProvider, error) {
	cfg, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	if cfg.deployed() {
		return newProxyProvider("gemini", model, cfg), nil
	}
	p := &geminiProvider{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		apiVersion: cfg.APIVersion,
		model:      model,
		client:     cfg.httpClient(),
	}
	if p.baseURL == "" {
		p.baseURL = defaultGeminiBaseURL
	}
	if p.apiVersion == "" {
		p.apiVersion = defaultGeminiAPIVersion
	}
	return p, nil
}

func init() {
	Register("gemini", createGeminiFactory)
}
