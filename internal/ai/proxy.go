package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// proxyProvider forwards a hosted provider through the same-origin proxy so the
// provider credentials never leave the server.
type proxyProvider struct {
	name    string
	model   string
	baseURL string
	client  *http.Client
}

type ProxyGenerateRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
}

type ProxyGenerateResponse struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
	Code  int    `json:"code,omitempty"`
}

type ProxyStatusResponse struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

func newProxyProvider(name, model string, cfg ProviderArgs) *proxyProvider {
	return &proxyProvider{
		name:    name,
		model:   model,
		baseURL: cfg.ProxyBaseURL,
		client:  cfg.httpClient(),
	}
}

func (p *proxyProvider) Name() string {
	return p.name
}

func (p *proxyProvider) DefaultModel() string {
	return p.model
}

func (p *proxyProvider) CheckAvailability(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := newJSONRequest(ctx, http.MethodGet, joinURL(p.baseURL, "/api/status/"+p.name), nil)
	if err != nil {
		return false
	}
	var out ProxyStatusResponse
	if err := do(p.client, p.name, req, &out); err != nil {
		logutil.GetLogger(ctx).Debug("proxy status probe failed", zap.String("provider", p.name), zap.Error(err))
		return false
	}
	if !out.Available {
		logutil.GetLogger(ctx).Debug("provider reported unavailable", zap.String("provider", p.name), zap.String("reason", out.Reason))
	}
	return out.Available
}

func (p *proxyProvider) Stream(ctx context.Context, req *GenerateRequest) (<-chan Event, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}
	httpReq, err := newJSONRequest(ctx, http.MethodPost, joinURL(p.baseURL, "/api/"+p.name+"/generate"), ProxyGenerateRequest{
		Prompt: req.fullPrompt(),
		Model:  model,
	})
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: p.name, Err: err}
	}
	defer resp.Body.Close()
	var out ProxyGenerateResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msg := strings.TrimSpace(out.Error)
		if msg == "" {
			msg = resp.Status
		}
		return nil, &ProviderError{Provider: p.name, Status: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return nil, &ProviderError{Provider: p.name, Status: resp.StatusCode, Message: "decode response", Err: decodeErr}
	}
	if out.Error != "" {
		return nil, &ProviderError{Provider: p.name, Status: resp.StatusCode, Message: out.Error}
	}
	return singleEvent(strings.TrimSpace(out.Text)), nil
}
