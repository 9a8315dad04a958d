package ai

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "openai/gpt-4o-mini"
	openRouterTitle          = "studygen"
)

func createOpenRouterFactory(args interface{}) (IProvider, error) {
	cfg, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenRouterModel
	}
	if cfg.deployed() {
		return newProxyProvider("openrouter", model, cfg), nil
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenRouterBaseURL
	}
	return &chatProvider{
		name:     "openrouter",
		apiKey:   cfg.APIKey,
		baseURL:  baseURL,
		model:    model,
		jsonMode: true,
		headers:  map[string]string{"X-Title": openRouterTitle},
		client:   cfg.httpClient(),
	}, nil
}

func init() {
	Register("openrouter", createOpenRouterFactory)
}
