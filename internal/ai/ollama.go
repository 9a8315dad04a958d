package ai

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3.2"
	defaultOllamaNumCtx  = 8192
)

type ollamaProvider struct {
	baseURL  string
	model    string
	numCtx   int
	deployed bool
	client   *http.Client
}

type ollamaGenerateRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Format  string        `json:"format"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
	NumCtx      int     `json:"num_ctx,omitempty"`
}

type ollamaFragment struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error"`
}

func (p *ollamaProvider) Name() string {
	return "ollama"
}

func (p *ollamaProvider) DefaultModel() string {
	return p.model
}

// CheckAvailability never touches the network in a deployed context: the
// daemon only exists on a developer machine.
func (p *ollamaProvider) CheckAvailability(ctx context.Context) bool {
	if p.deployed {
		return false
	}
	return probe(ctx, p.client, joinURL(p.baseURL, "/api/tags"), nil)
}

func (p *ollamaProvider) Stream(ctx context.Context, req *GenerateRequest) (<-chan Event, error) {
	if p.deployed {
		return nil, ErrUnavailable
	}
	model := req.Model
	if model == "" {
		model = p.model
	}
	body := ollamaGenerateRequest{
		Model:  model,
		Prompt: req.fullPrompt(),
		Stream: true,
		Format: "json",
		Options: ollamaOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
			NumCtx:      p.numCtx,
		},
	}
	httpReq, err := newJSONRequest(ctx, http.MethodPost, joinURL(p.baseURL, "/api/generate"), body)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(p.Name(), resp)
	}
	ch := make(chan Event)
	go p.readStream(ctx, resp, ch)
	return ch, nil
}

// readStream decodes newline-delimited JSON fragments. A fragment that does not
// parse is skipped; the stream continues with the next line.
func (p *ollamaProvider) readStream(ctx context.Context, resp *http.Response, ch chan<- Event) {
	defer close(ch)
	defer resp.Body.Close()
	logger := logutil.GetLogger(ctx)

	send := func(ev Event) bool {
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}
	// fail delivers the terminal error even after ctx is done, as long as the
	// reader is still waiting on the channel.
	fail := func(text string, err error) {
		ev := Event{Text: text, Err: err}
		select {
		case ch <- ev:
		case <-ctx.Done():
			select {
			case ch <- ev:
			default:
			}
		}
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var frag ollamaFragment
		if err := json.Unmarshal([]byte(line), &frag); err != nil {
			logger.Debug("skip malformed stream fragment", zap.String("provider", p.Name()), zap.Error(err))
			continue
		}
		if frag.Error != "" {
			fail(sb.String(), &ProviderError{Provider: p.Name(), Status: resp.StatusCode, Message: frag.Error})
			return
		}
		sb.WriteString(frag.Response)
		if !send(Event{Delta: frag.Response, Text: sb.String(), Done: frag.Done}) {
			fail(sb.String(), &ProviderError{Provider: p.Name(), Err: ctx.Err()})
			return
		}
		if frag.Done {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		fail(sb.String(), &ProviderError{Provider: p.Name(), Err: err})
		return
	}
	if err := ctx.Err(); err != nil {
		fail(sb.String(), &ProviderError{Provider: p.Name(), Err: err})
		return
	}
	send(Event{Text: sb.String(), Done: true})
}

func createOllamaFactory(args interface{}) (IProvider, error) {
	cfg, err := decodeArgs(args)
	if err != nil {
		return nil, err
	}
	p := &ollamaProvider{
		baseURL:  cfg.BaseURL,
		model:    cfg.Model,
		numCtx:   cfg.NumCtx,
		deployed: cfg.deployed(),
		client:   cfg.httpClient(),
	}
	if p.baseURL == "" {
		p.baseURL = defaultOllamaBaseURL
	}
	if p.model == "" {
		p.model = defaultOllamaModel
	}
	if p.numCtx <= 0 {
		p.numCtx = defaultOllamaNumCtx
	}
	return p, nil
}

func init() {
	Register("ollama", createOllamaFactory)
}
