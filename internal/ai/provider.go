package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

var ErrUnavailable = errors.New("ai provider unavailable")

const (
	ModeLocal    = "local"
	ModeDeployed = "deployed"
)

// GenerateRequest is the provider-neutral shape of one generation call. Each
// provider maps it onto its own wire format.
type GenerateRequest struct {
	System      string
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// fullPrompt folds the system text into the prompt for backends that take a
// single prompt string.
func (r *GenerateRequest) fullPrompt() string {
	if strings.TrimSpace(r.System) == "" {
		return r.Prompt
	}
	return r.System + "\n\n" + r.Prompt
}

// Event is one step of a generation stream. Text is always the cumulative
// output so far. The last event on a channel has Done or Err set.
type Event struct {
	Delta string
	Text  string
	Done  bool
	Err   error
}

type IProvider interface {
	Name() string
	DefaultModel() string
	Stream(ctx context.Context, req *GenerateRequest) (<-chan Event, error)
	CheckAvailability(ctx context.Context) bool
}

// Generate runs req on p and returns the final text. onProgress, when set,
// receives the cumulative text after every event.
func Generate(ctx context.Context, p IProvider, req *GenerateRequest, onProgress func(text string)) (string, error) {
	ch, err := p.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	text, err := Collect(ch, onProgress)
	var perr *ProviderError
	if errors.As(err, &perr) && perr.Provider == "" {
		perr.Provider = p.Name()
	}
	return text, err
}

// Collect drains a stream. A channel that closes without a Done or Err event
// was cut short and yields an io.ErrUnexpectedEOF provider error.
func Collect(ch <-chan Event, onProgress func(text string)) (string, error) {
	var text string
	for ev := range ch {
		if ev.Err != nil {
			return "", ev.Err
		}
		text = ev.Text
		if onProgress != nil {
			onProgress(text)
		}
		if ev.Done {
			return text, nil
		}
	}
	return "", &ProviderError{Message: "stream closed before completion", Err: io.ErrUnexpectedEOF}
}

// singleEvent is the stream shape of providers that only return a final payload.
func singleEvent(text string) <-chan Event {
	ch := make(chan Event, 1)
	ch <- Event{Delta: text, Text: text, Done: true}
	close(ch)
	return ch
}

type ProviderError struct {
	Provider string
	Status   int
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s request failed: status %d: %s", e.Provider, e.Status, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

type ProviderArgs struct {
	Mode         string       `json:"mode"`
	ProxyBaseURL string       `json:"proxy_base_url"`
	BaseURL      string       `json:"base_url"`
	APIVersion   string       `json:"api_version"`
	Model        string       `json:"model"`
	APIKey       string       `json:"api_key"`
	NumCtx       int          `json:"num_ctx"`
	Client       *http.Client `json:"-"`
}

func (a ProviderArgs) deployed() bool {
	return strings.EqualFold(a.Mode, ModeDeployed)
}

func (a ProviderArgs) httpClient() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

type ProviderFactory func(args interface{}) (IProvider, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]ProviderFactory{}
)

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func NewProvider(name string, args interface{}) (IProvider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai provider is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

func decodeArgs(args interface{}) (ProviderArgs, error) {
	if args == nil {
		return ProviderArgs{}, fmt.Errorf("ai provider config is required")
	}
	switch v := args.(type) {
	case ProviderArgs:
		return trimArgs(v), nil
	case *ProviderArgs:
		return trimArgs(*v), nil
	}
	var out ProviderArgs
	data, err := json.Marshal(args)
	if err != nil {
		return out, fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode ai provider config: %w", err)
	}
	return trimArgs(out), nil
}

func trimArgs(a ProviderArgs) ProviderArgs {
	a.Mode = strings.TrimSpace(a.Mode)
	a.ProxyBaseURL = strings.TrimSpace(a.ProxyBaseURL)
	a.BaseURL = strings.TrimSpace(a.BaseURL)
	a.APIVersion = strings.TrimSpace(a.APIVersion)
	a.Model = strings.TrimSpace(a.Model)
	a.APIKey = strings.TrimSpace(a.APIKey)
	return a
}
