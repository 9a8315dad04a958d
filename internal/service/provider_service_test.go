package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/studygen/internal/config"
	"github.com/xxxsen/studygen/internal/model"
	appErr "github.com/xxxsen/studygen/internal/pkg/errors"
)

type memSettings struct {
	saved   *model.ProviderSettings
	saveErr error
}

func (m *memSettings) SaveSettings(ctx context.Context, s model.ProviderSettings) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = &s
	return nil
}

func (m *memSettings) LoadSettings(ctx context.Context) (model.ProviderSettings, bool, error) {
	if m.saved == nil {
		return model.ProviderSettings{}, false, nil
	}
	return *m.saved, true, nil
}

func ollamaServer(t *testing.T, hits *atomic.Int32) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestProviderService_DefaultsFromConfig(t *testing.T) {
	var hits atomic.Int32
	srv := ollamaServer(t, &hits)
	cfg := config.ProvidersConfig{Mode: config.ModeLocal, Active: "ollama", ProbeTTLSec: 60}
	cfg.Ollama.BaseURL = srv.URL
	svc, err := NewProviderService(context.Background(), cfg, &memSettings{}, srv.Client())
	require.NoError(t, err)

	require.Equal(t, "ollama", svc.Current().Name())
	require.True(t, svc.Available(context.Background()))
	require.True(t, svc.Available(context.Background()))
	require.Equal(t, int32(1), hits.Load())
}

func TestProviderService_UseAndSetKey(t *testing.T) {
	ctx := context.Background()
	settings := &memSettings{}
	cfg := config.ProvidersConfig{Mode: config.ModeLocal, Active: "ollama", ProbeTTLSec: 60}
	svc, err := NewProviderService(ctx, cfg, settings, nil)
	require.NoError(t, err)

	require.ErrorIs(t, svc.Use(ctx, "nope"), appErr.ErrInvalid)

	require.NoError(t, svc.Use(ctx, "Groq"))
	require.Equal(t, "groq", svc.Current().Name())
	// no key configured, reported without a network call
	require.False(t, svc.Available(ctx))

	require.NoError(t, svc.SetKey(ctx, "groq", " gsk-123 "))
	require.Equal(t, "gsk-123", settings.saved.Keys["groq"])
	require.Equal(t, "groq", settings.saved.Active)

	reloaded, err := NewProviderService(ctx, cfg, settings, nil)
	require.NoError(t, err)
	require.Equal(t, "groq", reloaded.Current().Name())
	require.Equal(t, "gsk-123", reloaded.Settings().Key("groq"))

	require.NoError(t, svc.SetKey(ctx, "groq", ""))
	require.Empty(t, settings.saved.Keys)
}

func TestProviderService_SaveFailureKeepsPrevious(t *testing.T) {
	ctx := context.Background()
	settings := &memSettings{}
	svc, err := NewProviderService(ctx, config.ProvidersConfig{Mode: config.ModeLocal, Active: "ollama"}, settings, nil)
	require.NoError(t, err)
	settings.saveErr = errors.New("disk full")
	require.Error(t, svc.Use(ctx, "gemini"))
	require.Equal(t, "ollama", svc.Current().Name())
	require.Equal(t, "ollama", svc.Settings().Active)
}

func TestProviderService_DeployedOllamaUnavailable(t *testing.T) {
	cfg := config.ProvidersConfig{Mode: config.ModeDeployed, Active: "ollama", ProxyBaseURL: "http://127.0.0.1:1"}
	svc, err := NewProviderService(context.Background(), cfg, nil, nil)
	require.NoError(t, err)
	require.False(t, svc.Available(context.Background()))

	direct, err := svc.Direct("groq")
	require.NoError(t, err)
	require.Equal(t, "groq", direct.Name())
}

func TestProviderService_Status(t *testing.T) {
	var hits atomic.Int32
	srv := ollamaServer(t, &hits)
	cfg := config.ProvidersConfig{Mode: config.ModeLocal, Active: "ollama"}
	cfg.Ollama.BaseURL = srv.URL
	cfg.Gemini.APIKey = "from-config"
	cfg.Gemini.BaseURL = srv.URL
	svc, err := NewProviderService(context.Background(), cfg, nil, srv.Client())
	require.NoError(t, err)

	statuses := svc.Status(context.Background())
	require.Len(t, statuses, len(KnownProviders))
	byName := map[string]ProviderStatus{}
	for _, st := range statuses {
		byName[st.Name] = st
	}
	require.True(t, byName["ollama"].Active)
	require.True(t, byName["ollama"].Available)
	require.True(t, byName["gemini"].HasKey)
	require.False(t, byName["groq"].HasKey)
	require.False(t, byName["groq"].Available)
}

func TestProviderService_OverrideIsNotSaved(t *testing.T) {
	ctx := context.Background()
	settings := &memSettings{}
	cfg := config.ProvidersConfig{Mode: config.ModeLocal, Active: "ollama", ProbeTTLSec: 60}
	svc, err := NewProviderService(ctx, cfg, settings, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Use(ctx, "gemini"))

	require.ErrorIs(t, svc.Override(ctx, "nope"), appErr.ErrInvalid)
	require.NoError(t, svc.Override(ctx, " OpenRouter "))
	require.Equal(t, "openrouter", svc.Current().Name())
	require.Equal(t, "gemini", svc.Settings().Active)
	require.Equal(t, "gemini", settings.saved.Active)

	next, err := NewProviderService(ctx, cfg, settings, nil)
	require.NoError(t, err)
	require.Equal(t, "gemini", next.Current().Name())
}
