package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/studygen/internal/ai"
	"github.com/xxxsen/studygen/internal/config"
	"github.com/xxxsen/studygen/internal/model"
	appErr "github.com/xxxsen/studygen/internal/pkg/errors"
)

// KnownProviders lists the selectable providers in display order.
var KnownProviders = []string{"ollama", "gemini", "groq", "openrouter"}

type SettingsStore interface {
	SaveSettings(ctx context.Context, settings model.ProviderSettings) error
	LoadSettings(ctx context.Context) (model.ProviderSettings, bool, error)
}

type ProviderStatus struct {
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	HasKey    bool   `json:"hasKey"`
	Available bool   `json:"available"`
	Model     string `json:"model"`
}

// ProviderService owns the process-wide provider selection. Changes are
// persisted and take effect on the next generation call.
type ProviderService struct {
	mu       sync.RWMutex
	cfg      config.ProvidersConfig
	store    SettingsStore
	settings model.ProviderSettings
	current  ai.IProvider
	cache    *ai.AvailabilityCache
	client   *http.Client
}

func NewProviderService(ctx context.Context, cfg config.ProvidersConfig, store SettingsStore, client *http.Client) (*ProviderService, error) {
	s := &ProviderService{
		cfg:    cfg,
		store:  store,
		cache:  ai.NewAvailabilityCache(time.Duration(cfg.ProbeTTLSec) * time.Second),
		client: client,
		settings: model.ProviderSettings{
			Active: strings.ToLower(cfg.Active),
			Keys:   map[string]string{},
		},
	}
	if store != nil {
		saved, ok, err := store.LoadSettings(ctx)
		if err != nil {
			logutil.GetLogger(ctx).Error("load provider settings failed, use config", zap.Error(err))
		}
		if ok {
			if saved.Active != "" {
				s.settings.Active = saved.Active
			}
			for k, v := range saved.Keys {
				s.settings.Keys[k] = v
			}
		}
	}
	current, err := s.build(s.settings.Active, s.cfg.Mode)
	if err != nil {
		return nil, err
	}
	s.current = current
	return s, nil
}

func (s *ProviderService) Current() ai.IProvider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *ProviderService) Available(ctx context.Context) bool {
	return s.cache.Check(ctx, s.Current())
}

func (s *ProviderService) Settings() model.ProviderSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make(map[string]string, len(s.settings.Keys))
	for k, v := range s.settings.Keys {
		keys[k] = v
	}
	return model.ProviderSettings{Active: s.settings.Active, Keys: keys}
}

// Use switches the active provider.
func (s *ProviderService) Use(ctx context.Context, name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if !ai.IsRegistered(name) {
		return fmt.Errorf("unknown provider %q: %w", name, appErr.ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.settings
	next.Active = name
	return s.applyLocked(ctx, next)
}

// Override switches the provider for the lifetime of this service only. The
// saved selection is left alone.
func (s *ProviderService) Override(ctx context.Context, name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if !ai.IsRegistered(name) {
		return fmt.Errorf("unknown provider %q: %w", name, appErr.ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.build(name, s.cfg.Mode)
	if err != nil {
		return err
	}
	s.current = current
	s.cache.Purge()
	logutil.GetLogger(ctx).Info("provider overridden for this run", zap.String("provider", name),
		zap.String("saved", s.settings.Active))
	return nil
}

// SetKey stores the API key for a provider. An empty key clears it.
func (s *ProviderService) SetKey(ctx context.Context, name, key string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if !ai.IsRegistered(name) {
		return fmt.Errorf("unknown provider %q: %w", name, appErr.ErrInvalid)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make(map[string]string, len(s.settings.Keys)+1)
	for k, v := range s.settings.Keys {
		keys[k] = v
	}
	if key = strings.TrimSpace(key); key == "" {
		delete(keys, name)
	} else {
		keys[name] = key
	}
	return s.applyLocked(ctx, model.ProviderSettings{Active: s.settings.Active, Keys: keys})
}

func (s *ProviderService) applyLocked(ctx context.Context, next model.ProviderSettings) error {
	prev := s.settings
	s.settings = next
	current, err := s.build(next.Active, s.cfg.Mode)
	if err != nil {
		s.settings = prev
		return err
	}
	if s.store != nil {
		if err := s.store.SaveSettings(ctx, next); err != nil {
			s.settings = prev
			return fmt.Errorf("save provider settings: %w", err)
		}
	}
	s.current = current
	s.cache.Purge()
	logutil.GetLogger(ctx).Info("provider settings updated", zap.String("active", next.Active))
	return nil
}

// Direct builds a provider that talks to the upstream API itself, whatever the
// configured mode. The proxy server uses it.
func (s *ProviderService) Direct(name string) (ai.IProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.build(name, ai.ModeLocal)
}

// Status probes every known provider.
func (s *ProviderService) Status(ctx context.Context) []ProviderStatus {
	settings := s.Settings()
	out := make([]ProviderStatus, 0, len(KnownProviders))
	for _, name := range KnownProviders {
		st := ProviderStatus{
			Name:   name,
			Active: name == settings.Active,
			HasKey: name == "ollama" || s.key(name) != "",
		}
		s.mu.RLock()
		p, err := s.build(name, s.cfg.Mode)
		s.mu.RUnlock()
		if err == nil {
			st.Model = p.DefaultModel()
			st.Available = s.cache.Check(ctx, p)
		}
		out = append(out, st)
	}
	return out
}

func (s *ProviderService) key(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.keyLocked(name)
}

func (s *ProviderService) keyLocked(name string) string {
	if k := s.settings.Key(name); k != "" {
		return k
	}
	if hc, ok := s.hostedConfig(name); ok {
		return hc.APIKey
	}
	return ""
}

func (s *ProviderService) hostedConfig(name string) (config.HostedConfig, bool) {
	switch name {
	case "gemini":
		return s.cfg.Gemini, true
	case "groq":
		return s.cfg.Groq, true
	case "openrouter":
		return s.cfg.OpenRouter, true
	}
	return config.HostedConfig{}, false
}

func (s *ProviderService) build(name, mode string) (ai.IProvider, error) {
	args := ai.ProviderArgs{
		Mode:         mode,
		ProxyBaseURL: s.cfg.ProxyBaseURL,
		Client:       s.client,
	}
	if name == "ollama" {
		args.BaseURL = s.cfg.Ollama.BaseURL
		args.Model = s.cfg.Ollama.Model
		args.NumCtx = s.cfg.Ollama.NumCtx
	} else if hc, ok := s.hostedConfig(name); ok {
		args.BaseURL = hc.BaseURL
		args.APIVersion = hc.APIVersion
		args.Model = hc.Model
		args.APIKey = s.keyLocked(name)
	}
	p, err := ai.NewProvider(name, args)
	if err != nil {
		return nil, fmt.Errorf("build provider %s: %w", name, err)
	}
	return p, nil
}
