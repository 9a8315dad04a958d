package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xxxsen/common/logger"
)

const (
	ModeLocal    = "local"
	ModeDeployed = "deployed"
)

type Config struct {
	DBPath           string           `json:"db_path"`
	MirrorPath       string           `json:"mirror_path"`
	MirrorMaxBytes   int64            `json:"mirror_max_bytes"`
	SaveDebounceMs   int              `json:"save_debounce_ms"`
	MirrorResyncCron string           `json:"mirror_resync_cron"`
	LogConfig        logger.LogConfig `json:"log_config"`
	Chunk            ChunkConfig      `json:"chunk"`
	Generation       GenerationConfig `json:"generation"`
	Providers        ProvidersConfig  `json:"providers"`
	Server           ServerConfig     `json:"server"`
}

type ChunkConfig struct {
	Size    int `json:"size"`
	Overlap int `json:"overlap"`
}

type GenerationConfig struct {
	MinChunkChars      int     `json:"min_chunk_chars"`
	ChunkDelayMs       int     `json:"chunk_delay_ms"`
	Timeout            int     `json:"timeout"`
	CustomInstructions string  `json:"custom_instructions"`
	Temperature        float64 `json:"temperature"`
	MaxTokens          int     `json:"max_tokens"`
}

type ProvidersConfig struct {
	Mode         string       `json:"mode"`
	Active       string       `json:"active"`
	ProxyBaseURL string       `json:"proxy_base_url"`
	Ollama       OllamaConfig `json:"ollama"`
	Gemini       HostedConfig `json:"gemini"`
	Groq         HostedConfig `json:"groq"`
	OpenRouter   HostedConfig `json:"openrouter"`
	ProbeTTLSec  int          `json:"probe_ttl_sec"`
}

type OllamaConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	NumCtx  int    `json:"num_ctx"`
}

type HostedConfig struct {
	BaseURL    string `json:"base_url"`
	APIVersion string `json:"api_version,omitempty"`
	Model      string `json:"model"`
	APIKey     string `json:"api_key"`
}

type ServerConfig struct {
	Port        int      `json:"port"`
	StaticDir   string   `json:"static_dir"`
	CORSOrigins []string `json:"cors_origins"`
	RateLimitMs int      `json:"rate_limit_ms"`
}

// Load reads the config file at path. A missing file yields the defaults so the
// CLI works without any setup.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		file, err := os.Open(path)
		switch {
		case err == nil:
			defer file.Close()
			if err := json.NewDecoder(file).Decode(cfg); err != nil {
				return nil, fmt.Errorf("decode config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("open config: %w", err)
		}
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.DBPath == "" {
		cfg.DBPath = "studygen.db"
	}
	if cfg.MirrorPath == "" {
		cfg.MirrorPath = "studygen.mirror.json"
	}
	if cfg.MirrorMaxBytes == 0 {
		cfg.MirrorMaxBytes = 5 * 1024 * 1024
	}
	if cfg.SaveDebounceMs == 0 {
		cfg.SaveDebounceMs = 1000
	}
	if cfg.MirrorResyncCron == "" {
		cfg.MirrorResyncCron = "*/10 * * * *"
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Chunk.Size == 0 {
		cfg.Chunk.Size = 800
	}
	if cfg.Chunk.Overlap == 0 {
		cfg.Chunk.Overlap = 100
	}
	if cfg.Generation.MinChunkChars == 0 {
		cfg.Generation.MinChunkChars = 50
	}
	if cfg.Generation.ChunkDelayMs == 0 {
		cfg.Generation.ChunkDelayMs = 500
	}
	if cfg.Generation.Timeout == 0 {
		cfg.Generation.Timeout = 180
	}
	if cfg.Generation.Temperature == 0 {
		cfg.Generation.Temperature = 0.7
	}
	if cfg.Generation.MaxTokens == 0 {
		cfg.Generation.MaxTokens = 4096
	}
	if cfg.Providers.Mode == "" {
		cfg.Providers.Mode = ModeLocal
	}
	if cfg.Providers.Active == "" {
		cfg.Providers.Active = "ollama"
	}
	if cfg.Providers.ProbeTTLSec == 0 {
		cfg.Providers.ProbeTTLSec = 30
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3001
	}
	if cfg.Server.RateLimitMs == 0 {
		cfg.Server.RateLimitMs = 1000
	}
}

func validate(cfg *Config) error {
	switch strings.ToLower(cfg.Providers.Mode) {
	case ModeLocal, ModeDeployed:
		cfg.Providers.Mode = strings.ToLower(cfg.Providers.Mode)
	default:
		return fmt.Errorf("providers.mode must be local or deployed")
	}
	if cfg.Chunk.Size < 1 {
		return fmt.Errorf("chunk.size must be positive")
	}
	if cfg.Chunk.Overlap < 0 || cfg.Chunk.Overlap >= cfg.Chunk.Size {
		return fmt.Errorf("chunk.overlap must be in [0, chunk.size)")
	}
	if cfg.Providers.Mode == ModeDeployed && cfg.Providers.ProxyBaseURL == "" {
		return fmt.Errorf("providers.proxy_base_url is required in deployed mode")
	}
	return nil
}
