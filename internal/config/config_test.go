package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	require.NoError(t, err)
	require.Equal(t, 800, cfg.Chunk.Size)
	require.Equal(t, 100, cfg.Chunk.Overlap)
	require.Equal(t, 50, cfg.Generation.MinChunkChars)
	require.Equal(t, ModeLocal, cfg.Providers.Mode)
	require.Equal(t, "ollama", cfg.Providers.Active)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, int64(5*1024*1024), cfg.MirrorMaxBytes)
	require.Equal(t, 3001, cfg.Server.Port)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `{
		"db_path": "/var/lib/studygen/banks.db",
		"chunk": {"size": 400, "overlap": 50},
		"providers": {"mode": "Deployed", "active": "groq", "proxy_base_url": "https://study.example.com",
			"groq": {"model": "llama-3.1-8b-instant"}},
		"generation": {"custom_instructions": "Use simple words."}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "/var/lib/studygen/banks.db", cfg.DBPath)
	require.Equal(t, 400, cfg.Chunk.Size)
	require.Equal(t, 50, cfg.Chunk.Overlap)
	require.Equal(t, ModeDeployed, cfg.Providers.Mode)
	require.Equal(t, "llama-3.1-8b-instant", cfg.Providers.Groq.Model)
	require.Equal(t, "Use simple words.", cfg.Generation.CustomInstructions)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "bad json", body: `{`},
		{name: "bad mode", body: `{"providers": {"mode": "cloud"}}`},
		{name: "overlap too large", body: `{"chunk": {"size": 100, "overlap": 100}}`},
		{name: "negative size", body: `{"chunk": {"size": -5}}`},
		{name: "deployed without proxy", body: `{"providers": {"mode": "deployed"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}
