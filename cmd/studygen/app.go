package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/studygen/internal/chunker"
	"github.com/xxxsen/studygen/internal/config"
	"github.com/xxxsen/studygen/internal/db"
	"github.com/xxxsen/studygen/internal/generation"
	"github.com/xxxsen/studygen/internal/repo"
	"github.com/xxxsen/studygen/internal/service"
	"github.com/xxxsen/studygen/internal/store"
)

type app struct {
	cfg       *config.Config
	conn      *sqlx.DB
	store     *store.Store
	providers *service.ProviderService
	banks     *service.BankService
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Debug("config loaded", zap.String("config", path))
	return cfg, nil
}

func newApp(ctx context.Context, cfg *config.Config, instructions string) (*app, error) {
	conn, err := db.OpenAndMigrate(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	st := store.New(repo.NewBankRepo(conn), repo.NewSettingsRepo(conn), store.NewMirror(cfg.MirrorPath, cfg.MirrorMaxBytes))

	client := &http.Client{Timeout: time.Duration(cfg.Generation.Timeout) * time.Second}
	providers, err := service.NewProviderService(ctx, cfg.Providers, st, client)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("init providers: %w", err)
	}

	if instructions == "" {
		instructions = cfg.Generation.CustomInstructions
	}
	seed := uint64(time.Now().UnixNano())
	orchestrator := generation.NewOrchestrator(providers,
		generation.NewFallbackGenerator(rand.New(rand.NewPCG(seed, seed>>1))),
		generation.Config{
			MinChunkChars:      cfg.Generation.MinChunkChars,
			Timeout:            time.Duration(cfg.Generation.Timeout) * time.Second,
			Temperature:        cfg.Generation.Temperature,
			MaxTokens:          cfg.Generation.MaxTokens,
			CustomInstructions: instructions,
		})
	banks := service.NewBankService(st, orchestrator, service.BankServiceConfig{
		Chunk:        chunker.Options{ChunkSize: cfg.Chunk.Size, OverlapSize: cfg.Chunk.Overlap},
		ChunkDelay:   time.Duration(cfg.Generation.ChunkDelayMs) * time.Millisecond,
		SaveDebounce: time.Duration(cfg.SaveDebounceMs) * time.Millisecond,
		KeepRawText:  true,
	})
	if err := banks.Load(ctx); err != nil {
		logutil.GetLogger(ctx).Error("load banks failed, start empty", zap.Error(err))
	}
	return &app{cfg: cfg, conn: conn, store: st, providers: providers, banks: banks}, nil
}

func (a *app) Close() {
	a.banks.Close()
	_ = a.conn.Close()
}
