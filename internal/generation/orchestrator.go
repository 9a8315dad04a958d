package generation

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/studygen/internal/ai"
	"github.com/xxxsen/studygen/internal/model"
)

const (
	stageSkipped     = "skipped"
	stageUnavailable = "unavailable"
	stageFailed      = "failed"
	stageEmpty       = "empty"
	stageGenerated   = "generated"
)

// ProviderSource hands out the provider that should serve the next chunk.
type ProviderSource interface {
	Current() ai.IProvider
	Available(ctx context.Context) bool
}

type Config struct {
	MinChunkChars      int
	Timeout            time.Duration
	Temperature        float64
	MaxTokens          int
	CustomInstructions string
}

type Orchestrator struct {
	source   ProviderSource
	fallback *FallbackGenerator
	cfg      Config
}

func NewOrchestrator(source ProviderSource, fallback *FallbackGenerator, cfg Config) *Orchestrator {
	if fallback == nil {
		fallback = NewFallbackGenerator(nil)
	}
	if cfg.MinChunkChars <= 0 {
		cfg.MinChunkChars = 50
	}
	return &Orchestrator{source: source, fallback: fallback, cfg: cfg}
}

// ProcessChunk turns one chunk into study items. It never fails: any problem
// with the model path degrades to the heuristic generator. Text shorter than
// the minimum yields an empty result.
func (o *Orchestrator) ProcessChunk(ctx context.Context, text string, chunkIndex, totalChunks int, onProgress func(text string)) (result model.ChunkResult) {
	logger := logutil.GetLogger(ctx).With(zap.Int("chunk", chunkIndex), zap.Int("total", totalChunks))
	if len(strings.TrimSpace(text)) < o.cfg.MinChunkChars {
		logger.Debug("chunk too short, skip", zap.String("stage", stageSkipped))
		return model.EmptyChunkResult()
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error("chunk generation panic, use fallback", zap.String("stage", stageFailed), zap.Any("panic", r))
			result = o.fallback.Generate(text)
		}
	}()

	if o.source == nil || !o.source.Available(ctx) {
		logger.Info("provider unavailable, use fallback", zap.String("stage", stageUnavailable))
		return o.fallback.Generate(text)
	}
	provider := o.source.Current()
	if provider == nil {
		logger.Info("no provider selected, use fallback", zap.String("stage", stageUnavailable))
		return o.fallback.Generate(text)
	}
	raw, err := o.generate(ctx, provider, text, chunkIndex, totalChunks, onProgress)
	if err != nil {
		logger.Error("chunk generation failed, use fallback", zap.String("stage", stageFailed),
			zap.String("provider", provider.Name()), zap.Error(err))
		return o.fallback.Generate(text)
	}
	parsed := Parse(raw)
	if parsed.Total() == 0 {
		logger.Warn("model returned no usable items, use fallback", zap.String("stage", stageEmpty),
			zap.String("provider", provider.Name()), zap.Int("raw_len", len(raw)))
		return o.fallback.Generate(text)
	}
	logger.Info("chunk generated", zap.String("stage", stageGenerated), zap.String("provider", provider.Name()),
		zap.Int("flashcards", len(parsed.Flashcards)), zap.Int("mcqs", len(parsed.MCQs)),
		zap.Int("fill_blanks", len(parsed.FillBlanks)), zap.Int("short_answers", len(parsed.ShortAnswers)))
	return parsed
}

func (o *Orchestrator) generate(ctx context.Context, provider ai.IProvider, text string, chunkIndex, totalChunks int, onProgress func(string)) (string, error) {
	if o.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()
	}
	variant := promptFor(provider.Name())
	req := &ai.GenerateRequest{
		System:      variant.system,
		Prompt:      variant.build(text, chunkIndex, totalChunks, o.cfg.CustomInstructions),
		Model:       provider.DefaultModel(),
		Temperature: o.cfg.Temperature,
		MaxTokens:   o.cfg.MaxTokens,
	}
	return ai.Generate(ctx, provider, req, onProgress)
}
