package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/studygen/internal/ai"
)

type ProviderDirectory interface {
	Direct(name string) (ai.IProvider, error)
}

type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// ProxyHandler serves hosted providers on behalf of deployed clients so API
// keys stay on the server.
type ProxyHandler struct {
	providers ProviderDirectory
	opts      GenerateOptions
}

func NewProxyHandler(providers ProviderDirectory, opts GenerateOptions) *ProxyHandler {
	return &ProxyHandler{providers: providers, opts: opts}
}

func (h *ProxyHandler) provider(c *gin.Context) (ai.IProvider, bool) {
	name := strings.ToLower(c.Param("provider"))
	if name == "ollama" || !ai.IsRegistered(name) {
		c.JSON(http.StatusNotFound, ai.ProxyGenerateResponse{Error: "unknown provider: " + name, Code: http.StatusNotFound})
		return nil, false
	}
	p, err := h.providers.Direct(name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ai.ProxyGenerateResponse{Error: err.Error(), Code: http.StatusInternalServerError})
		return nil, false
	}
	return p, true
}

func (h *ProxyHandler) Generate(c *gin.Context) {
	var req ai.ProxyGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Prompt) == "" {
		c.JSON(http.StatusBadRequest, ai.ProxyGenerateResponse{Error: "prompt is required", Code: http.StatusBadRequest})
		return
	}
	p, ok := h.provider(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if h.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.Timeout)
		defer cancel()
	}
	text, err := ai.Generate(ctx, p, &ai.GenerateRequest{
		Prompt:      req.Prompt,
		Model:       req.Model,
		Temperature: h.opts.Temperature,
		MaxTokens:   h.opts.MaxTokens,
	}, nil)
	if err != nil {
		status := upstreamStatus(err)
		logutil.GetLogger(ctx).Error("proxy generate failed", zap.String("provider", p.Name()), zap.Int("status", status), zap.Error(err))
		c.JSON(status, ai.ProxyGenerateResponse{Error: err.Error(), Code: status})
		return
	}
	c.JSON(http.StatusOK, ai.ProxyGenerateResponse{Text: text})
}

func (h *ProxyHandler) Status(c *gin.Context) {
	p, ok := h.provider(c)
	if !ok {
		return
	}
	if !p.CheckAvailability(c.Request.Context()) {
		c.JSON(http.StatusOK, ai.ProxyStatusResponse{Available: false, Reason: p.Name() + " is not configured or not reachable"})
		return
	}
	c.JSON(http.StatusOK, ai.ProxyStatusResponse{Available: true})
}

func upstreamStatus(err error) int {
	if errors.Is(err, ai.ErrUnavailable) {
		return http.StatusServiceUnavailable
	}
	var perr *ai.ProviderError
	if errors.As(err, &perr) && perr.Status >= 400 && perr.Status < 600 {
		return perr.Status
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}
