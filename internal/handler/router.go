package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/studygen/internal/middleware"
)

type RouterDeps struct {
	Proxy       *ProxyHandler
	Banks       *BankHandler
	Mode        string
	StaticDir   string
	CORSOrigins []string
	RateLimit   time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", health(deps.Mode))
	api.GET("/status/:provider", deps.Proxy.Status)
	api.POST("/:provider/generate", middleware.RateLimit(deps.RateLimit), deps.Proxy.Generate)

	if deps.Banks != nil {
		api.GET("/banks", deps.Banks.List)
		api.GET("/banks/:id", deps.Banks.Get)
		api.DELETE("/banks/:id", deps.Banks.Delete)
		api.GET("/processing", deps.Banks.Processing)
	}
}

func NewRouter(deps RouterDeps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.CORS(deps.CORSOrigins), gzip.Gzip(gzip.DefaultCompression))
	RegisterRoutes(engine.Group("/api"), deps)
	engine.NoRoute(spaFallback(deps.StaticDir))
	return engine
}

func health(mode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"mode":   mode,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// spaFallback serves files from dir and answers every other non-API path with
// index.html so client-side routes survive a reload.
func spaFallback(dir string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || dir == "" || c.Request.Method != http.MethodGet {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		clean := filepath.Clean("/" + path)
		candidate := filepath.Join(dir, filepath.FromSlash(clean))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			c.File(candidate)
			return
		}
		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.File(index)
	}
}
