package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	defaultContentAPIBaseURL = "https://jsonplaceholder.typicode.com"
	defaultContentTimeout    = 10 * time.Second
	defaultImageMaxDimension = 2048
	defaultImageQuality      = 85
	requestIDHeader          = "X-Request-ID"
	trustedProxyLoopbackIPv4 = "127.0.0.1"
	trustedProxyLoopbackIPv6 = "::1"
)

type Config struct {
	Addr              string
	Env               string
	PublicBaseURL     string
	ContentAPIBaseURL string
	ContentTimeout    time.Duration
	ImageMaxDimension int
}

type App struct {
	cfg       *Config
	log       *slog.Logger
	content   ContentService
	templates *siteTemplateRenderer
	metrics   *Metrics

	staticMu    sync.RWMutex
	staticPages map[string][]byte

	imageMu    sync.Mutex
	imageCache map[string]imageVariant
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: load .env: %v\n", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	httpClient := &http.Client{Timeout: cfg.ContentTimeout}

	app := &App{
		cfg: cfg,
		log: logger,
		content: &httpContentService{
			BaseURL: cfg.ContentAPIBaseURL,
			Client:  httpClient,
		},
		templates:   newSiteTemplateRenderer(cfg.Env),
		metrics:     NewMetrics(),
		staticPages: make(map[string][]byte),
		imageCache:  make(map[string]imageVariant),
	}

	logger.Info(
		"runtime configuration",
		"env", cfg.Env,
		"addr", cfg.Addr,
		"content_api_base_url", cfg.ContentAPIBaseURL,
	)

	// Static pages are rendered once, before the first request.
	if err := app.prerenderStaticPages(); err != nil {
		panic(err)
	}

	r := gin.New()
	if err := r.SetTrustedProxies([]string{trustedProxyLoopbackIPv4, trustedProxyLoopbackIPv6}); err != nil {
		panic(err)
	}
	r.Use(gin.Recovery())
	r.Use(app.requestIDMiddleware())
	r.Use(app.loggingMiddleware())
	r.Use(app.metrics.Middleware())

	app.registerRoutes(r)

	app.log.Info("starting gin server", "addr", cfg.Addr)
	if err := r.Run(cfg.Addr); err != nil {
		panic(err)
	}
}

func (a *App) registerRoutes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(a.metrics.Handler()))

	r.GET("/", a.staticPageHandler("home"))
	r.GET("/about", a.staticPageHandler("about"))
	r.GET("/posts/:id", a.postPageHandler)
	r.GET("/images/:name", a.imageHandler)

	api := r.Group("/api/v1")
	{
		api.GET("/hello", a.helloHandler)
	}
}

func loadConfig() (*Config, error) {
	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "development"
	}

	publicBase := strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL"))
	if publicBase == "" {
		publicBase = "http://localhost:8080"
	}
	publicBase = strings.TrimRight(publicBase, "/")

	contentBase := strings.TrimSpace(os.Getenv("CONTENT_API_BASE_URL"))
	if contentBase == "" {
		contentBase = defaultContentAPIBaseURL
	}
	contentBase = strings.TrimRight(contentBase, "/")
	if !strings.HasPrefix(contentBase, "http://") && !strings.HasPrefix(contentBase, "https://") {
		return nil, fmt.Errorf("CONTENT_API_BASE_URL must be an http(s) URL")
	}

	cfg := &Config{
		Addr:              valueOrDefault("ADDR", ":8080"),
		Env:               env,
		PublicBaseURL:     publicBase,
		ContentAPIBaseURL: contentBase,
		ContentTimeout:    defaultContentTimeout,
		ImageMaxDimension: defaultImageMaxDimension,
	}

	if raw := strings.TrimSpace(os.Getenv("CONTENT_TIMEOUT_S")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("CONTENT_TIMEOUT_S must be a positive integer")
		}
		cfg.ContentTimeout = time.Duration(parsed) * time.Second
	}

	if raw := strings.TrimSpace(os.Getenv("IMAGE_MAX_DIMENSION")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("IMAGE_MAX_DIMENSION must be a positive integer")
		}
		cfg.ImageMaxDimension = parsed
	}

	return cfg, nil
}

func valueOrDefault(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func (a *App) requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("requestID", requestID)
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

func (a *App) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		a.log.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.ClientIP(),
			"request_id", c.GetString("requestID"),
		)
	}
}
