package server

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/computeuse/backend/internal/api/http"
	"github.com/computeuse/backend/internal/api/middleware"
	"github.com/computeuse/backend/internal/api/ws"
	"github.com/computeuse/backend/internal/infrastructure/config"
	"github.com/computeuse/backend/internal/infrastructure/logging"
	"github.com/computeuse/backend/internal/infrastructure/monitoring"
	"github.com/computeuse/backend/internal/infrastructure/tracing"
	"github.com/computeuse/backend/internal/llm"
	"github.com/computeuse/backend/internal/loop"
	"github.com/computeuse/backend/internal/pipeline"
	"github.com/computeuse/backend/internal/providers/bash"
	"github.com/computeuse/backend/internal/providers/terminal"
	"github.com/computeuse/backend/internal/service"
	"github.com/computeuse/backend/internal/tools"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router    *gin.Engine
	registry  *service.Registry
	shell     *bash.Provider
	terminals *terminal.Provider
	model     *llm.Client
	logger    *logging.Logger
	config    *config.Config
	metrics   *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize logger
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		logger = logging.NewDefault()
	}

	logger.Info("Initializing compute server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.String("model", cfg.Anthropic.Model),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	// Shell session provider, the agent's only tool
	shell := bash.NewProvider(bash.Config{
		Shell:          cfg.Session.Shell,
		CommandTimeout: cfg.Session.CommandTimeout,
		PollInterval:   cfg.Session.PollInterval,
	}, logger, metrics)

	// PTY sessions for interactive programs
	terminals := terminal.NewProvider(terminal.Config{
		Shell:       cfg.Terminal.Shell,
		MaxSessions: cfg.Terminal.MaxSessions,
		BufferSize:  cfg.Terminal.BufferSize,
	}, logger, metrics)

	// Register service providers
	registry := service.NewRegistry()
	registerProviders(registry, logger, shell, terminals)

	// Model client; requests fail until a key is configured
	model := llm.NewClient(llm.Config{
		APIKey:            cfg.Anthropic.APIKey,
		BaseURL:           cfg.Anthropic.BaseURL,
		MaxRetries:        cfg.Anthropic.MaxRetries,
		RequestsPerSecond: cfg.Anthropic.RequestsPerSecond,
		PromptCaching:     cfg.Anthropic.PromptCaching,
	}, logger, metrics)
	if cfg.Anthropic.APIKey == "" {
		logger.Warn("ANTHROPIC_API_KEY is not set; chat endpoints will fail")
	}

	// Agent loop over the shell tool
	agentLoop := loop.New(loop.Config{
		Model:         cfg.Anthropic.Model,
		MaxTokens:     cfg.Anthropic.MaxTokens,
		MaxOperations: cfg.Loop.MaxOperations,
		PromptCaching: cfg.Anthropic.PromptCaching,
	}, model, tools.NewCollection(shell), logger, metrics)

	pipe := pipeline.New(agentLoop, logger)

	tracer := tracing.New("backend", logger.Logger)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	// Create handlers
	handlers := http.NewHandlers(registry, pipe, shell, terminals.Manager(), model, metrics, cfg.Loop.TaskTimeout)
	wsHandler := ws.NewHandler(agentLoop, logger, metrics, cfg.Loop.TaskTimeout)

	// Register routes
	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Service management
	router.GET("/services", handlers.ListServices)
	router.POST("/services/discover", handlers.DiscoverServices)
	router.POST("/services/execute", handlers.ExecuteService)

	// Chat operations
	router.GET("/models", handlers.ListModels)
	router.POST("/chat", handlers.Chat)

	// WebSocket
	router.GET("/stream", wsHandler.HandleConnection)

	// Metrics endpoints
	metricsAggregator := http.NewMetricsAggregator(metrics, registry, model, terminals.Manager())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/metrics/json", metricsAggregator.GetAggregatedMetrics)

	logger.Info("Server initialized successfully")

	return &Server{
		router:    router,
		registry:  registry,
		shell:     shell,
		terminals: terminals,
		model:     model,
		logger:    logger,
		config:    cfg,
		metrics:   metrics,
	}, nil
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router exposes the gin engine, mainly for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	s.terminals.Close()
	if err := s.shell.Close(); err != nil {
		s.logger.Error("Failed to close shell session", zap.Error(err))
		return fmt.Errorf("failed to close shell session: %w", err)
	}

	// Sync logger before exit
	s.logger.Sync()

	return nil
}

func registerProviders(registry *service.Registry, logger *logging.Logger, providers ...service.Provider) {
	for _, p := range providers {
		if err := registry.Register(p); err != nil {
			logger.Warn("Failed to register provider", zap.Error(err))
			continue
		}
		logger.Info("Registered service provider", zap.String("service", p.Definition().ID))
	}
}
