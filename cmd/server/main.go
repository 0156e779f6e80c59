package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livecast/internal/core/domain"
	"livecast/internal/core/services"
	httphandlers "livecast/internal/handlers/http"
	"livecast/internal/infrastructure/capture"
	"livecast/internal/infrastructure/middleware"
	"livecast/internal/infrastructure/monitoring"
	"livecast/internal/infrastructure/ws"
	"livecast/pkg/config"
	"livecast/pkg/logger"
	"livecast/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Try multiple config paths
	configPaths := []string{
		"configs/config.yaml",
		"./configs/config.yaml",
		"/etc/livecast/config.yaml",
		"config.yaml",
	}

	var cfg *config.Config
	var err error

	for _, path := range configPaths {
		cfg, err = config.Load(path)
		if err == nil {
			break
		}
	}

	if err != nil {
		// Fallback to defaults if config cannot be loaded
		cfg = config.DefaultConfig()
	}

	// Initialize logger
	newLogger := logger.New
	if cfg.Logging.Format == "console" {
		newLogger = logger.NewConsole
	}
	zapLogger := newLogger(cfg.Logging.Level)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	// Initialize tracing
	tracerProvider, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		log.Fatalw("failed to initialize tracing", "error", err)
	}

	// Initialize monitoring
	collector := monitoring.NewCollector()

	// Initialize services
	authService := services.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	registry := services.NewRegistry(services.ChatConfig{
		HistoryCapacity: cfg.Chat.HistoryCapacity,
		MaxRooms:        cfg.Chat.MaxRooms,
		SendTimeout:     cfg.Chat.SendTimeout,
	}, collector, log)

	profiles := make(map[string]domain.QualityProfile, len(cfg.Stream.Qualities))
	for name, q := range cfg.Stream.Qualities {
		profiles[name] = domain.QualityProfile{
			Name:          name,
			Width:         q.Width,
			Height:        q.Height,
			TargetFPS:     q.TargetFPS,
			EncodeQuality: q.EncodeQuality,
		}
	}

	streamCfg := services.StreamConfig{
		MaxStreams:  cfg.Stream.MaxStreams,
		StopGrace:   cfg.Stream.StopGrace,
		SendTimeout: cfg.Stream.SendTimeout,
		Profiles:    profiles,
	}
	streamCfg.OpenRetry.Enabled = true
	streamCfg.OpenRetry.MaxAttempts = cfg.Stream.OpenRetryAttempts
	streamCfg.OpenRetry.InitialDelay = 100 * time.Millisecond
	streamCfg.OpenRetry.MaxDelay = time.Second
	streamCfg.OpenRetry.Multiplier = 2.0
	streamCfg.OpenRetry.Jitter = true

	manager := services.NewManager(
		capture.NewSyntheticDriver(cfg.Stream.DeviceCount),
		capture.NewBase64Encoder(),
		streamCfg,
		collector,
		log,
	)

	// Initialize WebSocket servers
	gatewayCfg := ws.GatewayConfig{
		PingInterval:      cfg.Gateway.PingInterval,
		PongTimeout:       cfg.Gateway.PongTimeout,
		ReadTimeout:       cfg.Gateway.ReadTimeout,
		WriteTimeout:      cfg.Gateway.WriteTimeout,
		MaxMessageSize:    cfg.Gateway.MaxMessageSizeBytes,
		MessagesPerSecond: cfg.Gateway.MessagesPerSecond,
		MessageBurst:      cfg.Gateway.Burst,
	}
	chatServer := ws.NewChatServer(registry, authService, gatewayCfg, log)
	viewerServer := ws.NewViewerServer(manager, authService, gatewayCfg, log)

	// Initialize HTTP handlers
	qualities := make(map[string]struct{}, len(profiles))
	for name := range profiles {
		qualities[name] = struct{}{}
	}
	authHandler := httphandlers.NewAuthHandler(authService, cfg.Auth.TokenTTL)
	streamHandler := httphandlers.NewStreamHandler(manager, qualities)
	roomHandler := httphandlers.NewRoomHandler(registry)

	// Configure Gin
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.ErrorHandlerMiddleware(log))
	router.Use(middleware.NewHTTPRateLimitMiddleware(cfg))
	if cfg.Tracing.Enabled {
		router.Use(middleware.TracingMiddleware())
	}

	// Setup auth routes (public)
	authHandler.SetupRoutes(router)

	// Room listing is public; a token, when presented, lets the response
	// name the caller's current room.
	public := router.Group("/api/v1")
	public.Use(middleware.OptionalAuthMiddleware(authService))
	roomHandler.SetupRoutes(public)

	// Setup stream routes with authentication
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(authService))
	streamHandler.SetupRoutes(api)

	// WebSocket endpoints; tokens travel in the query string, so these
	// authenticate inside the handler rather than via middleware.
	router.GET("/ws/chat", func(c *gin.Context) {
		chatServer.HandleChat(c.Writer, c.Request)
	})
	router.GET("/ws/streams/:id", func(c *gin.Context) {
		viewerServer.HandleViewer(domain.StreamID(c.Param("id")), c.Writer, c.Request)
	})

	// Health check endpoint
	healthChecker := monitoring.NewHealthChecker()
	healthChecker.AddCheck("chat_registry", func(ctx context.Context) (bool, error) {
		registry.List()
		return true, nil
	}, 2*time.Second)
	healthChecker.AddCheck("stream_manager", func(ctx context.Context) (bool, error) {
		manager.List()
		return true, nil
	}, 2*time.Second)

	router.GET("/health", func(c *gin.Context) {
		status := healthChecker.CheckAll(c.Request.Context())
		code := 200
		if status.Status != "healthy" {
			code = 503
		}
		c.JSON(code, gin.H{
			"status":    status.Status,
			"timestamp": status.Timestamp,
			"checks":    status.Checks,
			"uptime":    time.Since(startTime).String(),
		})
	})

	// Prometheus metrics endpoint
	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
		log.Info("Prometheus metrics enabled")
	}

	// Create HTTP server with timeouts
	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Starting livecast server on %s", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for shutdown signals or server error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatalw("Server failed", "error", err)
	case sig := <-sigChan:
		log.Infow("Received shutdown signal", "signal", sig)
	}

	log.Info("Shutting down livecast server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Shutdown HTTP server gracefully
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error during server shutdown", "error", err)
		if closeErr := srv.Close(); closeErr != nil {
			log.Errorw("Error force closing server", "error", closeErr)
		}
	} else {
		log.Info("Server shutdown gracefully")
	}

	// Stop active capture sessions
	manager.Shutdown(shutdownCtx)

	// Flush tracing
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Error shutting down tracer provider", "error", err)
	}

	log.Info("livecast server stopped")
}
