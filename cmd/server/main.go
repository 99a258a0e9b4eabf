// UPBEAT learning assistant API server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/upbeat-labs/learning-assistant/internal/agent"
	"github.com/upbeat-labs/learning-assistant/internal/api"
	"github.com/upbeat-labs/learning-assistant/internal/catalog"
	"github.com/upbeat-labs/learning-assistant/internal/config"
	"github.com/upbeat-labs/learning-assistant/internal/llm"
	"github.com/upbeat-labs/learning-assistant/internal/middleware"
	"github.com/upbeat-labs/learning-assistant/internal/observability"
	"github.com/upbeat-labs/learning-assistant/internal/search"
	"github.com/upbeat-labs/learning-assistant/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.Init(ctx, observability.Config{
		Enabled:      cfg.Telemetry.Enabled,
		ServiceName:  cfg.Telemetry.ServiceName,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		Insecure:     cfg.Telemetry.Insecure,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("Failed to flush traces", "error", err)
		}
	}()

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.BundleDBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}

	registry, err := store.LoadRegistry(ctx, repo)
	if err != nil {
		slog.Error("Failed to load plan bundles", "error", err)
		os.Exit(1)
	}
	slog.Info("Plan bundles loaded", "users", registry.Len())

	checkpoints, closeCheckpoints, err := openCheckpointer(cfg, repo)
	if err != nil {
		slog.Error("Failed to initialize conversation memory", "error", err)
		os.Exit(1)
	}
	defer closeCheckpoints()

	materials, err := catalog.LoadMaterials(cfg.CuratedMaterialsPath)
	if err != nil {
		slog.Warn("Additional materials unavailable, the materials tool will be empty", "error", err)
	}

	var searcher search.Searcher
	if cfg.LLM.TavilyKey != "" {
		searcher = search.NewTavily(cfg.LLM.TavilyKey)
	} else {
		slog.Info("Web search disabled (TAVILY_API_KEY not set)")
	}

	states := store.NewFileStateStore(cfg.UserDataDir)
	apiHandler := api.NewHandler(registry, states, cfg.Schedule(), logger)
	slog.Info("Current phase", "phase", int(apiHandler.CurrentPhase()), "debug", cfg.Phase.Debug)

	factory := llm.NewProviderFactory(llm.Credentials{
		OpenAIKey:    cfg.LLM.OpenAIKey,
		AnthropicKey: cfg.LLM.AnthropicKey,
	})
	manager := agent.NewManager(agent.ManagerConfig{
		Bundles:      registry,
		Settings:     states,
		Checkpoints:  checkpoints,
		NewModel:     agent.NewModelBuilder(factory, cfg.LLM.ChatModel),
		Searcher:     searcher,
		Catalog:      materials,
		Phase:        apiHandler.CurrentPhase,
		MaxToolSteps: cfg.Chat.MaxToolSteps,
		Logger:       logger,
	})

	conversationLogger, err := agent.NewConversationLogger(agent.ConversationLogConfig{
		Enabled:   cfg.ConversationLog.Enabled,
		Dir:       cfg.ConversationLog.Dir,
		QueueSize: cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		slog.Error("Failed to initialize conversation logger", "error", err)
		os.Exit(1)
	}
	agentHandler := agent.NewHandler(manager, agent.HandlerConfig{
		RateLimit:          cfg.Chat.RateLimit,
		MaxRequestBodySize: cfg.Chat.MaxRequestBodySize,
		ConversationLog:    conversationLogger,
		Logger:             logger,
	})
	defer agentHandler.Close()

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	apiHandler.RegisterRoutes(r)
	agentHandler.RegisterRoutes(r)

	// SSE responses stream for the length of a model turn, so there is no
	// WriteTimeout.
	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped successfully")
}

// openCheckpointer returns the conversation memory selected by
// CHECKPOINT_BACKEND. The sqlite backend reuses the bundle database when
// both paths match.
func openCheckpointer(cfg *config.Config, bundles *store.SQLiteStore) (agent.Checkpointer, func(), error) {
	if cfg.Checkpoint.Backend != config.CheckpointSQLite {
		return agent.NewMemoryCheckpointer(), func() {}, nil
	}
	if cfg.Checkpoint.DBPath == cfg.BundleDBPath {
		return bundles, func() {}, nil
	}
	db, err := store.NewSQLite(cfg.Checkpoint.DBPath)
	if err != nil {
		return nil, nil, err
	}
	return db, func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close checkpoint database", "error", err)
		}
	}, nil
}
