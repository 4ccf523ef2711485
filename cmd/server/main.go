package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pillwise/backend/config"
	httpDelivery "github.com/pillwise/backend/internal/delivery/http"
	"github.com/pillwise/backend/internal/infrastructure/browser"
	"github.com/pillwise/backend/internal/infrastructure/iherb"
	"github.com/pillwise/backend/internal/infrastructure/llm"
	"github.com/pillwise/backend/internal/infrastructure/runstore"
	"github.com/pillwise/backend/internal/infrastructure/stealth"
	"github.com/pillwise/backend/internal/logger"
	"github.com/pillwise/backend/internal/usecase"
)

// Proxy failure policy: a proxy is benched for proxyCooldown after proxyMaxFailures consecutive failures
const (
	proxyMaxFailures = 3
	proxyCooldown    = 5 * time.Minute
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level, cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to initialise logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	zapLogger.Info("starting Pillwise backend",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("run_store", cfg.RunStore.Type),
		zap.String("model", cfg.LLM.Model),
	)

	// Initialize infrastructure dependencies
	llmConfig := llm.ClientConfig{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		Timeout:           cfg.LLM.Timeout,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
	}
	chatModel, err := llm.NewChatModel(ctx, llmConfig)
	if err != nil {
		return err
	}
	reasoning := llm.NewClient(chatModel, llmConfig, zapLogger)

	proxies := stealth.NewProxyPool(proxyMaxFailures, proxyCooldown)
	if err := proxies.Add(cfg.Browser.Proxies...); err != nil {
		return fmt.Errorf("invalid proxy configuration: %w", err)
	}
	if cfg.Browser.ProxyFile != "" {
		if err := proxies.LoadFile(cfg.Browser.ProxyFile); err != nil {
			return fmt.Errorf("failed to load proxy file: %w", err)
		}
	}
	profiles := stealth.NewProfiles(
		stealth.NewUserAgentPool(cfg.Browser.UserAgents),
		proxies,
		cfg.Browser.ViewportWidth,
		cfg.Browser.ViewportHeight,
	)
	zapLogger.Info("browser profiles ready", zap.Int("proxies", proxies.Len()))

	launcher := browser.NewChromeLauncher(browser.ChromeConfig{
		ExecPath: cfg.Browser.ExecPath,
		Headless: cfg.Browser.Headless,
	}, zapLogger)

	fetcher := iherb.NewFetcher(launcher, profiles, iherb.FetcherConfig{
		SearchURL:         cfg.Browser.SearchURL,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		WaitTimeout:       cfg.Browser.WaitTimeout,
		MaxResults:        cfg.Browser.MaxResults,
		Selectors:         iherb.DefaultSelectors,
	}, zapLogger)

	store, err := runstore.New(ctx, cfg.RunStore)
	if err != nil {
		return fmt.Errorf("failed to open run store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			zapLogger.Warn("failed to close run store", zap.Error(err))
		}
	}()

	// Initialize usecase layer
	recommendationService := usecase.NewRecommendationService(usecase.RecommendationServiceConfig{
		Analysis:   usecase.NewAnalysisStage(reasoning, cfg.Pipeline.MaxKeywords, zapLogger),
		Keywords:   usecase.NewKeywordPreprocessor(cfg.Pipeline.MaxKeywords, zapLogger),
		Collection: usecase.NewCollectionStage(fetcher, zapLogger),
		Selection: usecase.NewSelectionStage(
			reasoning,
			usecase.NewMatchingService(usecase.MatchConfig{MinConfidenceThreshold: cfg.Pipeline.MatchThreshold}, zapLogger),
			zapLogger,
		),
		Safety: usecase.NewSafetyStage(reasoning, zapLogger),
		Runs:   store,
	}, zapLogger)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(recommendationService, zapLogger)
	router := httpDelivery.SetupRouter(cfg, handler, zapLogger)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		zapLogger.Info("server listening", zap.String("addr", server.Addr))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zapLogger.Info("shutting down", zap.Duration("timeout", cfg.Server.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	zapLogger.Info("server stopped")
	return nil
}
