package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Rajchodisetti/market-gateway/internal/adapters"
	"github.com/Rajchodisetti/market-gateway/internal/config"
	"github.com/Rajchodisetti/market-gateway/internal/market"
	"github.com/Rajchodisetti/market-gateway/internal/observ"
	"github.com/Rajchodisetti/market-gateway/internal/server"
)

func main() {
	var cfgPath, envPath, addr string
	flag.StringVar(&cfgPath, "config", "configs/gateway.yaml", "config path")
	flag.StringVar(&envPath, "env-file", ".env", "dotenv file with provider keys (optional)")
	flag.StringVar(&addr, "addr", "", "listen address (overrides config)")
	flag.Parse()

	if err := run(cfgPath, envPath, addr); err != nil {
		fmt.Fprintln(os.Stderr, "gateway:", err)
		os.Exit(1)
	}
}

func run(cfgPath, envPath, addr string) error {
	// Existing environment variables win over the file.
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", envPath, err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	logger := observ.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	metrics := observ.NewRegistry()
	recorder := observ.NewRecorder(cfg.Observability.Capacity, metrics)
	health := adapters.NewHealthTracker(recorder, metrics, logger)
	cache := adapters.NewCandleCache(cfg.CandleTTLs(), metrics)

	registry := adapters.NewRegistry(cfg.Providers, logger)
	chains, err := market.ResolveChains(registry, cfg.Chains.Search, cfg.Chains.Quote, cfg.Chains.Candles)
	if err != nil {
		return fmt.Errorf("resolve chains: %w", err)
	}
	if len(registry.Configured()) == 0 {
		logger.Warn().Msg("no provider API keys configured; every data route will answer 503")
	}

	svc := market.NewService(chains, health, cache, logger)
	srv := server.New(server.Options{
		Service:        svc,
		Recorder:       recorder,
		Health:         health,
		Metrics:        metrics,
		Registry:       registry,
		Logger:         logger,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout(),
		WriteTimeout: cfg.Server.WriteTimeout(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Log("gateway_listening", map[string]any{
			"addr":       cfg.Server.Addr,
			"configured": registry.Configured(),
			"quote":      cfg.Chains.Quote,
			"candles":    cfg.Chains.Candles,
			"search":     cfg.Chains.Search,
		})
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Log("gateway_shutdown", map[string]any{
		"timeout_seconds": cfg.Server.ShutdownSeconds,
		"http_requests":   metrics.CounterTotal("http_requests_total"),
		"provider_calls":  metrics.CounterTotal("provider_calls_total"),
	})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
