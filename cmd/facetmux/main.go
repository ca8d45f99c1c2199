package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/facetmux/facetmux"
	"github.com/facetmux/facetmux/internal/config"
	logpkg "github.com/facetmux/facetmux/internal/logger"
	chiTransport "github.com/facetmux/facetmux/internal/transport/chi"
	"github.com/facetmux/facetmux/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting facetmux server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("backend_url", cfg.Backend.URL),
		zap.Int("collections", len(cfg.Collections)),
	)

	client, err := buildClient(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create client", zap.Error(err))
	}

	server := chiTransport.NewServer(client, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Handler(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildClient assembles the SDK client from the service configuration.
func buildClient(cfg config.Config, logger *zap.Logger) (*facetmux.Client, error) {
	specs := make([]facetmux.CollectionSpec, len(cfg.Collections))
	for i, col := range cfg.Collections {
		spec := facetmux.CollectionSpec{
			Name:        col.Name,
			QueryBy:     col.QueryBy,
			Weight:      col.Weight,
			Limit:       col.Limit,
			DefaultSort: col.Sort,
		}
		for _, f := range col.Fields {
			spec.Fields = append(spec.Fields, facetmux.FieldSpec{
				Name: f.Name,
				Type: facetmux.FieldType(f.Type),
			})
		}
		specs[i] = spec
	}

	return facetmux.New(
		facetmux.WithServer(cfg.Backend.URL, cfg.Backend.APIKey),
		facetmux.WithTimeout(time.Duration(cfg.Backend.TimeoutSec)*time.Second),
		facetmux.WithCollections(specs...),
		facetmux.WithDisjunctiveFacets(cfg.DisjunctiveEnabled()),
		facetmux.WithMaxFacetValues(cfg.Search.MaxFacetValues),
		facetmux.WithPagination(cfg.Search.DefaultPerPage, cfg.Search.MaxPerPage),
		facetmux.WithMergeDefaults(cfg.Federation.Strategy, cfg.Federation.GlobalMaxResults),
		facetmux.WithLogger(logger),
	)
}
