package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/searchcore/textindex/internal/corpus"
	"github.com/searchcore/textindex/internal/ramindex"
	"github.com/searchcore/textindex/internal/searcher/cache"
	"github.com/searchcore/textindex/internal/searcher/handler"
	"github.com/searchcore/textindex/internal/tokenizer"
	"github.com/searchcore/textindex/pkg/config"
	"github.com/searchcore/textindex/pkg/health"
	"github.com/searchcore/textindex/pkg/logger"
	"github.com/searchcore/textindex/pkg/metrics"
	pkgredis "github.com/searchcore/textindex/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting searcher", "corpus_dir", cfg.Indexer.CorpusDir, "port", cfg.Server.Port)

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdown(ctx)
		}()
	}

	paths, err := corpus.List(cfg.Indexer.CorpusDir)
	if err != nil {
		slog.Error("listing corpus failed", "error", err)
		os.Exit(1)
	}
	vocab := tokenizer.NewVocabulary()
	tok := tokenizer.NewWord(vocab)
	index, err := ramindex.NewFromPaths(paths, tok, ramindex.WithWorkers(cfg.Search.Workers))
	if err != nil {
		slog.Error("building ram index failed", "error", err)
		os.Exit(1)
	}

	checker := health.NewChecker()
	var qc *cache.QueryCache
	if cfg.Search.CacheEnabled {
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Error("connecting to redis failed", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		qc = cache.New(client, cfg.Redis)
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if err := client.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	mux := http.NewServeMux()
	handler.New(index, tok, qc, cfg.Search, m).Register(mux)
	mux.HandleFunc("GET /healthz", checker.LiveHandler())
	mux.HandleFunc("GET /readyz", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("search API listening", "addr", server.Addr, "documents", index.DocCount())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	slog.Info("searcher stopped")
}
