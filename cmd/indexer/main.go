package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/searchcore/textindex/internal/corpus"
	"github.com/searchcore/textindex/internal/indexer"
	"github.com/searchcore/textindex/internal/ingest"
	"github.com/searchcore/textindex/internal/metadata"
	"github.com/searchcore/textindex/internal/tokenizer"
	"github.com/searchcore/textindex/pkg/config"
	"github.com/searchcore/textindex/pkg/logger"
	"github.com/searchcore/textindex/pkg/metrics"
	"github.com/searchcore/textindex/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	watch := flag.Bool("watch", false, "keep consuming ingest events and rebuilding")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting indexer",
		"corpus_dir", cfg.Indexer.CorpusDir,
		"data_dir", cfg.Indexer.DataDir,
		"merge_workers", cfg.Indexer.MergeWorkers,
	)

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := build(ctx, cfg, m); err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}

	if *watch && cfg.Kafka.Enabled {
		consumer := ingest.New(cfg.Kafka, cfg.Indexer.CorpusDir, m)
		slog.Info("consuming ingest events",
			"topic", cfg.Kafka.IngestTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := consumer.Start(ctx); err != nil {
			slog.Error("ingest consumer error", "error", err)
		}
		slog.Info("rebuilding index with ingested documents")
		if err := build(context.Background(), cfg, m); err != nil {
			slog.Error("final index build failed", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("indexer finished")
}

func build(ctx context.Context, cfg *config.Config, m *metrics.Metrics) error {
	paths, err := corpus.List(cfg.Indexer.CorpusDir)
	if err != nil {
		return err
	}

	vocab := tokenizer.NewVocabulary()
	var tok tokenizer.Tokenizer = tokenizer.NewWord(vocab)
	if cfg.Indexer.NGramSize > 1 {
		tok = tokenizer.NewNGram(vocab, cfg.Indexer.NGramSize)
	}

	result, err := indexer.New(cfg.Indexer, tok, m).Build(ctx, paths)
	if err != nil {
		return err
	}
	slog.Info("postings store ready",
		"path", result.PostingsPath,
		"documents", len(result.Documents),
		"avg_doc_length", result.AvgDocLength,
	)

	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return err
		}
		defer db.Close()
		store := metadata.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := store.SaveAll(ctx, result.Documents); err != nil {
			return err
		}
	}
	return nil
}
