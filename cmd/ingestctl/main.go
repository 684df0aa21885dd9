// Command ingestctl publishes documents onto the ingest topic, where a
// watching indexer lands them in the corpus directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/searchcore/textindex/internal/ingest"
	"github.com/searchcore/textindex/pkg/config"
	"github.com/searchcore/textindex/pkg/kafka"
	"github.com/searchcore/textindex/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	category := flag.String("category", "", "category label for the published documents")
	flag.Parse()

	if *category == "" || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ingestctl -category <label> <file>...")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.IngestTopic)
	defer producer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, path := range flag.Args() {
		body, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "reading %s: %v\n", path, err)
			os.Exit(1)
		}
		event := ingest.DocumentEvent{
			Name:     filepath.Base(path),
			Category: *category,
			Body:     string(body),
		}
		if err := producer.Publish(ctx, kafka.Event{Key: *category + "/" + event.Name, Value: event}); err != nil {
			fmt.Fprintf(os.Stderr, "publishing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("published %s/%s (%d bytes)\n", *category, event.Name, len(body))
	}
}
