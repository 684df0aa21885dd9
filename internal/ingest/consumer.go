// Package ingest consumes document events from Kafka and lands them in the
// corpus directory as "category/name" files, where the next index build
// picks them up.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/searchcore/textindex/pkg/config"
	pkgerrors "github.com/searchcore/textindex/pkg/errors"
	"github.com/searchcore/textindex/pkg/kafka"
	"github.com/searchcore/textindex/pkg/metrics"
)

// DocumentEvent is the JSON payload on the ingest topic.
type DocumentEvent struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Body     string `json:"body"`
}

// Consumer drains the ingest topic into the corpus directory.
type Consumer struct {
	consumer  *kafka.Consumer
	corpusDir string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// New creates a Consumer writing into corpusDir. m may be nil.
func New(cfg config.KafkaConfig, corpusDir string, m *metrics.Metrics) *Consumer {
	c := &Consumer{
		corpusDir: corpusDir,
		logger:    slog.Default().With("component", "ingest-consumer"),
		metrics:   m,
	}
	c.consumer = kafka.NewConsumer(cfg, cfg.IngestTopic, c.handle)
	return c
}

// Start consumes until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	return c.consumer.Start(ctx)
}

// Close closes the underlying Kafka reader.
func (c *Consumer) Close() error {
	return c.consumer.Close()
}

func (c *Consumer) handle(ctx context.Context, key, value []byte) error {
	event, err := kafka.DecodeJSON[DocumentEvent](value)
	if err != nil {
		c.fail()
		return err
	}
	if err := validate(event); err != nil {
		c.fail()
		return err
	}

	dir := filepath.Join(c.corpusDir, event.Category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		c.fail()
		return fmt.Errorf("creating category directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, event.Name)
	if err := os.WriteFile(path, []byte(event.Body), 0644); err != nil {
		c.fail()
		return fmt.Errorf("writing ingested document %s: %w", path, err)
	}

	if c.metrics != nil {
		c.metrics.IngestedDocsTotal.Inc()
	}
	c.logger.Info("document ingested", "path", path, "bytes", len(event.Body))
	return nil
}

func (c *Consumer) fail() {
	if c.metrics != nil {
		c.metrics.IngestFailuresTotal.Inc()
	}
}

func validate(event DocumentEvent) error {
	if event.Name == "" || event.Category == "" {
		return fmt.Errorf("document event missing name or category: %w", pkgerrors.ErrInvalidInput)
	}
	// Reject path traversal in event-supplied segments.
	for _, segment := range []string{event.Name, event.Category} {
		if strings.Contains(segment, "/") || strings.Contains(segment, "..") {
			return fmt.Errorf("document event segment %q: %w", segment, pkgerrors.ErrInvalidInput)
		}
	}
	return nil
}
