package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/segmentio/kafka-go"
)

// Event signals consumers that remote state changed and local mirrors
// should be refetched, replacing the old full-state-reload hammer.
type Event struct {
	TenantID string `json:"tenantId"`
	Kind     string `json:"kind"` // orders_synced | catalog_applied
	Migrated int    `json:"migrated,omitempty"`
	Skipped  int    `json:"skipped,omitempty"`
	Failed   int    `json:"failed,omitempty"`
	Created  int    `json:"created,omitempty"`
	Updated  int    `json:"updated,omitempty"`
	Deleted  int    `json:"deleted,omitempty"`
	TS       int64  `json:"ts"`
}

const (
	EventOrdersSynced   = "orders_synced"
	EventCatalogApplied = "catalog_applied"
)

type EventWriter interface {
	Publish(e Event) error
}

// MultiEventWriter fans out to multiple writers sequentially.
type MultiEventWriter struct {
	writers []EventWriter
}

func NewMultiEventWriter(ws ...EventWriter) *MultiEventWriter {
	return &MultiEventWriter{writers: ws}
}

func (m *MultiEventWriter) Publish(e Event) error {
	for _, w := range m.writers {
		if err := w.Publish(e); err != nil {
			return err
		}
	}
	return nil
}

// FileEventWriter appends events to a JSONL file.
type FileEventWriter struct {
	path string
}

func NewFileEventWriter(dir, filename string) (*FileEventWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &FileEventWriter{path: filepath.Join(dir, filename)}, nil
}

func (w *FileEventWriter) Publish(e Event) error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(&e); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// KafkaEventWriter publishes events to a Kafka topic, keyed by tenant so
// one tenant's events stay ordered.
type KafkaEventWriter struct {
	writer kafkaMessageWriter
}

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaEventWriter creates a Kafka event writer. bootstrap can be a
// comma-separated list of host:port.
func NewKafkaEventWriter(bootstrap, topic string) *KafkaEventWriter {
	var brokers []string
	for _, a := range strings.Split(bootstrap, ",") {
		if a = strings.TrimSpace(a); a != "" {
			brokers = append(brokers, a)
		}
	}
	return &KafkaEventWriter{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}}
}

func (k *KafkaEventWriter) Publish(e Event) error {
	b, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return k.writer.WriteMessages(
		context.Background(),
		kafka.Message{Key: []byte(e.TenantID), Value: b},
	)
}

// NewKafkaEventWriterWith is only for tests to inject a fake writer.
func NewKafkaEventWriterWith(w kafkaMessageWriter) *KafkaEventWriter {
	return &KafkaEventWriter{writer: w}
}
