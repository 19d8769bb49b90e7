package syncer

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestFileEventWriter_Publish(t *testing.T) {
	dir := t.TempDir()
	w, err := NewFileEventWriter(dir, "events.jsonl")
	if err != nil {
		t.Fatalf("NewFileEventWriter: %v", err)
	}

	e1 := Event{TenantID: "t1", Kind: EventOrdersSynced, Migrated: 2, TS: 1}
	e2 := Event{TenantID: "t1", Kind: EventCatalogApplied, Created: 1, TS: 2}
	if err := w.Publish(e1); err != nil {
		t.Fatalf("publish1: %v", err)
	}
	if err := w.Publish(e2); err != nil {
		t.Fatalf("publish2: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "events.jsonl"))
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	defer f.Close()

	s := bufio.NewScanner(f)
	var got []Event
	for s.Scan() {
		var e Event
		if err := json.Unmarshal(s.Bytes(), &e); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		got = append(got, e)
	}
	if err := s.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 lines, got %d", len(got))
	}
	if got[0] != e1 || got[1] != e2 {
		t.Fatalf("mismatch: %+v vs %+v,%+v", got, e1, e2)
	}
}

// fakeKafkaWriter implements kafkaMessageWriter for tests.
type fakeKafkaWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func TestKafkaEventWriter_Publish(t *testing.T) {
	fake := &fakeKafkaWriter{}
	w := NewKafkaEventWriterWith(fake)

	e := Event{TenantID: "t1", Kind: EventOrdersSynced, Migrated: 3, Skipped: 1, TS: 42}
	if err := w.Publish(e); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(fake.msgs) != 1 {
		t.Fatalf("want 1 message, got %d", len(fake.msgs))
	}
	if string(fake.msgs[0].Key) != "t1" {
		t.Fatalf("key should be tenant id, got %q", fake.msgs[0].Key)
	}
	var decoded Event
	if err := json.Unmarshal(fake.msgs[0].Value, &decoded); err != nil {
		t.Fatalf("unmarshal value: %v", err)
	}
	if decoded != e {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, e)
	}
}

func TestMultiEventWriter_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	failing := NewKafkaEventWriterWith(&fakeKafkaWriter{err: boom})
	second := &fakeKafkaWriter{}

	m := NewMultiEventWriter(failing, NewKafkaEventWriterWith(second))
	if err := m.Publish(Event{TenantID: "t1"}); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	if len(second.msgs) != 0 {
		t.Fatalf("second writer should not have been reached")
	}
}
