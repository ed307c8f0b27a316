package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ClebyFrancisco/fineixo/internal/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeChannel struct {
	declared   []string
	kind       string
	durable    bool
	published  []amqp.Publishing
	keys       []string
	publishErr error
	declareErr error
	closed     int
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp.Table) error {
	f.declared = append(f.declared, name)
	f.kind = kind
	f.durable = durable
	return f.declareErr
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed++
	return nil
}

func sampleEvent() domain.LedgerEvent {
	return domain.LedgerEvent{
		ID:         "evt-1",
		Type:       domain.EventDebtPaid,
		OwnerID:    "owner-1",
		DebtIDs:    []string{"debt-1"},
		OccurredAt: time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC),
	}
}

func TestAMQPPublisher_DeclaresDurableTopicExchange(t *testing.T) {
	ch := &fakeChannel{}
	if _, err := newAMQPPublisher(ch, "ledger", zap.NewNop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != "ledger" {
		t.Fatalf("expected exchange ledger to be declared, got %v", ch.declared)
	}
	if ch.kind != "topic" || !ch.durable {
		t.Errorf("expected durable topic exchange, got kind=%s durable=%v", ch.kind, ch.durable)
	}
}

func TestAMQPPublisher_DeclareFailureClosesChannel(t *testing.T) {
	ch := &fakeChannel{declareErr: errors.New("access refused")}
	if _, err := newAMQPPublisher(ch, "ledger", zap.NewNop()); err == nil {
		t.Fatal("expected error")
	}
	if ch.closed != 1 {
		t.Errorf("expected channel closed once, got %d", ch.closed)
	}
}

func TestAMQPPublisher_PublishesPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newAMQPPublisher(ch, "ledger", zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	evt := sampleEvent()
	if err := p.Publish(context.Background(), evt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ch.published) != 1 {
		t.Fatalf("expected 1 message, got %d", len(ch.published))
	}
	msg := ch.published[0]
	if ch.keys[0] != domain.EventDebtPaid {
		t.Errorf("expected routing key %s, got %s", domain.EventDebtPaid, ch.keys[0])
	}
	if msg.DeliveryMode != amqp.Persistent {
		t.Errorf("expected persistent delivery, got %d", msg.DeliveryMode)
	}
	if msg.ContentType != "application/json" || msg.MessageId != "evt-1" {
		t.Errorf("unexpected headers: %s %s", msg.ContentType, msg.MessageId)
	}

	var decoded domain.LedgerEvent
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if decoded.OwnerID != "owner-1" || len(decoded.DebtIDs) != 1 || decoded.DebtIDs[0] != "debt-1" {
		t.Errorf("unexpected body: %+v", decoded)
	}
}

func TestAMQPPublisher_PublishError(t *testing.T) {
	brokerErr := errors.New("channel closed")
	ch := &fakeChannel{publishErr: brokerErr}
	p, _ := newAMQPPublisher(ch, "ledger", zap.NewNop())

	err := p.Publish(context.Background(), sampleEvent())
	if !errors.Is(err, brokerErr) {
		t.Fatalf("expected wrapped broker error, got %v", err)
	}
}

func TestAMQPPublisher_Close(t *testing.T) {
	ch := &fakeChannel{}
	p, _ := newAMQPPublisher(ch, "ledger", zap.NewNop())

	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if ch.closed != 1 {
		t.Errorf("expected channel closed once, got %d", ch.closed)
	}
	if err := p.Publish(context.Background(), sampleEvent()); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("expected ErrPublisherClosed, got %v", err)
	}
}

func TestLogPublisher(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	if err := p.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatal(err)
	}
	entries := logs.FilterMessage("ledger event").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["event_type"] != domain.EventDebtPaid || fields["owner_id"] != "owner-1" {
		t.Errorf("unexpected fields: %v", fields)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
}
