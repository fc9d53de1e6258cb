package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nanumlink/nanumlink-backend/pkg/config"
	"github.com/nanumlink/nanumlink-backend/pkg/db/models"
	"github.com/nanumlink/nanumlink-backend/pkg/enums"
	"github.com/nanumlink/nanumlink-backend/pkg/logger"
	"github.com/nanumlink/nanumlink-backend/pkg/metrics"
)

type fakeDB struct {
	pingErr error
}

func (f *fakeDB) Ping(ctx context.Context) error { return f.pingErr }

type fakeRepo struct {
	pending   []models.OutboxEvent
	published []uuid.UUID
	failed    map[uuid.UUID]string
	fetchErr  error
}

func (f *fakeRepo) FetchUnpublished(limit int) ([]models.OutboxEvent, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if limit > len(f.pending) {
		limit = len(f.pending)
	}
	batch := f.pending[:limit]
	f.pending = f.pending[limit:]
	return batch, nil
}

func (f *fakeRepo) CountUnpublished() (int64, error) {
	return int64(len(f.pending)), nil
}

func (f *fakeRepo) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(id uuid.UUID, err error) error {
	if f.failed == nil {
		f.failed = map[uuid.UUID]string{}
	}
	f.failed[id] = err.Error()
	return nil
}

type fakeResult struct {
	err error
}

func (r *fakeResult) Get(ctx context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

type fakePublisher struct {
	messages []*gcppubsub.Message
	errFor   map[string]error
}

func (p *fakePublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	if err, ok := p.errFor[msg.Attributes["aggregate_id"]]; ok {
		return &fakeResult{err: err}
	}
	return &fakeResult{}
}

func testEvent(eventType enums.OutboxEventType) models.OutboxEvent {
	payload, _ := json.Marshal(map[string]any{
		"version": 1,
		"eventId": uuid.NewString(),
		"data":    map[string]string{"k": "v"},
	})
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateDonation,
		AggregateID:   uuid.New(),
		Payload:       payload,
		CreatedAt:     time.Now(),
	}
}

func newPublisherService(t *testing.T, repo *fakeRepo, pub *fakePublisher) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Outbox.BatchSize = 10
	cfg.Outbox.PollIntervalMS = 10

	svc, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled, Output: io.Discard}),
		DB:         &fakeDB{},
		Repository: repo,
		Metrics:    metrics.NewOutboxMetrics(nil),
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc
}

func TestProcessBatchPublishesAndMarks(t *testing.T) {
	first := testEvent(enums.EventDonationCreated)
	second := testEvent(enums.EventMatchProposed)
	repo := &fakeRepo{pending: []models.OutboxEvent{first, second}}
	pub := &fakePublisher{}
	svc := newPublisherService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch returned error: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to report work done")
	}
	if len(pub.messages) != 2 {
		t.Fatalf("published messages = %d, want 2", len(pub.messages))
	}
	if len(repo.published) != 2 || repo.published[0] != first.ID || repo.published[1] != second.ID {
		t.Fatalf("published ids = %v", repo.published)
	}

	msg := pub.messages[0]
	if msg.Attributes["event_type"] != string(enums.EventDonationCreated) {
		t.Fatalf("event_type attribute = %q", msg.Attributes["event_type"])
	}
	if msg.Attributes["event_id"] == "" {
		t.Fatal("expected envelope event id attribute")
	}
	if string(msg.Data) != string(first.Payload) {
		t.Fatalf("message data = %s", msg.Data)
	}
}

func TestProcessBatchMarksFailedAndContinues(t *testing.T) {
	bad := testEvent(enums.EventDonationCreated)
	good := testEvent(enums.EventMatchProposed)
	repo := &fakeRepo{pending: []models.OutboxEvent{bad, good}}
	pub := &fakePublisher{errFor: map[string]error{
		bad.AggregateID.String(): errors.New("topic unavailable"),
	}}
	svc := newPublisherService(t, repo, pub)

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch returned error: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to report work done")
	}
	if len(repo.published) != 1 || repo.published[0] != good.ID {
		t.Fatalf("published ids = %v, want only the good event", repo.published)
	}
	if repo.failed[bad.ID] != "topic unavailable" {
		t.Fatalf("failed map = %v", repo.failed)
	}
}

func TestProcessBatchEmptyQueue(t *testing.T) {
	repo := &fakeRepo{}
	svc := newPublisherService(t, repo, &fakePublisher{})

	processed, err := svc.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch returned error: %v", err)
	}
	if processed {
		t.Fatal("empty queue must report no work")
	}
}

func TestNextBackoffDoublesUpToMax(t *testing.T) {
	base := 500 * time.Millisecond
	current := base
	for _, want := range []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, maxBackoff, maxBackoff} {
		current = nextBackoff(current, base, maxBackoff)
		if current != want {
			t.Fatalf("backoff = %s, want %s", current, want)
		}
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	repo := &fakeRepo{}
	svc := newPublisherService(t, repo, &fakePublisher{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
