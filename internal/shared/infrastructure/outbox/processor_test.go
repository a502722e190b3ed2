package outbox

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	published []string
	failWith  error
}

func (p *capturePublisher) Publish(_ context.Context, routingKey string, _ []byte) error {
	if p.failWith != nil {
		return p.failWith
	}
	p.published = append(p.published, routingKey)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func saveMessage(t *testing.T, repo *InMemoryRepository, routingKey string) *Message {
	t.Helper()
	msg := &Message{
		EventID:       uuid.New(),
		AggregateType: "entitlement",
		AggregateID:   uuid.New(),
		EventType:     routingKey,
		RoutingKey:    routingKey,
		Payload:       []byte(`{}`),
		CreatedAt:     time.Now(),
	}
	require.NoError(t, repo.Save(context.Background(), msg))
	return msg
}

func TestProcessor_PublishesAndMarksMessages(t *testing.T) {
	repo := NewInMemoryRepository()
	publisher := &capturePublisher{}
	processor := NewProcessor(repo, publisher, DefaultProcessorConfig(), slog.New(slog.DiscardHandler))

	saveMessage(t, repo, "entitlements.entitlement.bound")
	saveMessage(t, repo, "entitlements.certificate.regenerated")

	require.NoError(t, processor.ProcessOnce(context.Background()))

	assert.Equal(t, []string{
		"entitlements.entitlement.bound",
		"entitlements.certificate.regenerated",
	}, publisher.published)

	remaining, err := repo.GetUnpublished(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
	assert.Equal(t, uint64(2), processor.GetStats().PublishedCount)
}

func TestProcessor_FailureSchedulesRetry(t *testing.T) {
	repo := NewInMemoryRepository()
	publisher := &capturePublisher{failWith: errors.New("broker down")}
	processor := NewProcessor(repo, publisher, DefaultProcessorConfig(), slog.New(slog.DiscardHandler))

	msg := saveMessage(t, repo, "entitlements.entitlement.revoked")

	require.NoError(t, processor.ProcessOnce(context.Background()))

	assert.Equal(t, 1, msg.RetryCount)
	require.NotNil(t, msg.NextRetryAt)
	assert.True(t, msg.NextRetryAt.After(time.Now()))
	assert.Nil(t, msg.PublishedAt)
	assert.Equal(t, uint64(1), processor.GetStats().FailedCount)
}

func TestProcessor_DeadLettersAfterMaxRetries(t *testing.T) {
	repo := NewInMemoryRepository()
	publisher := &capturePublisher{failWith: errors.New("broker down")}
	cfg := DefaultProcessorConfig()
	cfg.MaxRetries = 1
	processor := NewProcessor(repo, publisher, cfg, slog.New(slog.DiscardHandler))

	msg := saveMessage(t, repo, "entitlements.pool.deleted")

	require.NoError(t, processor.ProcessOnce(context.Background()))

	require.NotNil(t, msg.DeadLetteredAt)
	assert.Equal(t, uint64(1), processor.GetStats().DeadCount)

	// Dead-lettered messages stay out of subsequent batches.
	remaining, err := repo.GetUnpublished(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestProcessor_StartStop(t *testing.T) {
	repo := NewInMemoryRepository()
	publisher := &capturePublisher{}
	cfg := DefaultProcessorConfig()
	cfg.PollInterval = 5 * time.Millisecond
	processor := NewProcessor(repo, publisher, cfg, slog.New(slog.DiscardHandler))

	require.NoError(t, processor.Start(context.Background()))
	assert.True(t, processor.IsRunning())

	processor.Stop()
	assert.False(t, processor.IsRunning())
}
