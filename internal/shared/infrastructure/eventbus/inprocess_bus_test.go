package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConsumer struct {
	types    []string
	received []*ConsumedEvent
	failWith error
}

func (c *recordingConsumer) EventTypes() []string { return c.types }

func (c *recordingConsumer) Handle(_ context.Context, event *ConsumedEvent) error {
	if c.failWith != nil {
		return c.failWith
	}
	c.received = append(c.received, event)
	return nil
}

func testEventPayload(t *testing.T, routingKey string) []byte {
	t.Helper()
	payload, err := json.Marshal(ConsumedEvent{
		EventID:       uuid.New(),
		AggregateID:   uuid.New(),
		AggregateType: "entitlement",
		RoutingKey:    routingKey,
		OccurredAt:    time.Now(),
	})
	require.NoError(t, err)
	return payload
}

func TestInProcessEventBus_DeliversToMatchingConsumer(t *testing.T) {
	bus := NewInProcessEventBus(slog.New(slog.DiscardHandler))

	regenerated := &recordingConsumer{types: []string{"entitlements.certificate.regenerated"}}
	revoked := &recordingConsumer{types: []string{"entitlements.entitlement.revoked"}}
	bus.RegisterConsumer(regenerated)
	bus.RegisterConsumer(revoked)

	err := bus.Publish(context.Background(), "entitlements.certificate.regenerated",
		testEventPayload(t, "entitlements.certificate.regenerated"))
	require.NoError(t, err)

	require.Len(t, regenerated.received, 1)
	assert.Equal(t, "entitlements.certificate.regenerated", regenerated.received[0].RoutingKey)
	assert.Empty(t, revoked.received)
}

func TestInProcessEventBus_NoConsumersIsNoOp(t *testing.T) {
	bus := NewInProcessEventBus(slog.New(slog.DiscardHandler))

	err := bus.Publish(context.Background(), "entitlements.pool.deleted",
		testEventPayload(t, "entitlements.pool.deleted"))
	require.NoError(t, err)
}

func TestInProcessEventBus_ConsumerErrorDoesNotFailPublish(t *testing.T) {
	bus := NewInProcessEventBus(slog.New(slog.DiscardHandler))
	bus.RegisterConsumer(&recordingConsumer{
		types:    []string{"entitlements.entitlement.bound"},
		failWith: errors.New("handler broke"),
	})

	err := bus.Publish(context.Background(), "entitlements.entitlement.bound",
		testEventPayload(t, "entitlements.entitlement.bound"))
	require.NoError(t, err)
}

func TestConsumerRegistry_MultipleConsumersPerKey(t *testing.T) {
	registry := NewConsumerRegistry(slog.New(slog.DiscardHandler))

	first := &recordingConsumer{types: []string{"entitlements.entitlement.bound"}}
	second := &recordingConsumer{types: []string{"entitlements.entitlement.bound", "entitlements.pool.deleted"}}
	registry.Register(first)
	registry.Register(second)

	assert.Len(t, registry.Consumers("entitlements.entitlement.bound"), 2)
	assert.Len(t, registry.Consumers("entitlements.pool.deleted"), 1)
	assert.Empty(t, registry.Consumers("entitlements.entitlement.revoked"))
}
