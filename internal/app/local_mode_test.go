package app

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogdomain "github.com/felixgeelhaar/sigil/internal/catalog/domain"
	entitlementCommands "github.com/felixgeelhaar/sigil/internal/entitlement/application/commands"
	entitlementQueries "github.com/felixgeelhaar/sigil/internal/entitlement/application/queries"
	entitlementDomain "github.com/felixgeelhaar/sigil/internal/entitlement/domain"
	"github.com/felixgeelhaar/sigil/pkg/config"
)

// TestLocalModeContainer tests that a local mode container can be created and used.
func TestLocalModeContainer(t *testing.T) {
	cfg := &config.Config{
		AppEnv:  "test",
		OwnerID: "00000000-0000-0000-0000-000000000001",
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	container, err := NewLocalContainer(cfg, logger)
	require.NoError(t, err)
	require.NotNil(t, container)
	defer container.Close()

	// No external services in local mode
	assert.Nil(t, container.DB)
	assert.Nil(t, container.RedisClient)

	// Verify repositories are created
	assert.NotNil(t, container.CatalogRepo)
	assert.NotNil(t, container.EntitlementRepo)
	assert.NotNil(t, container.PoolRepo)
	assert.NotNil(t, container.ConsumerRepo)
	assert.NotNil(t, container.OutboxRepo)

	// Verify infrastructure services are wired
	assert.NotNil(t, container.SerialSequence)
	assert.NotNil(t, container.Encoder)
	assert.NotNil(t, container.ConsumerLock)
	assert.NotNil(t, container.RevocationLog)
	assert.NotNil(t, container.EventPublisher)
	assert.NotNil(t, container.UnitOfWork)

	// Verify handlers are wired
	assert.NotNil(t, container.Regenerator)
	assert.NotNil(t, container.BindHandler)
	assert.NotNil(t, container.UnbindHandler)
	assert.NotNil(t, container.DeletePoolHandler)
	assert.NotNil(t, container.AutoBindHandler)
	assert.NotNil(t, container.UpdateProductHandler)
	assert.NotNil(t, container.GetEntitlementHandler)
	assert.NotNil(t, container.ListEntitlementsHandler)
	assert.NotNil(t, container.ListCertificatesHandler)
}

// TestLocalModeContainer_BindFlow exercises the full bind flow against the
// in-memory stack.
func TestLocalModeContainer_BindFlow(t *testing.T) {
	cfg := &config.Config{
		AppEnv:  "test",
		OwnerID: "00000000-0000-0000-0000-000000000001",
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	container, err := NewLocalContainer(cfg, logger)
	require.NoError(t, err)
	defer container.Close()

	ctx := context.Background()
	ownerID := uuid.MustParse(cfg.OwnerID)

	product, err := catalogdomain.NewProduct(ownerID, "server-os", "Server OS")
	require.NoError(t, err)
	content, err := catalogdomain.NewContent("c1", "Base Repo", "base-repo", catalogdomain.RepoTypeYum)
	require.NoError(t, err)
	require.NoError(t, product.AddContent(content, true))
	require.NoError(t, container.CatalogRepo.SaveProduct(ctx, product))

	pool, err := entitlementDomain.NewPool(ownerID, "server-os", nil)
	require.NoError(t, err)
	require.NoError(t, container.PoolRepo.Save(ctx, pool))

	consumer, err := entitlementDomain.NewConsumer(ownerID, "host-01")
	require.NoError(t, err)
	require.NoError(t, container.ConsumerRepo.Save(ctx, consumer))

	bindResult, err := container.BindHandler.Handle(ctx, entitlementCommands.BindEntitlementCommand{
		ConsumerID: consumer.ID(),
		PoolID:     pool.ID(),
	})
	require.NoError(t, err)
	assert.Positive(t, bindResult.Serial)

	certs, err := container.ListCertificatesHandler.Handle(ctx, entitlementQueries.ListCertificatesQuery{
		ConsumerID: consumer.ID(),
	})
	require.NoError(t, err)
	require.Len(t, certs, 1)
	assert.Equal(t, bindResult.Serial, certs[0].Serial)
	assert.Len(t, certs[0].Digest, 64)
}
