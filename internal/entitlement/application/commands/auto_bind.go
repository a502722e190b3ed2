package commands

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
	sharedapplication "github.com/felixgeelhaar/sigil/internal/shared/application"
)

// AutoBindCommand binds a consumer to every pool needed to cover its
// installed products.
type AutoBindCommand struct {
	ConsumerID uuid.UUID
}

func (AutoBindCommand) CommandName() string { return "entitlement.auto-bind" }

var _ sharedapplication.CommandHandler[AutoBindCommand, *AutoBindResult] = (*AutoBindHandler)(nil)

// AutoBindResult reports the pools bound.
type AutoBindResult struct {
	Bound     []uuid.UUID
	Uncovered []string
}

// AutoBindHandler handles the AutoBindCommand by reusing the bind handler
// per selected pool.
type AutoBindHandler struct {
	consumers    domain.ConsumerRepository
	entitlements domain.Repository
	pools        domain.PoolRepository
	bind         *BindEntitlementHandler
	logger       *slog.Logger
}

// NewAutoBindHandler creates a new AutoBindHandler.
func NewAutoBindHandler(
	consumers domain.ConsumerRepository,
	entitlements domain.Repository,
	pools domain.PoolRepository,
	bind *BindEntitlementHandler,
	logger *slog.Logger,
) *AutoBindHandler {
	return &AutoBindHandler{
		consumers:    consumers,
		entitlements: entitlements,
		pools:        pools,
		bind:         bind,
		logger:       logger,
	}
}

// Handle binds pools until every installed product is covered by the
// consumer's closure or no remaining pool covers it. Pools are considered in
// the owner's listing order; the first pool covering an uncovered product
// wins.
func (h *AutoBindHandler) Handle(ctx context.Context, cmd AutoBindCommand) (*AutoBindResult, error) {
	consumer, err := h.consumers.FindByID(ctx, cmd.ConsumerID)
	if err != nil {
		return nil, err
	}

	active, err := h.entitlements.ListActiveByConsumer(ctx, cmd.ConsumerID)
	if err != nil {
		return nil, err
	}
	closure := domain.Closure(active)

	pools, err := h.pools.ListByOwner(ctx, consumer.OwnerID())
	if err != nil {
		return nil, err
	}

	result := &AutoBindResult{}
	for _, productID := range consumer.InstalledProductIDs() {
		if closure.Contains(productID) {
			continue
		}

		pool := firstCovering(pools, productID)
		if pool == nil {
			result.Uncovered = append(result.Uncovered, productID)
			continue
		}

		_, err := h.bind.Handle(ctx, BindEntitlementCommand{ConsumerID: cmd.ConsumerID, PoolID: pool.ID()})
		if err != nil {
			// Another installed product may have already pulled this pool in.
			if errors.Is(err, domain.ErrAlreadyEntitled) {
				continue
			}
			return nil, err
		}

		result.Bound = append(result.Bound, pool.ID())
		closure[pool.ProductID()] = struct{}{}
		for _, id := range pool.ProvidedProductIDs() {
			closure[id] = struct{}{}
		}
	}

	h.logger.Info("auto-bind completed",
		"consumer_id", cmd.ConsumerID,
		"bound", len(result.Bound),
		"uncovered", result.Uncovered)
	return result, nil
}

func firstCovering(pools []*domain.Pool, productID string) *domain.Pool {
	for _, pool := range pools {
		if pool.Covers(productID) {
			return pool
		}
	}
	return nil
}
