package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/sigil/internal/entitlement/application/services"
	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
	sharedapplication "github.com/felixgeelhaar/sigil/internal/shared/application"
	"github.com/felixgeelhaar/sigil/internal/shared/infrastructure/outbox"
)

// DeletePoolCommand deletes a pool and revokes every entitlement derived
// from it, across all consumers.
type DeletePoolCommand struct {
	PoolID uuid.UUID
}

func (DeletePoolCommand) CommandName() string { return "entitlement.pool.delete" }

var _ sharedapplication.CommandHandler[DeletePoolCommand, *DeletePoolResult] = (*DeletePoolHandler)(nil)

// DeletePoolResult reports the cascade.
type DeletePoolResult struct {
	RevokedEntitlements int
	Regenerated         []services.RegenerationResult
}

// DeletePoolHandler handles the DeletePoolCommand.
type DeletePoolHandler struct {
	entitlements domain.Repository
	pools        domain.PoolRepository
	revocations  domain.RevocationRecorder
	regenerator  *services.Regenerator
	outboxRepo   outbox.Repository
	uow          sharedapplication.UnitOfWork
	logger       *slog.Logger
}

// NewDeletePoolHandler creates a new DeletePoolHandler.
func NewDeletePoolHandler(
	entitlements domain.Repository,
	pools domain.PoolRepository,
	revocations domain.RevocationRecorder,
	regenerator *services.Regenerator,
	outboxRepo outbox.Repository,
	uow sharedapplication.UnitOfWork,
	logger *slog.Logger,
) *DeletePoolHandler {
	return &DeletePoolHandler{
		entitlements: entitlements,
		pools:        pools,
		revocations:  revocations,
		regenerator:  regenerator,
		outboxRepo:   outboxRepo,
		uow:          uow,
		logger:       logger,
	}
}

// Handle executes the DeletePoolCommand. Each affected consumer's revocation
// and regeneration run under that consumer's lock in that consumer's own
// transaction; consumers are independent of each other. The pool itself is
// deleted last.
func (h *DeletePoolHandler) Handle(ctx context.Context, cmd DeletePoolCommand) (*DeletePoolResult, error) {
	pool, err := h.pools.FindByID(ctx, cmd.PoolID)
	if err != nil {
		return nil, err
	}

	derived, err := h.entitlements.ListActiveByPool(ctx, cmd.PoolID)
	if err != nil {
		return nil, err
	}

	consumerIDs := make([]uuid.UUID, 0, len(derived))
	seen := make(map[uuid.UUID]struct{}, len(derived))
	for _, ent := range derived {
		if _, ok := seen[ent.ConsumerID()]; ok {
			continue
		}
		seen[ent.ConsumerID()] = struct{}{}
		consumerIDs = append(consumerIDs, ent.ConsumerID())
	}

	lost := append([]string{pool.ProductID()}, pool.ProvidedProductIDs()...)
	result := &DeletePoolResult{}

	for _, consumerID := range consumerIDs {
		err := h.regenerator.WithConsumerLock(ctx, consumerID, func() error {
			return sharedapplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
				revoked, regenerated, err := h.cascadeConsumer(txCtx, consumerID, cmd.PoolID, lost)
				if err != nil {
					return err
				}
				result.RevokedEntitlements += revoked
				result.Regenerated = append(result.Regenerated, regenerated...)
				return nil
			})
		})
		if err != nil {
			return nil, err
		}
	}

	err = sharedapplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		if err := h.pools.Delete(txCtx, cmd.PoolID); err != nil {
			return err
		}
		event := domain.NewPoolDeletedEvent(pool.ID(), pool.OwnerID(), pool.ProductID())
		msg, err := outbox.NewMessage(event)
		if err != nil {
			return err
		}
		return h.outboxRepo.Save(txCtx, msg)
	})
	if err != nil {
		return nil, err
	}

	h.logger.Info("pool deleted",
		"pool_id", cmd.PoolID,
		"product_id", pool.ProductID(),
		"revoked_entitlements", result.RevokedEntitlements)
	return result, nil
}

func (h *DeletePoolHandler) cascadeConsumer(ctx context.Context, consumerID, poolID uuid.UUID, lost []string) (int, []services.RegenerationResult, error) {
	active, err := h.entitlements.ListActiveByConsumer(ctx, consumerID)
	if err != nil {
		return 0, nil, err
	}

	revoked := 0
	for _, ent := range active {
		if ent.PoolID() != poolID {
			continue
		}
		serial, err := ent.Revoke("pool deleted")
		if err != nil {
			return 0, nil, err
		}
		if err := h.entitlements.Save(ctx, ent); err != nil {
			return 0, nil, err
		}
		if serial > 0 {
			if err := h.revocations.Record(ctx, serial, ent.ID(), "pool deleted", time.Now().UTC()); err != nil {
				return 0, nil, err
			}
		}

		entEvents := ent.DomainEvents()
		ent.ClearDomainEvents()
		sharedapplication.ApplyEventMetadata(entEvents, sharedapplication.NewEventMetadata(consumerID))
		msgs, err := outbox.FromEvents(entEvents)
		if err != nil {
			return 0, nil, err
		}
		if err := h.outboxRepo.SaveBatch(ctx, msgs); err != nil {
			return 0, nil, err
		}
		revoked++
	}

	regenerated, err := h.regenerator.RegenerateLocked(ctx, consumerID, lost)
	if err != nil {
		return 0, nil, err
	}
	changed := make([]services.RegenerationResult, 0, len(regenerated))
	for _, r := range regenerated {
		if r.Changed {
			changed = append(changed, r)
		}
	}
	return revoked, changed, nil
}
