package commands

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/sigil/internal/entitlement/application/services"
	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
	sharedapplication "github.com/felixgeelhaar/sigil/internal/shared/application"
	"github.com/felixgeelhaar/sigil/internal/shared/infrastructure/outbox"
)

// UnbindEntitlementCommand removes an entitlement.
type UnbindEntitlementCommand struct {
	EntitlementID uuid.UUID
}

func (UnbindEntitlementCommand) CommandName() string { return "entitlement.unbind" }

var _ sharedapplication.CommandHandler[UnbindEntitlementCommand, *UnbindEntitlementResult] = (*UnbindEntitlementHandler)(nil)

// UnbindEntitlementResult contains the revoked serial and the certificates
// the loss caused to regenerate.
type UnbindEntitlementResult struct {
	RevokedSerial int64
	Regenerated   []services.RegenerationResult
}

// UnbindEntitlementHandler handles the UnbindEntitlementCommand.
type UnbindEntitlementHandler struct {
	entitlements domain.Repository
	revocations  domain.RevocationRecorder
	regenerator  *services.Regenerator
	outboxRepo   outbox.Repository
	uow          sharedapplication.UnitOfWork
}

// NewUnbindEntitlementHandler creates a new UnbindEntitlementHandler.
func NewUnbindEntitlementHandler(
	entitlements domain.Repository,
	revocations domain.RevocationRecorder,
	regenerator *services.Regenerator,
	outboxRepo outbox.Repository,
	uow sharedapplication.UnitOfWork,
) *UnbindEntitlementHandler {
	return &UnbindEntitlementHandler{
		entitlements: entitlements,
		revocations:  revocations,
		regenerator:  regenerator,
		outboxRepo:   outboxRepo,
		uow:          uow,
	}
}

// Handle executes the UnbindEntitlementCommand. Revocation and the resulting
// regeneration of sibling certificates share one transaction.
func (h *UnbindEntitlementHandler) Handle(ctx context.Context, cmd UnbindEntitlementCommand) (*UnbindEntitlementResult, error) {
	// Resolve the consumer outside the lock; the entitlement is re-read under it.
	ent, err := h.entitlements.FindByID(ctx, cmd.EntitlementID)
	if err != nil {
		return nil, err
	}
	consumerID := ent.ConsumerID()

	result := &UnbindEntitlementResult{}
	err = h.regenerator.WithConsumerLock(ctx, consumerID, func() error {
		return sharedapplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
			ent, err := h.entitlements.FindByID(txCtx, cmd.EntitlementID)
			if err != nil {
				return err
			}

			lost := append([]string{ent.ProductID()}, ent.ProvidedProductIDs()...)

			serial, err := ent.Revoke("unbind")
			if err != nil {
				return err
			}
			if err := h.entitlements.Save(txCtx, ent); err != nil {
				return err
			}
			if serial > 0 {
				if err := h.revocations.Record(txCtx, serial, ent.ID(), "unbind", time.Now().UTC()); err != nil {
					return err
				}
			}

			events := ent.DomainEvents()
			ent.ClearDomainEvents()
			sharedapplication.ApplyEventMetadata(events, sharedapplication.NewEventMetadata(consumerID))
			msgs, err := outbox.FromEvents(events)
			if err != nil {
				return err
			}
			if err := h.outboxRepo.SaveBatch(txCtx, msgs); err != nil {
				return err
			}

			regenerated, err := h.regenerator.RegenerateLocked(txCtx, consumerID, lost)
			if err != nil {
				return err
			}

			result.RevokedSerial = serial
			result.Regenerated = changedOnly(regenerated, ent.ID())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
