package commands

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	catalogdomain "github.com/felixgeelhaar/sigil/internal/catalog/domain"
	"github.com/felixgeelhaar/sigil/internal/entitlement/application/services"
	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
	sharedapplication "github.com/felixgeelhaar/sigil/internal/shared/application"
	"github.com/felixgeelhaar/sigil/internal/shared/infrastructure/outbox"
)

// BindEntitlementCommand binds a consumer to a pool.
type BindEntitlementCommand struct {
	ConsumerID uuid.UUID
	PoolID     uuid.UUID
}

func (BindEntitlementCommand) CommandName() string { return "entitlement.bind" }

var _ sharedapplication.CommandHandler[BindEntitlementCommand, *BindEntitlementResult] = (*BindEntitlementHandler)(nil)

// BindEntitlementResult contains the new entitlement and any certificates the
// bind caused to regenerate on sibling entitlements.
type BindEntitlementResult struct {
	EntitlementID uuid.UUID
	Serial        int64
	Regenerated   []services.RegenerationResult
}

// BindEntitlementHandler handles the BindEntitlementCommand.
type BindEntitlementHandler struct {
	entitlements domain.Repository
	pools        domain.PoolRepository
	catalog      catalogdomain.Reader
	encoder      domain.CertificateEncoder
	regenerator  *services.Regenerator
	outboxRepo   outbox.Repository
	uow          sharedapplication.UnitOfWork
}

// NewBindEntitlementHandler creates a new BindEntitlementHandler.
func NewBindEntitlementHandler(
	entitlements domain.Repository,
	pools domain.PoolRepository,
	catalog catalogdomain.Reader,
	encoder domain.CertificateEncoder,
	regenerator *services.Regenerator,
	outboxRepo outbox.Repository,
	uow sharedapplication.UnitOfWork,
) *BindEntitlementHandler {
	return &BindEntitlementHandler{
		entitlements: entitlements,
		pools:        pools,
		catalog:      catalog,
		encoder:      encoder,
		regenerator:  regenerator,
		outboxRepo:   outboxRepo,
		uow:          uow,
	}
}

// Handle executes the BindEntitlementCommand. The new entitlement's
// certificate is issued against the closure that includes the new entitlement
// itself, then every sibling entitlement affected by the gained products is
// re-evaluated inside the same transaction.
func (h *BindEntitlementHandler) Handle(ctx context.Context, cmd BindEntitlementCommand) (*BindEntitlementResult, error) {
	result := &BindEntitlementResult{}

	err := h.regenerator.WithConsumerLock(ctx, cmd.ConsumerID, func() error {
		return sharedapplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
			pool, err := h.pools.FindByID(txCtx, cmd.PoolID)
			if err != nil {
				return err
			}

			existing, err := h.entitlements.ListActiveByConsumer(txCtx, cmd.ConsumerID)
			if err != nil {
				return err
			}
			for _, ent := range existing {
				if ent.PoolID() == cmd.PoolID {
					return domain.ErrAlreadyEntitled
				}
			}

			ent := domain.NewEntitlement(cmd.ConsumerID, pool)
			closure := domain.Closure(append(existing, ent))

			product, err := h.catalog.GetProduct(txCtx, pool.OwnerID(), pool.ProductID())
			if err != nil {
				return fmt.Errorf("pool %s product %s: %w", pool.ID(), pool.ProductID(), err)
			}

			eligible := domain.EligibleContent(product, closure)
			digest := domain.ContentDigest(product, eligible)

			serial, payload, err := h.encoder.Encode(txCtx, domain.EncodeRequest{
				EntitlementID: ent.ID(),
				ConsumerID:    cmd.ConsumerID,
				Product:       product,
				Content:       eligible,
				Digest:        digest,
			})
			if err != nil {
				return fmt.Errorf("entitlement %s: %w: %w", ent.ID(), domain.ErrEncodingFailure, err)
			}

			cert, err := domain.NewCertificate(serial, digest, payload)
			if err != nil {
				return err
			}
			if err := ent.IssueInitialCertificate(cert); err != nil {
				return err
			}
			if err := h.entitlements.Save(txCtx, ent); err != nil {
				return err
			}

			events := ent.DomainEvents()
			ent.ClearDomainEvents()
			sharedapplication.ApplyEventMetadata(events, sharedapplication.NewEventMetadata(cmd.ConsumerID))
			msgs, err := outbox.FromEvents(events)
			if err != nil {
				return err
			}
			if err := h.outboxRepo.SaveBatch(txCtx, msgs); err != nil {
				return err
			}

			gained := append([]string{pool.ProductID()}, pool.ProvidedProductIDs()...)
			regenerated, err := h.regenerator.RegenerateLocked(txCtx, cmd.ConsumerID, gained)
			if err != nil {
				return err
			}

			result.EntitlementID = ent.ID()
			result.Serial = serial
			result.Regenerated = changedOnly(regenerated, ent.ID())
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// changedOnly drops no-op results and results for the entitlement that
// triggered the pass.
func changedOnly(results []services.RegenerationResult, trigger uuid.UUID) []services.RegenerationResult {
	out := make([]services.RegenerationResult, 0, len(results))
	for _, r := range results {
		if r.Changed && r.EntitlementID != trigger {
			out = append(out, r)
		}
	}
	return out
}
