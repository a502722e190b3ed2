package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	catalogdomain "github.com/felixgeelhaar/sigil/internal/catalog/domain"
	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
	sharedapplication "github.com/felixgeelhaar/sigil/internal/shared/application"
	"github.com/felixgeelhaar/sigil/internal/shared/infrastructure/outbox"
)

const (
	defaultLockRetries   = 3
	lockRetryInitialWait = 25 * time.Millisecond
)

// RegenerationResult reports what happened to one entitlement during a
// resolve-and-regenerate pass.
type RegenerationResult struct {
	EntitlementID uuid.UUID
	OldSerial     int64
	NewSerial     int64
	Changed       bool
}

// Regenerator recomputes entitlement certificates after closure-changing
// events. It serializes per consumer, recomputes the entitled closure once
// per pass, and only touches certificates whose content digest actually
// changed.
type Regenerator struct {
	entitlements domain.Repository
	catalog      catalogdomain.Reader
	encoder      domain.CertificateEncoder
	revocations  domain.RevocationRecorder
	lock         domain.ConsumerLock
	outboxRepo   outbox.Repository
	uow          sharedapplication.UnitOfWork
	logger       *slog.Logger
	lockRetries  int
}

// NewRegenerator creates a regeneration coordinator.
func NewRegenerator(
	entitlements domain.Repository,
	catalog catalogdomain.Reader,
	encoder domain.CertificateEncoder,
	revocations domain.RevocationRecorder,
	lock domain.ConsumerLock,
	outboxRepo outbox.Repository,
	uow sharedapplication.UnitOfWork,
	logger *slog.Logger,
) *Regenerator {
	return &Regenerator{
		entitlements: entitlements,
		catalog:      catalog,
		encoder:      encoder,
		revocations:  revocations,
		lock:         lock,
		outboxRepo:   outboxRepo,
		uow:          uow,
		logger:       logger,
		lockRetries:  defaultLockRetries,
	}
}

// ResolveAndRegenerate runs a full pass for one consumer: acquire the
// consumer lock, load active entitlements, recompute the closure, and
// regenerate every certificate whose digest no longer matches. An empty
// changedProductIDs re-evaluates every entitlement. The pass runs in its own
// unit of work; an encoder failure rolls the whole pass back.
func (r *Regenerator) ResolveAndRegenerate(ctx context.Context, consumerID uuid.UUID, changedProductIDs []string) ([]RegenerationResult, error) {
	var results []RegenerationResult
	err := r.WithConsumerLock(ctx, consumerID, func() error {
		return sharedapplication.WithUnitOfWork(ctx, r.uow, func(txCtx context.Context) error {
			var err error
			results, err = r.RegenerateLocked(txCtx, consumerID, changedProductIDs)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// WithConsumerLock runs fn holding the consumer's lock, retrying a bounded
// number of times when the consumer is locked by a concurrent operation.
func (r *Regenerator) WithConsumerLock(ctx context.Context, consumerID uuid.UUID, fn func() error) error {
	wait := lockRetryInitialWait
	var lastErr error
	for attempt := 0; attempt <= r.lockRetries; attempt++ {
		release, err := r.lock.Acquire(ctx, consumerID)
		if err == nil {
			defer release()
			return fn()
		}
		if !errors.Is(err, domain.ErrConcurrentModification) {
			return err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return fmt.Errorf("consumer %s: %w", consumerID, lastErr)
}

// RegenerateLocked runs the regeneration pass assuming the caller already
// holds the consumer lock and an open unit of work. Command handlers that
// mutate entitlements call this inside their own transaction so mutation and
// regeneration commit or roll back together.
func (r *Regenerator) RegenerateLocked(ctx context.Context, consumerID uuid.UUID, changedProductIDs []string) ([]RegenerationResult, error) {
	entitlements, err := r.entitlements.ListActiveByConsumer(ctx, consumerID)
	if err != nil {
		return nil, err
	}
	if len(entitlements) == 0 {
		return nil, nil
	}

	closure := domain.Closure(entitlements)
	results := make([]RegenerationResult, 0)

	// Regeneration itself never adds or removes entitlements, so the closure
	// is stable almost always and the loop exits after one pass. The bound
	// guards against pathological repository behavior.
	for iteration := 0; iteration <= len(entitlements); iteration++ {
		worklist := r.seedWorklist(ctx, entitlements, changedProductIDs)
		passResults, err := r.regeneratePass(ctx, consumerID, worklist, closure)
		if err != nil {
			return nil, err
		}
		results = append(results, passResults...)

		entitlements, err = r.entitlements.ListActiveByConsumer(ctx, consumerID)
		if err != nil {
			return nil, err
		}
		next := domain.Closure(entitlements)
		if next.Equal(closure) {
			break
		}
		closure = next
	}
	return results, nil
}

// seedWorklist picks the entitlements a change can affect: those whose own
// product is among the changed ids, and those whose product carries enabled
// conditional content requiring one of the changed ids. Empty changed ids
// seed everything.
func (r *Regenerator) seedWorklist(ctx context.Context, entitlements []*domain.Entitlement, changedProductIDs []string) []*domain.Entitlement {
	if len(changedProductIDs) == 0 {
		return entitlements
	}

	changed := make(domain.ProductSet, len(changedProductIDs))
	for _, id := range changedProductIDs {
		changed[id] = struct{}{}
	}

	worklist := make([]*domain.Entitlement, 0, len(entitlements))
	for _, ent := range entitlements {
		if changed.Contains(ent.ProductID()) || changed.ContainsAny(ent.ProvidedProductIDs()) {
			worklist = append(worklist, ent)
			continue
		}
		product, err := r.catalog.GetProduct(ctx, ent.OwnerID(), ent.ProductID())
		if err != nil {
			// The pass itself reports the inconsistency; keep the
			// entitlement on the worklist so it is not silently skipped.
			worklist = append(worklist, ent)
			continue
		}
		if productModifiesAny(product, changed) {
			worklist = append(worklist, ent)
		}
	}
	return worklist
}

func productModifiesAny(product *catalogdomain.Product, changed domain.ProductSet) bool {
	for _, pc := range product.ProductContent() {
		if !pc.Enabled() {
			continue
		}
		if changed.ContainsAny(pc.Content().ModifiedProductIDs()) {
			return true
		}
	}
	return false
}

func (r *Regenerator) regeneratePass(ctx context.Context, consumerID uuid.UUID, worklist []*domain.Entitlement, closure domain.ProductSet) ([]RegenerationResult, error) {
	results := make([]RegenerationResult, 0, len(worklist))

	for _, ent := range worklist {
		ent.MarkStale()

		product, err := r.catalog.GetProduct(ctx, ent.OwnerID(), ent.ProductID())
		if err != nil {
			if errors.Is(err, catalogdomain.ErrProductNotFound) {
				// Dangling reference. The entitlement keeps its certificate
				// and siblings are unaffected.
				r.logger.Warn("catalog inconsistency, skipping entitlement",
					"entitlement_id", ent.ID(),
					"consumer_id", consumerID,
					"product_id", ent.ProductID())
				ent.MarkCurrent()
				continue
			}
			return nil, err
		}

		eligible := domain.EligibleContent(product, closure)
		digest := domain.ContentDigest(product, eligible)

		if cert := ent.Certificate(); cert != nil && cert.Digest() == digest {
			ent.MarkCurrent()
			results = append(results, RegenerationResult{
				EntitlementID: ent.ID(),
				OldSerial:     cert.Serial(),
				NewSerial:     cert.Serial(),
			})
			continue
		}

		ent.BeginRegeneration()
		result, err := r.regenerateOne(ctx, ent, product, eligible, digest)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}

func (r *Regenerator) regenerateOne(ctx context.Context, ent *domain.Entitlement, product *catalogdomain.Product, eligible []catalogdomain.ProductContent, digest string) (RegenerationResult, error) {
	serial, payload, err := r.encoder.Encode(ctx, domain.EncodeRequest{
		EntitlementID: ent.ID(),
		ConsumerID:    ent.ConsumerID(),
		Product:       product,
		Content:       eligible,
		Digest:        digest,
	})
	if err != nil {
		return RegenerationResult{}, fmt.Errorf("entitlement %s: %w: %w", ent.ID(), domain.ErrEncodingFailure, err)
	}

	cert, err := domain.NewCertificate(serial, digest, payload)
	if err != nil {
		return RegenerationResult{}, err
	}

	oldSerial, err := ent.SwapCertificate(cert)
	if err != nil {
		return RegenerationResult{}, err
	}

	if err := r.entitlements.Save(ctx, ent); err != nil {
		return RegenerationResult{}, err
	}

	if oldSerial > 0 {
		if err := r.revocations.Record(ctx, oldSerial, ent.ID(), "regenerated", time.Now().UTC()); err != nil {
			return RegenerationResult{}, err
		}
	}

	events := ent.DomainEvents()
	ent.ClearDomainEvents()
	sharedapplication.ApplyEventMetadata(events, sharedapplication.NewEventMetadata(ent.ConsumerID()))
	msgs, err := outbox.FromEvents(events)
	if err != nil {
		return RegenerationResult{}, err
	}
	if err := r.outboxRepo.SaveBatch(ctx, msgs); err != nil {
		return RegenerationResult{}, err
	}

	r.logger.Info("certificate regenerated",
		"entitlement_id", ent.ID(),
		"consumer_id", ent.ConsumerID(),
		"old_serial", oldSerial,
		"new_serial", serial)

	return RegenerationResult{
		EntitlementID: ent.ID(),
		OldSerial:     oldSerial,
		NewSerial:     serial,
		Changed:       true,
	}, nil
}
