package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogdomain "github.com/felixgeelhaar/sigil/internal/catalog/domain"
	catalogpersistence "github.com/felixgeelhaar/sigil/internal/catalog/infrastructure/persistence"
	"github.com/felixgeelhaar/sigil/internal/entitlement/domain"
	"github.com/felixgeelhaar/sigil/internal/entitlement/infrastructure/audit"
	"github.com/felixgeelhaar/sigil/internal/entitlement/infrastructure/lock"
	"github.com/felixgeelhaar/sigil/internal/entitlement/infrastructure/persistence"
	sharedpersistence "github.com/felixgeelhaar/sigil/internal/shared/infrastructure/persistence"
	"github.com/felixgeelhaar/sigil/internal/shared/infrastructure/outbox"
)

// fakeEncoder issues serials from a counter and remembers every request.
type fakeEncoder struct {
	serial   int64
	requests []domain.EncodeRequest
	failWith error
}

func (e *fakeEncoder) Encode(_ context.Context, req domain.EncodeRequest) (int64, []byte, error) {
	if e.failWith != nil {
		return 0, nil, e.failWith
	}
	e.requests = append(e.requests, req)
	e.serial++
	return e.serial, []byte(fmt.Sprintf("cert-%d", e.serial)), nil
}

type regenFixture struct {
	ownerID      uuid.UUID
	consumerID   uuid.UUID
	catalog      *catalogpersistence.InMemoryCatalogRepository
	entitlements *persistence.InMemoryEntitlementRepository
	revocations  *audit.InMemoryRevocationLog
	encoder      *fakeEncoder
	regenerator  *Regenerator
}

func newRegenFixture(t *testing.T) *regenFixture {
	t.Helper()
	f := &regenFixture{
		ownerID:      uuid.New(),
		consumerID:   uuid.New(),
		catalog:      catalogpersistence.NewInMemoryCatalogRepository(),
		entitlements: persistence.NewInMemoryEntitlementRepository(),
		revocations:  audit.NewInMemoryRevocationLog(),
		encoder:      &fakeEncoder{},
	}
	f.regenerator = NewRegenerator(
		f.entitlements,
		f.catalog,
		f.encoder,
		f.revocations,
		lock.NewInMemoryConsumerLock(),
		outbox.NewInMemoryRepository(),
		sharedpersistence.NewNoopUnitOfWork(),
		slog.New(slog.NewTextHandler(testWriter{t}, nil)),
	)
	return f
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// addProduct stores a product with the given content; conditional content
// lists its required product ids after the content id.
func (f *regenFixture) addProduct(t *testing.T, productID string, contents ...*catalogdomain.Content) *catalogdomain.Product {
	t.Helper()
	product, err := catalogdomain.NewProduct(f.ownerID, productID, "product "+productID)
	require.NoError(t, err)
	for _, content := range contents {
		require.NoError(t, product.AddContent(content, true))
	}
	require.NoError(t, f.catalog.SaveProduct(context.Background(), product))
	return product
}

func conditionalContent(t *testing.T, id string, required ...string) *catalogdomain.Content {
	t.Helper()
	content, err := catalogdomain.NewContent(id, "content "+id, "label-"+id, catalogdomain.RepoTypeYum)
	require.NoError(t, err)
	content.SetModifiedProductIDs(required)
	return content
}

// entitle binds the consumer to a fresh pool and issues a certificate whose
// digest matches the current closure including the new entitlement.
func (f *regenFixture) entitle(t *testing.T, productID string, provided ...string) *domain.Entitlement {
	t.Helper()
	ctx := context.Background()

	pool, err := domain.NewPool(f.ownerID, productID, provided)
	require.NoError(t, err)
	ent := domain.NewEntitlement(f.consumerID, pool)

	existing, err := f.entitlements.ListActiveByConsumer(ctx, f.consumerID)
	require.NoError(t, err)
	closure := domain.Closure(append(existing, ent))

	product, err := f.catalog.GetProduct(ctx, f.ownerID, productID)
	require.NoError(t, err)
	eligible := domain.EligibleContent(product, closure)
	digest := domain.ContentDigest(product, eligible)

	serial, payload, err := f.encoder.Encode(ctx, domain.EncodeRequest{
		EntitlementID: ent.ID(),
		ConsumerID:    f.consumerID,
		Product:       product,
		Content:       eligible,
		Digest:        digest,
	})
	require.NoError(t, err)
	cert, err := domain.NewCertificate(serial, digest, payload)
	require.NoError(t, err)
	require.NoError(t, ent.IssueInitialCertificate(cert))
	ent.ClearDomainEvents()
	require.NoError(t, f.entitlements.Save(ctx, ent))
	return ent
}

func TestResolveAndRegenerate_NoEntitlements(t *testing.T) {
	f := newRegenFixture(t)
	results, err := f.regenerator.ResolveAndRegenerate(context.Background(), f.consumerID, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestResolveAndRegenerate_Idempotent(t *testing.T) {
	f := newRegenFixture(t)
	f.addProduct(t, "p1", conditionalContent(t, "c1"))
	ent := f.entitle(t, "p1")
	serialBefore := ent.Certificate().Serial()

	for i := 0; i < 3; i++ {
		results, err := f.regenerator.ResolveAndRegenerate(context.Background(), f.consumerID, nil)
		require.NoError(t, err)
		for _, r := range results {
			assert.False(t, r.Changed)
		}
	}

	reloaded, err := f.entitlements.FindByID(context.Background(), ent.ID())
	require.NoError(t, err)
	assert.Equal(t, serialBefore, reloaded.Certificate().Serial())
	assert.Empty(t, f.revocations.Entries())
}

func TestResolveAndRegenerate_GainUnlocksConditionalContent(t *testing.T) {
	f := newRegenFixture(t)
	f.addProduct(t, "p1",
		conditionalContent(t, "c1"),
		conditionalContent(t, "c2", "q1"),
		conditionalContent(t, "c3", "q9"))
	f.addProduct(t, "p2")

	modifier := f.entitle(t, "p1")
	oldSerial := modifier.Certificate().Serial()

	// Bind p2 which provides q1; the modifier's conditional content c2 unlocks.
	f.entitle(t, "p2", "q1")

	results, err := f.regenerator.ResolveAndRegenerate(context.Background(), f.consumerID, []string{"p2", "q1"})
	require.NoError(t, err)

	var changed []RegenerationResult
	for _, r := range results {
		if r.Changed {
			changed = append(changed, r)
		}
	}
	require.Len(t, changed, 1)
	assert.Equal(t, modifier.ID(), changed[0].EntitlementID)
	assert.Equal(t, oldSerial, changed[0].OldSerial)
	assert.Greater(t, changed[0].NewSerial, oldSerial)

	// The regenerated certificate covers c1 and c2 but not c3.
	lastReq := f.encoder.requests[len(f.encoder.requests)-1]
	ids := make([]string, 0, len(lastReq.Content))
	for _, pc := range lastReq.Content {
		ids = append(ids, pc.Content().ID())
	}
	assert.Equal(t, []string{"c1", "c2"}, ids)

	// The old serial is revoked and gone from the active set.
	assert.True(t, f.revocations.IsRevoked(oldSerial))
	reloaded, err := f.entitlements.FindByID(context.Background(), modifier.ID())
	require.NoError(t, err)
	assert.Equal(t, changed[0].NewSerial, reloaded.Certificate().Serial())
}

func TestResolveAndRegenerate_LossLocksConditionalContent(t *testing.T) {
	f := newRegenFixture(t)
	f.addProduct(t, "p1", conditionalContent(t, "c1", "q1"))
	f.addProduct(t, "p2")

	modifier := f.entitle(t, "p1")
	provider := f.entitle(t, "p2", "q1")

	// Regenerate the modifier so its certificate includes c1.
	results, err := f.regenerator.ResolveAndRegenerate(context.Background(), f.consumerID, []string{"p2", "q1"})
	require.NoError(t, err)
	serialWithContent := results[0].NewSerial

	// Losing the provider locks c1 again.
	_, err = provider.Revoke("unbind")
	require.NoError(t, err)
	require.NoError(t, f.entitlements.Save(context.Background(), provider))

	results, err = f.regenerator.ResolveAndRegenerate(context.Background(), f.consumerID, []string{"p2", "q1"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Changed)
	assert.Equal(t, serialWithContent, results[0].OldSerial)
	assert.True(t, f.revocations.IsRevoked(serialWithContent))
	assert.Equal(t, modifier.ID(), results[0].EntitlementID)

	lastReq := f.encoder.requests[len(f.encoder.requests)-1]
	assert.Empty(t, lastReq.Content)
}

func TestResolveAndRegenerate_UnrelatedChangeIsNoOp(t *testing.T) {
	f := newRegenFixture(t)
	f.addProduct(t, "p1", conditionalContent(t, "c1", "q1"))
	f.entitle(t, "p1")
	encodes := len(f.encoder.requests)

	results, err := f.regenerator.ResolveAndRegenerate(context.Background(), f.consumerID, []string{"zz"})
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Len(t, f.encoder.requests, encodes)
}

func TestResolveAndRegenerate_EncoderFailureKeepsOldCertificate(t *testing.T) {
	f := newRegenFixture(t)
	f.addProduct(t, "p1", conditionalContent(t, "c1", "q1"))
	f.addProduct(t, "p2")
	modifier := f.entitle(t, "p1")
	oldSerial := modifier.Certificate().Serial()
	f.entitle(t, "p2", "q1")

	f.encoder.failWith = errors.New("hsm offline")
	_, err := f.regenerator.ResolveAndRegenerate(context.Background(), f.consumerID, []string{"q1"})
	require.ErrorIs(t, err, domain.ErrEncodingFailure)

	reloaded, err := f.entitlements.FindByID(context.Background(), modifier.ID())
	require.NoError(t, err)
	assert.Equal(t, oldSerial, reloaded.Certificate().Serial())
	assert.False(t, f.revocations.IsRevoked(oldSerial))
}

func TestResolveAndRegenerate_MissingProductSkipsEntitlement(t *testing.T) {
	f := newRegenFixture(t)
	f.addProduct(t, "p1", conditionalContent(t, "c1", "q1"))
	healthy := f.entitle(t, "p1")

	// An entitlement whose product was deleted from the catalog.
	danglingPool, err := domain.NewPool(f.ownerID, "ghost", []string{"q1"})
	require.NoError(t, err)
	dangling := domain.NewEntitlement(f.consumerID, danglingPool)
	cert, err := domain.NewCertificate(999, "stale-digest", nil)
	require.NoError(t, err)
	require.NoError(t, dangling.IssueInitialCertificate(cert))
	dangling.ClearDomainEvents()
	require.NoError(t, f.entitlements.Save(context.Background(), dangling))

	results, err := f.regenerator.ResolveAndRegenerate(context.Background(), f.consumerID, nil)
	require.NoError(t, err)

	// The healthy sibling still regenerated: ghost provides q1, unlocking c1.
	var changedIDs []uuid.UUID
	for _, r := range results {
		if r.Changed {
			changedIDs = append(changedIDs, r.EntitlementID)
		}
	}
	assert.Equal(t, []uuid.UUID{healthy.ID()}, changedIDs)

	reloaded, err := f.entitlements.FindByID(context.Background(), dangling.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(999), reloaded.Certificate().Serial())
}

func TestWithConsumerLock_RetriesThenFails(t *testing.T) {
	f := newRegenFixture(t)
	locks := lock.NewInMemoryConsumerLock()
	f.regenerator.lock = locks

	release, err := locks.Acquire(context.Background(), f.consumerID)
	require.NoError(t, err)
	defer release()

	err = f.regenerator.WithConsumerLock(context.Background(), f.consumerID, func() error {
		t.Fatal("must not run while the lock is held elsewhere")
		return nil
	})
	require.ErrorIs(t, err, domain.ErrConcurrentModification)
}

func TestWithConsumerLock_RunsWhenFree(t *testing.T) {
	f := newRegenFixture(t)
	ran := false
	err := f.regenerator.WithConsumerLock(context.Background(), f.consumerID, func() error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}
