package domain

import (
	"github.com/google/uuid"

	"github.com/felixgeelhaar/sigil/internal/shared/domain"
)

// EntitlementStatus is the lifecycle status of an entitlement.
type EntitlementStatus string

const (
	StatusActive  EntitlementStatus = "active"
	StatusRevoked EntitlementStatus = "revoked"
)

// Entitlement binds a consumer to a pool. It owns at most one active
// certificate; replacing the certificate revokes the previous serial.
type Entitlement struct {
	domain.BaseAggregateRoot
	consumerID         uuid.UUID
	poolID             uuid.UUID
	ownerID            uuid.UUID
	productID          string
	providedProductIDs []string
	certificate        *Certificate
	status             EntitlementStatus
	certState          CertificateState
}

// NewEntitlement binds a consumer to a pool, copying the pool's provided
// product snapshot. The certificate is attached separately once encoded.
func NewEntitlement(consumerID uuid.UUID, pool *Pool) *Entitlement {
	return &Entitlement{
		BaseAggregateRoot:  domain.NewBaseAggregateRoot(),
		consumerID:         consumerID,
		poolID:             pool.ID(),
		ownerID:            pool.OwnerID(),
		productID:          pool.ProductID(),
		providedProductIDs: pool.ProvidedProductIDs(),
		status:             StatusActive,
		certState:          StateCurrent,
	}
}

func (e *Entitlement) ConsumerID() uuid.UUID    { return e.consumerID }
func (e *Entitlement) PoolID() uuid.UUID        { return e.poolID }
func (e *Entitlement) OwnerID() uuid.UUID       { return e.ownerID }
func (e *Entitlement) ProductID() string        { return e.productID }
func (e *Entitlement) Status() EntitlementStatus { return e.status }
func (e *Entitlement) IsActive() bool           { return e.status == StatusActive }

// ProvidedProductIDs returns the pool snapshot copied at bind time.
func (e *Entitlement) ProvidedProductIDs() []string {
	ids := make([]string, len(e.providedProductIDs))
	copy(ids, e.providedProductIDs)
	return ids
}

// Certificate returns the active certificate, or nil when none is attached yet.
func (e *Entitlement) Certificate() *Certificate { return e.certificate }

// CertificateState returns the transient regeneration state.
func (e *Entitlement) CertificateState() CertificateState { return e.certState }

// MarkStale flags the certificate for a digest recheck.
func (e *Entitlement) MarkStale() {
	if e.certState == StateCurrent {
		e.certState = StateStale
	}
}

// BeginRegeneration moves a stale certificate into regeneration.
func (e *Entitlement) BeginRegeneration() {
	e.certState = StateRegenerating
}

// MarkCurrent records that the digest matched and no regeneration is needed.
func (e *Entitlement) MarkCurrent() {
	e.certState = StateCurrent
}

// IssueInitialCertificate attaches the first certificate and raises the bound
// event.
func (e *Entitlement) IssueInitialCertificate(cert *Certificate) error {
	if e.status != StatusActive {
		return ErrEntitlementRevoked
	}
	e.certificate = cert
	e.certState = StateCurrent
	e.Touch()
	e.AddDomainEvent(NewEntitlementBoundEvent(e.ID(), e.consumerID, e.poolID, e.productID, cert.Serial()))
	return nil
}

// SwapCertificate atomically replaces the certificate with a regenerated one
// and returns the revoked serial.
func (e *Entitlement) SwapCertificate(cert *Certificate) (int64, error) {
	if e.status != StatusActive {
		return 0, ErrEntitlementRevoked
	}
	var oldSerial int64
	if e.certificate != nil {
		oldSerial = e.certificate.Serial()
	}
	e.certificate = cert
	e.certState = StateCurrent
	e.Touch()
	e.AddDomainEvent(NewCertificateRegeneratedEvent(e.ID(), e.consumerID, oldSerial, cert.Serial()))
	return oldSerial, nil
}

// Revoke ends the entitlement and raises the revoked event. Returns the
// serial of the certificate being revoked, zero when none was attached.
func (e *Entitlement) Revoke(reason string) (int64, error) {
	if e.status != StatusActive {
		return 0, ErrEntitlementRevoked
	}
	e.status = StatusRevoked
	var serial int64
	if e.certificate != nil {
		serial = e.certificate.Serial()
	}
	e.Touch()
	e.AddDomainEvent(NewEntitlementRevokedEvent(e.ID(), e.consumerID, e.poolID, e.productID, serial, reason))
	return serial, nil
}

// RehydrateEntitlement recreates an entitlement from persisted state.
func RehydrateEntitlement(base domain.BaseEntity, version int, consumerID, poolID, ownerID uuid.UUID,
	productID string, providedProductIDs []string, certificate *Certificate, status EntitlementStatus) *Entitlement {
	e := &Entitlement{
		BaseAggregateRoot: domain.RehydrateBaseAggregateRoot(base, version),
		consumerID:        consumerID,
		poolID:            poolID,
		ownerID:           ownerID,
		productID:         productID,
		certificate:       certificate,
		status:            status,
		certState:         StateCurrent,
	}
	e.providedProductIDs = append(e.providedProductIDs, providedProductIDs...)
	return e
}
