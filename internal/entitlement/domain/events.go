package domain

import (
	"github.com/google/uuid"

	"github.com/felixgeelhaar/sigil/internal/shared/domain"
)

// Routing keys for entitlement context events.
const (
	RoutingKeyEntitlementBound      = "entitlements.entitlement.bound"
	RoutingKeyEntitlementRevoked    = "entitlements.entitlement.revoked"
	RoutingKeyCertificateRegenerate = "entitlements.certificate.regenerated"
	RoutingKeyPoolDeleted           = "entitlements.pool.deleted"
)

const aggregateTypeEntitlement = "entitlement"
const aggregateTypePool = "pool"

// EntitlementBoundEvent is raised when a consumer binds a pool.
type EntitlementBoundEvent struct {
	domain.BaseEvent
	ConsumerID uuid.UUID
	PoolID     uuid.UUID
	ProductID  string
	Serial     int64
}

// NewEntitlementBoundEvent creates an entitlement bound event.
func NewEntitlementBoundEvent(entitlementID, consumerID, poolID uuid.UUID, productID string, serial int64) *EntitlementBoundEvent {
	return &EntitlementBoundEvent{
		BaseEvent:  domain.NewBaseEvent(entitlementID, aggregateTypeEntitlement, RoutingKeyEntitlementBound),
		ConsumerID: consumerID,
		PoolID:     poolID,
		ProductID:  productID,
		Serial:     serial,
	}
}

// EntitlementRevokedEvent is raised when an entitlement is removed, either by
// unbind or by pool deletion.
type EntitlementRevokedEvent struct {
	domain.BaseEvent
	ConsumerID    uuid.UUID
	PoolID        uuid.UUID
	ProductID     string
	RevokedSerial int64
	Reason        string
}

// NewEntitlementRevokedEvent creates an entitlement revoked event.
func NewEntitlementRevokedEvent(entitlementID, consumerID, poolID uuid.UUID, productID string, revokedSerial int64, reason string) *EntitlementRevokedEvent {
	return &EntitlementRevokedEvent{
		BaseEvent:     domain.NewBaseEvent(entitlementID, aggregateTypeEntitlement, RoutingKeyEntitlementRevoked),
		ConsumerID:    consumerID,
		PoolID:        poolID,
		ProductID:     productID,
		RevokedSerial: revokedSerial,
		Reason:        reason,
	}
}

// CertificateRegeneratedEvent is raised when a stale certificate is replaced.
type CertificateRegeneratedEvent struct {
	domain.BaseEvent
	ConsumerID uuid.UUID
	OldSerial  int64
	NewSerial  int64
}

// NewCertificateRegeneratedEvent creates a certificate regenerated event.
func NewCertificateRegeneratedEvent(entitlementID, consumerID uuid.UUID, oldSerial, newSerial int64) *CertificateRegeneratedEvent {
	return &CertificateRegeneratedEvent{
		BaseEvent:  domain.NewBaseEvent(entitlementID, aggregateTypeEntitlement, RoutingKeyCertificateRegenerate),
		ConsumerID: consumerID,
		OldSerial:  oldSerial,
		NewSerial:  newSerial,
	}
}

// PoolDeletedEvent is raised when a pool is deleted and its entitlements revoked.
type PoolDeletedEvent struct {
	domain.BaseEvent
	OwnerID   uuid.UUID
	ProductID string
}

// NewPoolDeletedEvent creates a pool deleted event.
func NewPoolDeletedEvent(poolID, ownerID uuid.UUID, productID string) *PoolDeletedEvent {
	return &PoolDeletedEvent{
		BaseEvent: domain.NewBaseEvent(poolID, aggregateTypePool, RoutingKeyPoolDeleted),
		OwnerID:   ownerID,
		ProductID: productID,
	}
}
