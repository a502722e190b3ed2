package domain

import "errors"

var (
	// ErrEntitlementNotFound is returned when an entitlement does not exist.
	ErrEntitlementNotFound = errors.New("entitlement not found")
	// ErrPoolNotFound is returned when a pool does not exist.
	ErrPoolNotFound = errors.New("pool not found")
	// ErrConsumerNotFound is returned when a consumer does not exist.
	ErrConsumerNotFound = errors.New("consumer not found")
	// ErrConsumerEmptyName is returned when creating a consumer without a name.
	ErrConsumerEmptyName = errors.New("consumer name cannot be empty")
	// ErrPoolEmptyProduct is returned when creating a pool without a master product.
	ErrPoolEmptyProduct = errors.New("pool product id cannot be empty")
	// ErrEntitlementRevoked is returned when operating on a revoked entitlement.
	ErrEntitlementRevoked = errors.New("entitlement is revoked")
	// ErrAlreadyEntitled is returned when a consumer binds the same pool twice.
	ErrAlreadyEntitled = errors.New("consumer already entitled to pool")
	// ErrCatalogInconsistency marks a dangling product or content reference.
	// Callers absorb it per entitlement; it never fails a whole pass.
	ErrCatalogInconsistency = errors.New("catalog inconsistency")
	// ErrEncodingFailure is returned when the certificate encoder fails.
	// It aborts the surrounding unit of work.
	ErrEncodingFailure = errors.New("certificate encoding failed")
	// ErrConcurrentModification signals a lost per-consumer lock race.
	// The caller retries the whole pass a bounded number of times.
	ErrConcurrentModification = errors.New("concurrent consumer modification")
	// ErrInvalidSerial is returned for non-positive certificate serials.
	ErrInvalidSerial = errors.New("certificate serial must be positive")
)
