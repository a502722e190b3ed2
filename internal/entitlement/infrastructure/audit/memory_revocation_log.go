package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRevocationLog keeps revoked serials in memory. Tests only.
type InMemoryRevocationLog struct {
	mu      sync.Mutex
	entries []RevocationEntry
}

// NewInMemoryRevocationLog creates an empty log.
func NewInMemoryRevocationLog() *InMemoryRevocationLog {
	return &InMemoryRevocationLog{}
}

// Record stores a revoked serial.
func (l *InMemoryRevocationLog) Record(_ context.Context, serial int64, entitlementID uuid.UUID, reason string, revokedAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, RevocationEntry{
		Serial:        serial,
		EntitlementID: entitlementID,
		Reason:        reason,
		RevokedAt:     revokedAt,
	})
	return nil
}

// Entries returns a copy of all recorded revocations.
func (l *InMemoryRevocationLog) Entries() []RevocationEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]RevocationEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// IsRevoked reports whether a serial appears in the log.
func (l *InMemoryRevocationLog) IsRevoked(serial int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, entry := range l.entries {
		if entry.Serial == serial {
			return true
		}
	}
	return false
}
