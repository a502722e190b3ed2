package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLog(t *testing.T) *SQLiteRevocationLog {
	t.Helper()
	log, err := NewSQLiteRevocationLog(filepath.Join(t.TempDir(), "revocations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func TestSQLiteRevocationLog_RecordAndLookup(t *testing.T) {
	log := newTestLog(t)
	entitlementID := uuid.New()
	revokedAt := time.Now().UTC()

	require.NoError(t, log.Record(context.Background(), 100, entitlementID, "regenerated", revokedAt))

	revoked, err := log.IsRevoked(context.Background(), 100)
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = log.IsRevoked(context.Background(), 999)
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestSQLiteRevocationLog_ListByEntitlement(t *testing.T) {
	log := newTestLog(t)
	entitlementID := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, log.Record(context.Background(), 100, entitlementID, "regenerated", base))
	require.NoError(t, log.Record(context.Background(), 101, entitlementID, "regenerated", base.Add(time.Hour)))
	require.NoError(t, log.Record(context.Background(), 200, uuid.New(), "unbind", base))

	entries, err := log.ListByEntitlement(context.Background(), entitlementID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(101), entries[0].Serial)
	assert.Equal(t, int64(100), entries[1].Serial)
	assert.Equal(t, "regenerated", entries[0].Reason)
	assert.True(t, entries[0].RevokedAt.Equal(base.Add(time.Hour)))
}

func TestSQLiteRevocationLog_RecordSameSerialTwice(t *testing.T) {
	log := newTestLog(t)
	entitlementID := uuid.New()
	now := time.Now().UTC()

	require.NoError(t, log.Record(context.Background(), 100, entitlementID, "unbind", now))
	require.NoError(t, log.Record(context.Background(), 100, entitlementID, "pool deleted", now.Add(time.Minute)))

	entries, err := log.ListByEntitlement(context.Background(), entitlementID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "pool deleted", entries[0].Reason)
}
