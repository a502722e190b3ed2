package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// RevocationEntry is one revoked serial in the audit log.
type RevocationEntry struct {
	Serial        int64
	EntitlementID uuid.UUID
	Reason        string
	RevokedAt     time.Time
}

// SQLiteRevocationLog keeps revoked serials in an embedded SQLite database so
// operators can answer "why did this serial disappear" without the primary
// store. Best-effort durability; it is not the system of record.
type SQLiteRevocationLog struct {
	db *sql.DB
}

// NewSQLiteRevocationLog opens (and migrates) the audit database at path.
// Use ":memory:" for an ephemeral log.
func NewSQLiteRevocationLog(path string) (*SQLiteRevocationLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open revocation log: %w", err)
	}
	// The log is written from one process; a single connection avoids
	// SQLITE_BUSY on concurrent passes.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE IF NOT EXISTS revocations (
			serial INTEGER PRIMARY KEY,
			entitlement_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			revoked_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_revocations_entitlement ON revocations (entitlement_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate revocation log: %w", err)
	}
	return &SQLiteRevocationLog{db: db}, nil
}

// Record stores a revoked serial.
func (l *SQLiteRevocationLog) Record(ctx context.Context, serial int64, entitlementID uuid.UUID, reason string, revokedAt time.Time) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO revocations (serial, entitlement_id, reason, revoked_at) VALUES (?, ?, ?, ?)`,
		serial, entitlementID.String(), reason, revokedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record revocation: %w", err)
	}
	return nil
}

// IsRevoked reports whether a serial appears in the log.
func (l *SQLiteRevocationLog) IsRevoked(ctx context.Context, serial int64) (bool, error) {
	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revocations WHERE serial = ?`, serial).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByEntitlement returns an entitlement's revoked serials, newest first.
func (l *SQLiteRevocationLog) ListByEntitlement(ctx context.Context, entitlementID uuid.UUID) ([]RevocationEntry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT serial, entitlement_id, reason, revoked_at FROM revocations WHERE entitlement_id = ? ORDER BY revoked_at DESC`,
		entitlementID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]RevocationEntry, 0)
	for rows.Next() {
		var (
			entry RevocationEntry
			rawID string
			rawAt string
		)
		if err := rows.Scan(&entry.Serial, &rawID, &entry.Reason, &rawAt); err != nil {
			return nil, err
		}
		if entry.EntitlementID, err = uuid.Parse(rawID); err != nil {
			return nil, err
		}
		if entry.RevokedAt, err = time.Parse(time.RFC3339Nano, rawAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (l *SQLiteRevocationLog) Close() error {
	return l.db.Close()
}
