package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// RevokeToken records that the session token with the given JTI was ended
// before expiresAt. Entries whose expiry has passed are dropped in the same
// transaction; a token that has already expired is not recorded at all,
// since it no longer authenticates anyone.
func RevokeToken(ctx context.Context, db *sql.DB, jti string, expiresAt time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning token revocation: %w", err)
	}
	defer tx.Rollback()

	cutoff := formatTime(now())
	if _, err := pruneRevoked(ctx, tx, cutoff); err != nil {
		return err
	}

	if until := formatTime(expiresAt); until >= cutoff {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?)
			 ON CONFLICT(jti) DO UPDATE SET expires_at = max(expires_at, excluded.expires_at)`,
			jti, until,
		)
		if err != nil {
			return fmt.Errorf("revoking token %s: %w", jti, err)
		}
	}

	return tx.Commit()
}

// PruneRevokedTokens removes revocations for tokens that have expired and
// returns how many were removed.
func PruneRevokedTokens(ctx context.Context, db *sql.DB) (int64, error) {
	return pruneRevoked(ctx, db, formatTime(now()))
}

func pruneRevoked(ctx context.Context, ex execer, cutoff string) (int64, error) {
	result, err := ex.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning revoked tokens: %w", err)
	}
	return result.RowsAffected()
}

// IsTokenRevoked reports whether the token with the given JTI was revoked
// and is still within its lifetime.
func IsTokenRevoked(ctx context.Context, db *sql.DB, jti string) (bool, error) {
	var revoked bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ? AND expires_at >= ?)`,
		jti, formatTime(now()),
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("checking token %s: %w", jti, err)
	}
	return revoked, nil
}
