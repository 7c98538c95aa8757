package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/lostfound/internal/model"
)

func scanSubscription(row rowScanner) (*model.Subscription, error) {
	sub := &model.Subscription{}
	var createdAt string
	if err := row.Scan(&sub.Email, &sub.Active, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	sub.CreatedAt = t
	return sub, nil
}

// Subscribe creates an active subscription for email, or reactivates the
// existing one. created is true only when this call inserted the record.
// The unique key on email keeps concurrent calls for the same address down
// to a single record: exactly one insert wins, the rest fall through to the
// reactivating update.
func Subscribe(ctx context.Context, db *sql.DB, email string) (sub *model.Subscription, created bool, err error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO subscriptions (email, active, created_at) VALUES (?, 1, ?)
		 ON CONFLICT(email) DO NOTHING`,
		email, formatTime(now()),
	)
	if err != nil {
		return nil, false, fmt.Errorf("creating subscription: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("getting rows affected: %w", err)
	}
	created = n == 1

	if !created {
		if _, err := db.ExecContext(ctx,
			`UPDATE subscriptions SET active = 1 WHERE email = ? AND active = 0`, email,
		); err != nil {
			return nil, false, fmt.Errorf("reactivating subscription: %w", err)
		}
	}

	sub, err = GetSubscription(ctx, db, email)
	if err != nil {
		return nil, false, err
	}
	return sub, created, nil
}

// Unsubscribe deactivates the subscription for email. The record is kept.
func Unsubscribe(ctx context.Context, db *sql.DB, email string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE subscriptions SET active = 0 WHERE email = ?`, email,
	)
	if err != nil {
		return fmt.Errorf("deactivating subscription: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("subscription %s: %w", email, model.ErrNotFound)
	}
	return nil
}

// GetSubscription returns the subscription for email.
func GetSubscription(ctx context.Context, db *sql.DB, email string) (*model.Subscription, error) {
	sub, err := scanSubscription(db.QueryRowContext(ctx,
		`SELECT email, active, created_at FROM subscriptions WHERE email = ?`, email,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subscription %s: %w", email, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting subscription: %w", err)
	}
	return sub, nil
}

// ListActiveSubscriptions returns every active subscription in no
// particular order.
func ListActiveSubscriptions(ctx context.Context, db *sql.DB) ([]model.Subscription, error) {
	return listSubscriptions(ctx, db, `SELECT email, active, created_at FROM subscriptions WHERE active = 1`)
}

// ListSubscriptions returns all subscriptions, newest first.
func ListSubscriptions(ctx context.Context, db *sql.DB) ([]model.Subscription, error) {
	return listSubscriptions(ctx, db, `SELECT email, active, created_at FROM subscriptions ORDER BY created_at DESC`)
}

func listSubscriptions(ctx context.Context, db *sql.DB, query string) ([]model.Subscription, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}
