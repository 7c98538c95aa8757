package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/lostfound/internal/model"
)

const itemColumns = `id, title, description, category, location, date_lost, image_mime,
	reporter_id, contact_email, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var dateLost, createdAt, updatedAt string
	var imageMime sql.NullString
	var reporterID sql.NullInt64
	err := row.Scan(&item.ID, &item.Title, &item.Description, &item.Category, &item.Location,
		&dateLost, &imageMime, &reporterID, &item.ContactEmail, &item.Status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	item.ImageMime = imageMime.String
	if reporterID.Valid {
		id := reporterID.Int64
		item.ReporterID = &id
	}
	if item.DateLost, err = parseDate(dateLost); err != nil {
		return nil, err
	}
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return item, nil
}

// InsertItem validates and stores a new item reported by reporterID (nil
// when the reporter is unknown).
func InsertItem(ctx context.Context, db *sql.DB, draft model.ItemDraft, reporterID *int64) (*model.Item, error) {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	ts := formatTime(now())
	result, err := db.ExecContext(ctx,
		`INSERT INTO items (title, description, category, location, date_lost, reporter_id,
		                    contact_email, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		draft.Title, draft.Description, draft.Category, draft.Location, formatDate(draft.DateLost),
		reporterID, draft.ContactEmail, draft.Status, ts, ts,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting item id: %w", err)
	}

	return GetItem(ctx, db, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// UpdateItem loads an item, applies mutate and writes back the editable
// fields with a refreshed updated_at. An error from mutate aborts the update
// and is returned unchanged.
func UpdateItem(ctx context.Context, db *sql.DB, id int64, mutate func(*model.Item) error) (*model.Item, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning item update: %w", err)
	}
	defer tx.Rollback()

	item, err := scanItem(tx.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}

	if err := mutate(item); err != nil {
		return nil, err
	}

	draft := model.DraftOf(item)
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	draft.Apply(item)

	updated := now()
	if updated.Before(item.CreatedAt) {
		updated = item.CreatedAt
	}
	item.UpdatedAt = updated

	_, err = tx.ExecContext(ctx,
		`UPDATE items SET title = ?, description = ?, category = ?, location = ?, date_lost = ?,
		                  contact_email = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		item.Title, item.Description, item.Category, item.Location, formatDate(item.DateLost),
		item.ContactEmail, item.Status, formatTime(item.UpdatedAt), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing item update: %w", err)
	}
	return item, nil
}

// DeleteItem permanently removes an item.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// QueryItems returns the items matching pred, newest first, skipping offset
// rows and returning at most limit rows (limit < 0 means no limit), together
// with the total number of matching items. Both come from one transaction.
func QueryItems(ctx context.Context, db *sql.DB, pred Predicate, offset, limit int) ([]model.Item, int, error) {
	if pred == nil {
		pred = All()
	}
	where, args := pred.SQL()
	if where != "" {
		where = " WHERE " + where
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = -1
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("beginning item query: %w", err)
	}
	defer tx.Rollback()

	var total int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting items: %w", err)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items`+where+`
		 ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		append(args, limit, offset)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterating items: %w", err)
	}

	return items, total, tx.Commit()
}

// SetItemImage sets an item's image data.
func SetItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET image = ?, image_mime = ?, updated_at = max(created_at, ?) WHERE id = ?`,
		image, mime, formatTime(now()), id,
	)
	if err != nil {
		return fmt.Errorf("setting item image: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}
	return nil
}

// GetItemImage returns an item's image data and MIME type. Data is nil when
// the item has no image.
func GetItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item image: %w", err)
	}
	return image, mime.String, nil
}
