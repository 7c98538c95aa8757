// Package service implements the lost-and-found operations shared by the
// HTML and JSON transports. Authorization is decided here from an explicit
// actor; transports only establish who the actor is.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/erazemk/lostfound/internal/imaging"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/notify"
	"github.com/erazemk/lostfound/internal/search"
	"github.com/erazemk/lostfound/internal/store"
)

// RecentCount is the number of items shown on the home page.
const RecentCount = 6

// Notifier announces newly created items.
type Notifier interface {
	NotifyNewItem(ctx context.Context, item *model.Item) (notify.Report, error)
}

// LostFound coordinates the item and subscription stores, the search
// engine and the notification dispatcher.
type LostFound struct {
	DB       *sql.DB
	Notifier Notifier
}

// New returns a service over db that announces new items through n.
func New(db *sql.DB, n Notifier) *LostFound {
	return &LostFound{DB: db, Notifier: n}
}

// ReportItem stores a new item reported by actor and then notifies the
// active subscribers. A notification failure is logged and never fails the
// report.
func (s *LostFound) ReportItem(ctx context.Context, actor *model.Actor, draft model.ItemDraft) (*model.Item, notify.Report, error) {
	if actor == nil {
		return nil, notify.Report{}, fmt.Errorf("reporting item: %w", model.ErrForbidden)
	}

	if draft.ContactEmail == "" {
		user, err := store.GetUser(ctx, s.DB, actor.UserID)
		if err != nil {
			return nil, notify.Report{}, err
		}
		if user != nil {
			draft.ContactEmail = user.Email
		}
	}

	reporter := actor.UserID
	item, err := store.InsertItem(ctx, s.DB, draft, &reporter)
	if err != nil {
		return nil, notify.Report{}, err
	}
	slog.Info("item reported", "item", item.ID, "title", item.Title, "status", item.Status, "reporter", reporter)

	var report notify.Report
	if s.Notifier != nil {
		report, err = s.Notifier.NotifyNewItem(ctx, item)
		if err != nil {
			slog.Error("failed to notify subscribers", "item", item.ID, "error", err)
		}
	}
	return item, report, nil
}

// EditItem replaces the editable fields of an item. An empty status keeps
// the current one. Only the reporter or an administrator may edit.
func (s *LostFound) EditItem(ctx context.Context, actor *model.Actor, id int64, draft model.ItemDraft) (*model.Item, error) {
	return store.UpdateItem(ctx, s.DB, id, func(item *model.Item) error {
		if !actor.CanModify(item) {
			return fmt.Errorf("editing item %d: %w", id, model.ErrForbidden)
		}
		if strings.TrimSpace(draft.Status) == "" {
			draft.Status = item.Status
		}
		draft.Normalize()
		draft.Apply(item)
		return nil
	})
}

// ToggleStatus flips an item between lost and found.
func (s *LostFound) ToggleStatus(ctx context.Context, actor *model.Actor, id int64) (*model.Item, error) {
	item, err := store.UpdateItem(ctx, s.DB, id, func(item *model.Item) error {
		if !actor.CanModify(item) {
			return fmt.Errorf("changing status of item %d: %w", id, model.ErrForbidden)
		}
		item.Status = model.ToggledStatus(item.Status)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("item status changed", "item", id, "status", item.Status)
	return item, nil
}

// DeleteItem permanently removes an item.
func (s *LostFound) DeleteItem(ctx context.Context, actor *model.Actor, id int64) error {
	item, err := store.GetItem(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if !actor.CanModify(item) {
		return fmt.Errorf("deleting item %d: %w", id, model.ErrForbidden)
	}
	if err := store.DeleteItem(ctx, s.DB, id); err != nil {
		return err
	}
	slog.Info("item deleted", "item", id, "title", item.Title)
	return nil
}

// GetItem returns an item by ID.
func (s *LostFound) GetItem(ctx context.Context, id int64) (*model.Item, error) {
	return store.GetItem(ctx, s.DB, id)
}

// Search returns one page of the item listing.
func (s *LostFound) Search(ctx context.Context, q search.Query) (*search.Page, error) {
	return search.Search(ctx, s.DB, q)
}

// RecentLost returns the n most recently reported lost items.
func (s *LostFound) RecentLost(ctx context.Context, n int) ([]model.Item, error) {
	items, _, err := store.QueryItems(ctx, s.DB, store.StatusIs(model.ItemStatusLost), 0, n)
	if err != nil {
		return nil, fmt.Errorf("listing recent items: %w", err)
	}
	return items, nil
}

// SetItemImage processes an uploaded photo and attaches it to an item.
func (s *LostFound) SetItemImage(ctx context.Context, actor *model.Actor, id int64, r io.Reader) error {
	item, err := store.GetItem(ctx, s.DB, id)
	if err != nil {
		return err
	}
	if !actor.CanModify(item) {
		return fmt.Errorf("setting image of item %d: %w", id, model.ErrForbidden)
	}

	img, err := imaging.Process(r)
	if err != nil {
		v := &model.ValidationError{}
		v.Add("image", "Upload a valid image. "+err.Error())
		return v
	}
	return store.SetItemImage(ctx, s.DB, id, img.Data, img.MIME)
}

// ItemImage returns the photo of an item. It fails with model.ErrNotFound
// when the item has none.
func (s *LostFound) ItemImage(ctx context.Context, id int64) ([]byte, string, error) {
	data, mime, err := store.GetItemImage(ctx, s.DB, id)
	if err != nil {
		return nil, "", err
	}
	if data == nil {
		return nil, "", fmt.Errorf("image of item %d: %w", id, model.ErrNotFound)
	}
	return data, mime, nil
}

// Subscribe opts email in to new-item notifications. created reports
// whether a new subscription record was made.
func (s *LostFound) Subscribe(ctx context.Context, email string) (*model.Subscription, bool, error) {
	email = model.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, false, err
	}
	sub, created, err := store.Subscribe(ctx, s.DB, email)
	if err != nil {
		return nil, false, err
	}
	slog.Info("subscribed", "email", email, "created", created)
	return sub, created, nil
}

// Unsubscribe opts email out of notifications.
func (s *LostFound) Unsubscribe(ctx context.Context, email string) error {
	email = model.NormalizeEmail(email)
	if err := store.Unsubscribe(ctx, s.DB, email); err != nil {
		return err
	}
	slog.Info("unsubscribed", "email", email)
	return nil
}

func validateEmail(email string) error {
	v := &model.ValidationError{}
	if email == "" {
		v.Add("email", "This field is required.")
	} else if !model.ValidEmail(email) {
		v.Add("email", "Enter a valid email address.")
	}
	return v.OrNil()
}
