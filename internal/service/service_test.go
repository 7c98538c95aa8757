package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/lostfound/internal/db"
	"github.com/erazemk/lostfound/internal/mail"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/notify"
	"github.com/erazemk/lostfound/internal/search"
	"github.com/erazemk/lostfound/internal/store"
)

// recordingNotifier counts announcements without sending anything.
type recordingNotifier struct {
	mu    sync.Mutex
	items []int64
	err   error
}

func (n *recordingNotifier) NotifyNewItem(_ context.Context, item *model.Item) (notify.Report, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item.ID)
	return notify.Report{}, n.err
}

// failingSender rejects one address and accepts the rest.
type failingSender struct {
	reject string
	sent   []string
}

func (s *failingSender) Send(_ context.Context, msg mail.Message) error {
	if msg.To == s.reject {
		return errors.Join(mail.ErrSendFailed, errors.New("mailbox full"))
	}
	s.sent = append(s.sent, msg.To)
	return nil
}

type fixture struct {
	svc      *LostFound
	notifier *recordingNotifier
	owner    *model.Actor
	other    *model.Actor
	admin    *model.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	mk := func(username, role string) *model.Actor {
		u, err := store.CreateUser(ctx, database, model.User{
			Username:     username,
			Email:        username + "@campus.edu",
			PasswordHash: "x",
			Role:         role,
		})
		require.NoError(t, err)
		return &model.Actor{UserID: u.ID, Admin: role == model.RoleAdmin}
	}

	n := &recordingNotifier{}
	return &fixture{
		svc:      New(database, n),
		notifier: n,
		owner:    mk("owner", model.RoleUser),
		other:    mk("other", model.RoleUser),
		admin:    mk("boss", model.RoleAdmin),
	}
}

func validDraft() model.ItemDraft {
	return model.ItemDraft{
		Title:        "Blue Backpack",
		Description:  "Navy, laptop inside",
		Location:     "Library",
		Category:     model.CategoryBackpack,
		DateLost:     time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC),
		ContactEmail: "owner@campus.edu",
	}
}

func (f *fixture) report(t *testing.T) *model.Item {
	t.Helper()
	item, _, err := f.svc.ReportItem(context.Background(), f.owner, validDraft())
	require.NoError(t, err)
	return item
}

func TestReportItemNotifiesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item := f.report(t)
	require.NotNil(t, item.ReporterID)
	assert.Equal(t, f.owner.UserID, *item.ReporterID)
	assert.Equal(t, []int64{item.ID}, f.notifier.items)

	_, err := f.svc.EditItem(ctx, f.owner, item.ID, validDraft())
	require.NoError(t, err)
	_, err = f.svc.ToggleStatus(ctx, f.owner, item.ID)
	require.NoError(t, err)
	assert.Len(t, f.notifier.items, 1, "updates never notify")
}

func TestReportItemRequiresActor(t *testing.T) {
	f := newFixture(t)

	_, _, err := f.svc.ReportItem(context.Background(), nil, validDraft())
	assert.ErrorIs(t, err, model.ErrForbidden)
	assert.Empty(t, f.notifier.items)
}

func TestReportItemValidation(t *testing.T) {
	f := newFixture(t)
	d := validDraft()
	d.Title = "  "

	_, _, err := f.svc.ReportItem(context.Background(), f.owner, d)
	assert.Contains(t, model.FieldErrors(err), "title")
	assert.Empty(t, f.notifier.items, "rejected items are not announced")
}

func TestReportItemContactFallsBackToAccount(t *testing.T) {
	f := newFixture(t)
	d := validDraft()
	d.ContactEmail = ""

	item, _, err := f.svc.ReportItem(context.Background(), f.other, d)
	require.NoError(t, err)
	assert.Equal(t, "other@campus.edu", item.ContactEmail)
}

func TestReportItemSurvivesNotifierError(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("database locked")

	item, _, err := f.svc.ReportItem(context.Background(), f.owner, validDraft())
	require.NoError(t, err)
	assert.NotZero(t, item.ID)
}

func TestReportItemWithOneFailedRecipient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sender := &failingSender{reject: "b@campus.edu"}
	f.svc.Notifier = &notify.Dispatcher{DB: f.svc.DB, Sender: sender, BaseURL: "http://localhost"}

	for _, e := range []string{"a@campus.edu", "b@campus.edu", "c@campus.edu"} {
		_, _, err := f.svc.Subscribe(ctx, e)
		require.NoError(t, err)
	}

	item, report, err := f.svc.ReportItem(ctx, f.owner, validDraft())
	require.NoError(t, err)
	assert.NotZero(t, item.ID)
	assert.Equal(t, 3, report.Attempted)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.ElementsMatch(t, []string{"a@campus.edu", "c@campus.edu"}, sender.sent)
}

func TestToggleStatusRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.report(t)

	found, err := f.svc.ToggleStatus(ctx, f.owner, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusFound, found.Status)

	lost, err := f.svc.ToggleStatus(ctx, f.admin, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusLost, lost.Status)
}

func TestToggleStatusForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.report(t)

	for name, actor := range map[string]*model.Actor{"other user": f.other, "anonymous": nil} {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.ToggleStatus(ctx, actor, item.ID)
			assert.ErrorIs(t, err, model.ErrForbidden)

			got, err := f.svc.GetItem(ctx, item.ID)
			require.NoError(t, err)
			assert.Equal(t, model.ItemStatusLost, got.Status)
			assert.Equal(t, item.UpdatedAt, got.UpdatedAt)
		})
	}
}

func TestToggleStatusNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ToggleStatus(context.Background(), f.admin, 404)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestEditItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.report(t)
	_, err := f.svc.ToggleStatus(ctx, f.owner, item.ID)
	require.NoError(t, err)

	d := validDraft()
	d.Title = "Navy Backpack"
	edited, err := f.svc.EditItem(ctx, f.owner, item.ID, d)
	require.NoError(t, err)
	assert.Equal(t, "Navy Backpack", edited.Title)
	assert.Equal(t, model.ItemStatusFound, edited.Status, "empty status keeps the current one")

	_, err = f.svc.EditItem(ctx, f.other, item.ID, d)
	assert.ErrorIs(t, err, model.ErrForbidden)

	d.Category = "pets"
	_, err = f.svc.EditItem(ctx, f.owner, item.ID, d)
	assert.Contains(t, model.FieldErrors(err), "category")
}

func TestDeleteItem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.report(t)

	assert.ErrorIs(t, f.svc.DeleteItem(ctx, f.other, item.ID), model.ErrForbidden)
	require.NoError(t, f.svc.DeleteItem(ctx, f.admin, item.ID))
	assert.ErrorIs(t, f.svc.DeleteItem(ctx, f.admin, item.ID), model.ErrNotFound)
}

func TestRecentLostAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var last *model.Item
	for range RecentCount + 2 {
		last = f.report(t)
	}
	_, err := f.svc.ToggleStatus(ctx, f.owner, last.ID)
	require.NoError(t, err)

	recent, err := f.svc.RecentLost(ctx, RecentCount)
	require.NoError(t, err)
	assert.Len(t, recent, RecentCount)
	for _, item := range recent {
		assert.Equal(t, model.ItemStatusLost, item.Status)
	}

	page, err := f.svc.Search(ctx, search.Query{Status: search.Status(model.StatusAll)})
	require.NoError(t, err)
	assert.Equal(t, RecentCount+2, page.Total)
}

func TestSetItemImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	item := f.report(t)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10))))

	assert.ErrorIs(t, f.svc.SetItemImage(ctx, f.other, item.ID, bytes.NewReader(buf.Bytes())), model.ErrForbidden)

	_, _, err := f.svc.ItemImage(ctx, item.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)

	require.NoError(t, f.svc.SetItemImage(ctx, f.owner, item.ID, &buf))
	data, mime, err := f.svc.ItemImage(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", mime)
	assert.NotEmpty(t, data)

	err = f.svc.SetItemImage(ctx, f.owner, item.ID, bytes.NewReader([]byte("plain text")))
	assert.Contains(t, model.FieldErrors(err), "image")
}

func TestSubscribeNormalizesEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub, created, err := f.svc.Subscribe(ctx, "  Student@Campus.EDU ")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "student@campus.edu", sub.Email)

	_, created, err = f.svc.Subscribe(ctx, "student@campus.edu")
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, f.svc.Unsubscribe(ctx, "STUDENT@campus.edu"))
	assert.ErrorIs(t, f.svc.Unsubscribe(ctx, "ghost@campus.edu"), model.ErrNotFound)
}

func TestSubscribeValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.svc.Subscribe(ctx, "")
	assert.Equal(t, "This field is required.", model.FieldErrors(err)["email"])

	_, _, err = f.svc.Subscribe(ctx, "not-an-email")
	assert.Equal(t, "Enter a valid email address.", model.FieldErrors(err)["email"])
}
