package web

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/lostfound/internal/auth"
	"github.com/erazemk/lostfound/internal/db"
	"github.com/erazemk/lostfound/internal/mail"
	"github.com/erazemk/lostfound/internal/model"
	"github.com/erazemk/lostfound/internal/notify"
	"github.com/erazemk/lostfound/internal/search"
	"github.com/erazemk/lostfound/internal/service"
	"github.com/erazemk/lostfound/internal/store"
)

const testJWTSecret = "test-secret"

type site struct {
	handler http.Handler
	db      *sql.DB
	svc     *service.LostFound
	owner   *model.User
	other   *model.User
}

func setupSite(t *testing.T) *site {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	dispatcher := &notify.Dispatcher{
		DB:      database,
		Sender:  mail.NewLogSender(slog.New(slog.DiscardHandler)),
		BaseURL: "http://lostfound.test",
	}
	svc := service.New(database, dispatcher)

	handler, err := NewRouter(svc, database, testJWTSecret)
	require.NoError(t, err)

	mk := func(username string) *model.User {
		hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
		require.NoError(t, err)
		u, err := store.CreateUser(ctx, database, model.User{
			Username:     username,
			Email:        username + "@campus.edu",
			PasswordHash: string(hash),
			Role:         model.RoleUser,
		})
		require.NoError(t, err)
		return u
	}

	return &site{
		handler: handler,
		db:      database,
		svc:     svc,
		owner:   mk("owner"),
		other:   mk("other"),
	}
}

// cookie returns a token cookie for user.
func (s *site) cookie(t *testing.T, user *model.User) *http.Cookie {
	t.Helper()
	token, err := auth.GenerateToken(testJWTSecret, user)
	require.NoError(t, err)
	return &http.Cookie{Name: "token", Value: token}
}

func (s *site) do(method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *site) report(t *testing.T, user *model.User, title, category string) *model.Item {
	t.Helper()
	item, _, err := s.svc.ReportItem(context.Background(), &model.Actor{UserID: user.ID}, model.ItemDraft{
		Title:       title,
		Description: "Left behind after class",
		Category:    category,
		Location:    "Library",
		DateLost:    time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return item
}

// flashOf returns the flash set by a response, or nil.
func flashOf(rec *httptest.ResponseRecorder) *Flash {
	req := httptest.NewRequest("GET", "/", nil)
	for _, c := range rec.Result().Cookies() {
		if c.Name == flashCookie && c.Value != "" {
			req.AddCookie(c)
		}
	}
	return popFlash(httptest.NewRecorder(), req)
}

func searchAll() search.Query {
	return search.Query{Status: search.Status(model.StatusAll)}
}

func itemURL(item *model.Item) string {
	return "/items/" + strconv.FormatInt(item.ID, 10)
}

func TestHomeShowsRecentLostItems(t *testing.T) {
	s := setupSite(t)
	s.report(t, s.owner, "Blue Backpack", model.CategoryBackpack)

	rec := s.do("GET", "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Blue Backpack")
	assert.Contains(t, rec.Body.String(), `action="/subscribe"`)
}

func TestItemsListingFilters(t *testing.T) {
	s := setupSite(t)
	s.report(t, s.owner, "Blue Backpack", model.CategoryBackpack)
	keys := s.report(t, s.owner, "Car Keys", model.CategoryKeys)
	_, err := s.svc.ToggleStatus(context.Background(), &model.Actor{UserID: s.owner.ID}, keys.ID)
	require.NoError(t, err)

	rec := s.do("GET", "/items", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Blue Backpack")
	assert.NotContains(t, rec.Body.String(), "Car Keys", "default listing shows lost items only")

	rec = s.do("GET", "/items?status=all", nil)
	assert.Contains(t, rec.Body.String(), "Blue Backpack")
	assert.Contains(t, rec.Body.String(), "Car Keys")

	rec = s.do("GET", "/items?status=all&q=KEYS", nil)
	assert.NotContains(t, rec.Body.String(), "Blue Backpack")
	assert.Contains(t, rec.Body.String(), "Car Keys")

	rec = s.do("GET", "/items?status=&category=backpack", nil)
	assert.Contains(t, rec.Body.String(), "Blue Backpack")
	assert.NotContains(t, rec.Body.String(), "Car Keys")
}

func TestItemsListingPagination(t *testing.T) {
	s := setupSite(t)
	for i := range 13 {
		s.report(t, s.owner, "Umbrella "+strconv.Itoa(i), model.CategoryOther)
	}

	rec := s.do("GET", "/items", nil)
	body := rec.Body.String()
	assert.Contains(t, body, "Page 1 of 2")
	assert.Contains(t, body, "page=2")

	rec = s.do("GET", "/items?page=2", nil)
	assert.Contains(t, rec.Body.String(), "Page 2 of 2")
}

func TestItemDetail(t *testing.T) {
	s := setupSite(t)
	item := s.report(t, s.owner, "Blue Backpack", model.CategoryBackpack)

	rec := s.do("GET", itemURL(item), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Backpack &amp; Bags")
	assert.NotContains(t, rec.Body.String(), "/found", "anonymous visitors get no actions")

	rec = s.do("GET", itemURL(item), nil, s.cookie(t, s.owner))
	assert.Contains(t, rec.Body.String(), itemURL(item)+"/found")

	rec = s.do("GET", itemURL(item), nil, s.cookie(t, s.other))
	assert.NotContains(t, rec.Body.String(), itemURL(item)+"/found")
}

func TestItemDetailMissingRedirects(t *testing.T) {
	s := setupSite(t)

	rec := s.do("GET", "/items/999", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/items", rec.Header().Get("Location"))
	flash := flashOf(rec)
	require.NotNil(t, flash)
	assert.Equal(t, FlashError, flash.Level)
}

func TestReportRequiresLogin(t *testing.T) {
	s := setupSite(t)

	rec := s.do("GET", "/report", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Freport", rec.Header().Get("Location"))
}

func TestReportSubmit(t *testing.T) {
	s := setupSite(t)
	cookie := s.cookie(t, s.owner)

	rec := s.do("GET", "/report", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "owner@campus.edu", "contact email is prefilled")

	rec = s.do("POST", "/report", url.Values{"title": {""}, "location": {"Gym"}}, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "This field is required.")

	rec = s.do("POST", "/report", url.Values{
		"title":         {"Water Bottle"},
		"description":   {"Green, with stickers"},
		"category":      {"other"},
		"location":      {"Gym"},
		"date_lost":     {"2026-09-02"},
		"contact_email": {""},
		"status":        {"lost"},
	}, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/items/"))

	page, err := s.svc.Search(context.Background(), searchAll())
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "owner@campus.edu", page.Items[0].ContactEmail)
	require.NotNil(t, page.Items[0].ReporterID)
	assert.Equal(t, s.owner.ID, *page.Items[0].ReporterID)
}

func TestReportRejectsBadDate(t *testing.T) {
	s := setupSite(t)

	rec := s.do("POST", "/report", url.Values{"title": {"Scarf"}, "date_lost": {"yesterday"}}, s.cookie(t, s.owner))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Enter a valid date.")
}

func TestMarkFound(t *testing.T) {
	s := setupSite(t)
	item := s.report(t, s.owner, "Blue Backpack", model.CategoryBackpack)

	rec := s.do("POST", itemURL(item)+"/found", nil, s.cookie(t, s.other))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, itemURL(item), rec.Header().Get("Location"))
	assert.Equal(t, FlashError, flashOf(rec).Level)

	got, err := s.svc.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusLost, got.Status, "non-owner cannot toggle")

	rec = s.do("POST", itemURL(item)+"/found", nil, s.cookie(t, s.owner))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, FlashSuccess, flashOf(rec).Level)

	got, err = s.svc.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ItemStatusFound, got.Status)
}

func TestEditAndDelete(t *testing.T) {
	s := setupSite(t)
	item := s.report(t, s.owner, "Blue Backpack", model.CategoryBackpack)
	cookie := s.cookie(t, s.owner)

	rec := s.do("GET", itemURL(item)+"/edit", nil, s.cookie(t, s.other))
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = s.do("GET", itemURL(item)+"/edit", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Blue Backpack"`)

	form := url.Values{
		"title":         {"Navy Backpack"},
		"description":   {"Left behind after class"},
		"category":      {"backpack"},
		"location":      {"Library"},
		"date_lost":     {"2026-09-01"},
		"contact_email": {"owner@campus.edu"},
		"status":        {"lost"},
	}
	rec = s.do("POST", itemURL(item)+"/edit", form, cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	got, err := s.svc.GetItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Navy Backpack", got.Title)

	rec = s.do("GET", itemURL(item)+"/delete", nil, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do("POST", itemURL(item)+"/delete", nil, cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/items", rec.Header().Get("Location"))

	_, err = s.svc.GetItem(context.Background(), item.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestSubscribeFromDetail(t *testing.T) {
	s := setupSite(t)
	item := s.report(t, s.owner, "Blue Backpack", model.CategoryBackpack)

	rec := s.do("POST", itemURL(item), url.Values{"email": {"not-an-email"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Enter a valid email address.")

	rec = s.do("POST", itemURL(item), url.Values{"email": {" Student@Campus.edu "}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, FlashSuccess, flashOf(rec).Level)

	rec = s.do("POST", itemURL(item), url.Values{"email": {"student@campus.edu"}})
	assert.Equal(t, FlashInfo, flashOf(rec).Level, "second subscribe reports the existing record")

	sub, err := store.GetSubscription(context.Background(), s.db, "student@campus.edu")
	require.NoError(t, err)
	assert.True(t, sub.Active)
}

func TestSubscribeReturnsToReferer(t *testing.T) {
	s := setupSite(t)

	req := httptest.NewRequest("POST", "/subscribe", strings.NewReader("email=a%40campus.edu"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", "http://example.com/items?q=keys")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/items?q=keys", rec.Header().Get("Location"))
}

func TestUnsubscribePage(t *testing.T) {
	s := setupSite(t)
	_, _, err := s.svc.Subscribe(context.Background(), "student@campus.edu")
	require.NoError(t, err)

	rec := s.do("GET", "/unsubscribe/"+url.PathEscape("student@campus.edu"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "You have been unsubscribed")

	sub, err := store.GetSubscription(context.Background(), s.db, "student@campus.edu")
	require.NoError(t, err)
	assert.False(t, sub.Active)

	rec = s.do("GET", "/unsubscribe/nobody@campus.edu", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Subscription not found.")
}

func TestLoginAndLogout(t *testing.T) {
	s := setupSite(t)

	rec := s.do("POST", "/login", url.Values{"username": {"owner"}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do("POST", "/login", url.Values{"username": {"owner"}, "password": {"password123"}, "next": {"/report"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/report", rec.Header().Get("Location"))

	var token *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "token" {
			token = c
		}
	}
	require.NotNil(t, token)

	rec = s.do("GET", "/report", nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do("POST", "/logout", nil, token)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = s.do("GET", "/report", nil, token)
	assert.Equal(t, http.StatusSeeOther, rec.Code, "revoked token no longer authenticates")
}

func TestRegister(t *testing.T) {
	s := setupSite(t)

	rec := s.do("POST", "/register", url.Values{
		"username":         {"owner"},
		"email":            {"x@campus.edu"},
		"password":         {"password123"},
		"password_confirm": {"password123"},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "A user with that username already exists.")

	rec = s.do("POST", "/register", url.Values{
		"username":         {"newbie"},
		"first_name":       {"Nina"},
		"email":            {"nina@campus.edu"},
		"password":         {"password123"},
		"password_confirm": {"password123"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	user, err := store.GetUserByUsername(context.Background(), s.db, "newbie")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, model.RoleUser, user.Role)
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/items?page=2", "/items?page=2"},
		{"", "/"},
		{"https://evil.example", "/"},
		{"//evil.example", "/"},
		{`/\evil.example`, "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, safeNext(tt.in), tt.in)
	}
}

func TestStaticAssets(t *testing.T) {
	s := setupSite(t)

	rec := s.do("GET", "/static/style.css", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
