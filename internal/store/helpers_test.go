package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/lostfound/internal/model"
)

// fakeClock makes now return base and then advance by one minute per call.
func fakeClock(t *testing.T, base time.Time) {
	t.Helper()
	orig := now
	current := base
	now = func() time.Time {
		ts := current
		current = current.Add(time.Minute)
		return ts
	}
	t.Cleanup(func() { now = orig })
}

func draft(title string) model.ItemDraft {
	return model.ItemDraft{
		Title:        title,
		Description:  "description of " + title,
		Location:     "Student Center",
		DateLost:     time.Date(2026, 10, 3, 0, 0, 0, 0, time.UTC),
		ContactEmail: "owner@campus.edu",
	}
}

func mustInsert(t *testing.T, database *sql.DB, d model.ItemDraft) *model.Item {
	t.Helper()
	item, err := InsertItem(context.Background(), database, d, nil)
	require.NoError(t, err)
	return item
}
