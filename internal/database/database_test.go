package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to open test db")
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func TestInsertAndGetDreams(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	id, err := db.InsertDream("alice", []byte(`{"dreamContent":"flying","createdAt":"2024-01-02"}`), nil)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	_, err = db.InsertDream("alice", []byte(`{"dreamContent":"falling"}`), nil)
	require.NoError(t, err)
	_, err = db.InsertDream("bob", []byte(`{"dreamContent":"teeth"}`), nil)
	require.NoError(t, err)

	dreams, err := db.GetDreams(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, dreams, 2)
	assert.Equal(t, id, dreams[0].ID)
	require.NotNil(t, dreams[0].CreatedAt)
	assert.Equal(t, "2024-01-02", *dreams[0].CreatedAt)
	assert.Nil(t, dreams[1].CreatedAt)
	assert.JSONEq(t, `{"dreamContent":"falling"}`, string(dreams[1].Payload))

	n, err := db.CountDreams("bob")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListUsers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	users, err := db.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	for _, u := range []string{"carol", "alice", "carol"} {
		_, err := db.InsertDream(u, []byte(`{"dreamContent":"x"}`), nil)
		require.NoError(t, err)
	}
	users, err = db.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, users)
}

func TestInsertDreamDuplicateSourceKey(t *testing.T) {
	db := openTestDB(t)

	first, err := db.InsertDream("alice", []byte(`{}`), ptr("feed:1"))
	require.NoError(t, err)
	assert.NotEmpty(t, first)

	dup, err := db.InsertDream("alice", []byte(`{}`), ptr("feed:1"))
	require.NoError(t, err)
	assert.Empty(t, dup)

	other, err := db.InsertDream("bob", []byte(`{}`), ptr("feed:1"))
	require.NoError(t, err)
	assert.NotEmpty(t, other, "source keys are scoped per user")
}

func TestGetAndDeleteDream(t *testing.T) {
	db := openTestDB(t)
	id, err := db.InsertDream("alice", []byte(`{"content":"x"}`), nil)
	require.NoError(t, err)

	d, err := db.GetDream(id)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "alice", d.UserID)

	require.NoError(t, db.DeleteDream(id))
	d, err = db.GetDream(id)
	require.NoError(t, err)
	assert.Nil(t, d)

	assert.ErrorIs(t, db.DeleteDream(id), ErrNotFound)
}

func TestRecordSource(t *testing.T) {
	db := openTestDB(t)
	rowID, err := db.InsertDream("alice", []byte(`{"dreamContent":"ocean","summary":"sea","createdAt":"2024-01-01"}`), nil)
	require.NoError(t, err)
	_, err = db.InsertDream("alice", []byte(`{"id":"given","content_text":"house","summary_text":"home"}`), nil)
	require.NoError(t, err)
	_, err = db.InsertDream("alice", []byte(`[1, 2, 3]`), nil)
	require.NoError(t, err)
	_, err = db.InsertDream("alice", []byte(`{"dreamContent": 42}`), nil)
	require.NoError(t, err)

	records, skipped, err := NewRecordSource(db).Records(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, records, 3)

	assert.Equal(t, rowID, records[0].ID)
	assert.Equal(t, "ocean", records[0].Content)
	assert.Equal(t, "sea", records[0].Summary)
	assert.Equal(t, "2024-01-01", records[0].CreatedAt)

	assert.Equal(t, "given", records[1].ID)
	assert.Equal(t, "house", records[1].Content)
	assert.Equal(t, "home", records[1].Summary)

	assert.Empty(t, records[2].Content)
}

func TestReports(t *testing.T) {
	db := openTestDB(t)

	latest, err := db.GetLatestReport("alice")
	require.NoError(t, err)
	assert.Nil(t, latest)

	_, err = db.InsertReport("alice", 3, 0, "2024.2", []byte(`{"total_dreams":3}`))
	require.NoError(t, err)
	second, err := db.InsertReport("alice", 5, 1, "2024.2", []byte(`{"total_dreams":5}`))
	require.NoError(t, err)

	latest, err = db.GetLatestReport("alice")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, second, latest.ID)
	assert.Equal(t, 5, latest.TotalDreams)
	assert.Equal(t, 1, latest.SkippedRecords)
	assert.JSONEq(t, `{"total_dreams":5}`, string(latest.ReportJSON))

	history, err := db.GetReportHistory("alice", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, second, history[0].ID)
	assert.Nil(t, history[0].ReportJSON)
}

func TestSubscriptions(t *testing.T) {
	db := openTestDB(t)

	sub, err := db.GetSubscription("alice")
	require.NoError(t, err)
	assert.Nil(t, sub)

	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	require.NoError(t, db.UpsertSubscription("alice", PlanPremium, &end))
	sub, err = db.GetSubscription("alice")
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, PlanPremium, sub.Type)
	require.NotNil(t, sub.SubscriptionEnd)
	assert.Equal(t, "2025-01-31T00:00:00Z", *sub.SubscriptionEnd)

	require.NoError(t, db.UpsertSubscription("alice", PlanBasic, nil))
	sub, err = db.GetSubscription("alice")
	require.NoError(t, err)
	assert.Equal(t, PlanBasic, sub.Type)
	assert.Nil(t, sub.SubscriptionEnd)

	assert.Error(t, db.UpsertSubscription("alice", "gold", nil))

	require.NoError(t, db.DeleteSubscription("alice"))
	sub, err = db.GetSubscription("alice")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestGetStats(t *testing.T) {
	db := openTestDB(t)
	db.InsertDream("alice", []byte(`{}`), nil)
	db.InsertDream("alice", []byte(`{}`), nil)
	db.InsertDream("bob", []byte(`{}`), nil)
	db.InsertReport("alice", 2, 0, "v", []byte(`{}`))
	db.UpsertSubscription("alice", PlanPremium, nil)
	db.UpsertSubscription("bob", PlanBasic, nil)

	s, err := db.GetStats()
	require.NoError(t, err)
	assert.Equal(t, 3, s.TotalDreams)
	assert.Equal(t, 2, s.Users)
	assert.Equal(t, 1, s.Reports)
	assert.Equal(t, 1, s.PremiumUsers)
}
