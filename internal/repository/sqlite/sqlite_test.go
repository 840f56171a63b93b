package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/brief-builder/internal/model"
	"github.com/stretchr/testify/require"
)

// newTestDB creates a fresh in-memory database for each test, so tests never
// share state. t.Cleanup closes it when the test (or subtest) finishes.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test db")
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, username string) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$2a$04$notarealhash",
		IsActive:     true,
	}
	require.NoError(t, db.CreateUser(context.Background(), user))
	return user
}

func strPtr(s string) *string { return &s }

// sampleBrief returns an unsaved two-step brief.
func sampleBrief(ownerID, title string) *model.Brief {
	return &model.Brief{
		OwnerID:     ownerID,
		Title:       title,
		Description: strPtr("Tell us about your project"),
		Steps: []model.Step{
			{
				Title: "Basics",
				Questions: []model.Question{
					{Text: "Project name?", QuestionType: "text", IsRequired: true},
					{Text: "Budget?", QuestionType: "choice", Options: []string{"<1k", "1k-5k", ">5k"}},
				},
			},
			{
				Title:            "Files",
				ConditionalLogic: []byte(`{"show_if":{"question":"Budget?","equals":">5k"}}`),
				Questions: []model.Question{
					{Text: "Attach a mood board", QuestionType: "file"},
				},
			},
		},
	}
}

func createTestBrief(t *testing.T, db *DB, ownerID, title string) *model.Brief {
	t.Helper()
	brief := sampleBrief(ownerID, title)
	require.NoError(t, db.CreateBrief(context.Background(), brief))
	return brief
}

func countRows(t *testing.T, db *DB, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, db.conn.QueryRowContext(context.Background(), query, args...).Scan(&n))
	return n
}

func TestNew_AppliesMigrations(t *testing.T) {
	db := newTestDB(t)

	version, err := db.SchemaVersion(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), version)
	require.NoError(t, db.Ping(context.Background()))
}

func TestDSN(t *testing.T) {
	require.Equal(t,
		":memory:?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate&_time_format=sqlite",
		dsn(":memory:"),
	)
	require.Contains(t, dsn("data/briefs.db"), "_pragma=journal_mode(WAL)")
	require.Contains(t, dsn("file:test.db?cache=shared"), "cache=shared&_pragma=foreign_keys(1)")
}
