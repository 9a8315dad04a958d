package repo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/xxxsen/studygen/internal/db"
	"github.com/xxxsen/studygen/internal/model"
	appErr "github.com/xxxsen/studygen/internal/pkg/errors"
)

func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conn, err := db.OpenAndMigrate(filepath.Join(t.TempDir(), "studygen.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func testBank(id, createdAt string) *model.StudyBank {
	return &model.StudyBank{
		ID:              id,
		FileName:        id + ".txt",
		CreatedAt:       createdAt,
		TotalChunks:     2,
		ProcessedChunks: 1,
		Flashcards:      []model.Flashcard{{ID: "f1", Question: "q", Answer: "a"}},
		MCQs:            []model.MCQ{{ID: "m1", Question: "q", Options: []string{"a", "b"}}},
		FillBlanks:      []model.FillBlank{},
		ShortAnswers:    []model.ShortAnswer{},
	}
}

func TestBankRepo_UpsertGetList(t *testing.T) {
	ctx := context.Background()
	r := NewBankRepo(openTestDB(t))

	b1 := testBank("b1", "2024-01-02T00:00:00Z")
	b2 := testBank("b2", "2024-01-01T00:00:00Z")
	require.NoError(t, r.Upsert(ctx, b1))
	require.NoError(t, r.Upsert(ctx, b2))

	got, err := r.Get(ctx, "b1")
	require.NoError(t, err)
	require.Equal(t, b1, got)

	b1.ProcessedChunks = 2
	require.NoError(t, r.Upsert(ctx, b1))
	got, err = r.Get(ctx, "b1")
	require.NoError(t, err)
	require.Equal(t, 2, got.ProcessedChunks)

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "b2", list[0].ID)
	require.Equal(t, "b1", list[1].ID)
}

func TestBankRepo_GetMissing(t *testing.T) {
	r := NewBankRepo(openTestDB(t))
	_, err := r.Get(context.Background(), "nope")
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.ErrorIs(t, r.Delete(context.Background(), "nope"), appErr.ErrNotFound)
}

func TestBankRepo_ReplaceAll(t *testing.T) {
	ctx := context.Background()
	r := NewBankRepo(openTestDB(t))
	require.NoError(t, r.Upsert(ctx, testBank("old", "2024-01-01T00:00:00Z")))

	require.NoError(t, r.ReplaceAll(ctx, []*model.StudyBank{testBank("new", "2024-02-01T00:00:00Z")}))
	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "new", list[0].ID)

	require.NoError(t, r.ReplaceAll(ctx, nil))
	list, err = r.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestBankRepo_ClearProcessing(t *testing.T) {
	ctx := context.Background()
	r := NewBankRepo(openTestDB(t))
	busy := testBank("busy", "2024-01-01T00:00:00Z")
	busy.IsProcessing = true
	require.NoError(t, r.Upsert(ctx, busy))
	require.NoError(t, r.Upsert(ctx, testBank("idle", "2024-01-02T00:00:00Z")))

	cleared, err := r.ClearProcessing(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), cleared)

	got, err := r.Get(ctx, "busy")
	require.NoError(t, err)
	require.False(t, got.IsProcessing)
}

func TestSettingsRepo(t *testing.T) {
	ctx := context.Background()
	r := NewSettingsRepo(openTestDB(t))
	_, err := r.Get(ctx, "providers")
	require.ErrorIs(t, err, appErr.ErrNotFound)

	require.NoError(t, r.Put(ctx, "providers", `{"active":"groq"}`))
	require.NoError(t, r.Put(ctx, "providers", `{"active":"gemini"}`))
	v, err := r.Get(ctx, "providers")
	require.NoError(t, err)
	require.Equal(t, `{"active":"gemini"}`, v)
}
