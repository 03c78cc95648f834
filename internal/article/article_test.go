package article

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepo_ListNewestFirst(t *testing.T) {
	repo := NewMemoryRepo()
	require.NoError(t, repo.Seed(context.Background(), []Article{
		{ID: "a1", Title: "old", PublishedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "a2", Title: "new", PublishedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)},
	}))

	out, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "new", out[0].Title)
	assert.Equal(t, "old", out[1].Title)
}

func TestFileRepo_MissingFileIsEmpty(t *testing.T) {
	repo, err := NewFileRepo(t.TempDir())
	require.NoError(t, err)

	out, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestFileRepo_ReadsOperatorFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "articles.json"), []byte(`[
		{"id":"a1","title":"Supply drop","body":"...","publishedAt":"2026-01-05T00:00:00Z"},
		{"id":"a2","title":"Patch notes","body":"...","publishedAt":"2026-01-10T00:00:00Z"}
	]`), 0o644))

	repo, err := NewFileRepo(dir)
	require.NoError(t, err)

	out, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Patch notes", out[0].Title)
}

func TestHandlerList(t *testing.T) {
	repo := NewMemoryRepo()
	require.NoError(t, repo.Seed(context.Background(), []Article{
		{ID: "a1", Title: "Supply drop", PublishedAt: time.Now()},
	}))
	h := NewHandler(repo)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/articles", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Articles []Article `json:"articles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Articles, 1)
	assert.Equal(t, "Supply drop", body.Articles[0].Title)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodPost, "/api/articles", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
