package article

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileRepo reads articles from articles.json in the data dir. Writes happen
// out of band (the operator edits the file), so the repo only ever loads.
type FileRepo struct {
	mu   sync.RWMutex
	path string
}

func NewFileRepo(dataDir string) (*FileRepo, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	return &FileRepo{path: filepath.Join(dataDir, "articles.json")}, nil
}

func (r *FileRepo) List(ctx context.Context) ([]Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Article{}, nil
		}
		return nil, err
	}
	var articles []Article
	if err := json.Unmarshal(b, &articles); err != nil {
		return nil, err
	}
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt.After(articles[j].PublishedAt)
	})
	return articles, nil
}
