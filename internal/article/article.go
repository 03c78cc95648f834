package article

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Article is a front-page news item. Read-only from the game's point of
// view; operators seed them through the data file.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"publishedAt"`
}

type Repository interface {
	List(ctx context.Context) ([]Article, error)
}

type MemoryRepo struct {
	mu       sync.RWMutex
	articles []Article
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{}
}

func (r *MemoryRepo) Seed(ctx context.Context, articles []Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.articles = append([]Article{}, articles...)
	return nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Article, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := append([]Article{}, r.articles...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out, nil
}
