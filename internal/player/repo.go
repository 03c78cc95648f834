package player

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// Repository is the persistence contract for player records. Update is a
// compare-and-swap on Version: it fails with ErrStale when the stored
// record changed since the caller read it, which is what serializes
// concurrent engine operations per player.
type Repository interface {
	Get(ctx context.Context, id string) (Player, error)
	Create(ctx context.Context, p Player) (Player, error)
	Update(ctx context.Context, p Player) (Player, error)
	// List returns one leaderboard page ordered by total stat levels
	// (descending, name as tiebreaker) plus the last page number.
	List(ctx context.Context, page, perPage int) ([]Player, int, error)
}

func clonePlayer(p Player) Player {
	out := p
	if p.Action.StartedAt != nil {
		t := *p.Action.StartedAt
		out.Action.StartedAt = &t
	}
	if p.Action.EndsAt != nil {
		t := *p.Action.EndsAt
		out.Action.EndsAt = &t
	}
	return out
}

func sortForLeaderboard(ps []Player) {
	sort.SliceStable(ps, func(i, j int) bool {
		ti, tj := ps[i].Stats.Total(), ps[j].Stats.Total()
		if ti != tj {
			return ti > tj
		}
		return strings.ToLower(ps[i].Name) < strings.ToLower(ps[j].Name)
	})
}

func pageOf(ps []Player, page, perPage int) ([]Player, int) {
	if perPage <= 0 {
		perPage = 10
	}
	if page <= 0 {
		page = 1
	}
	lastPage := (len(ps) + perPage - 1) / perPage
	if lastPage == 0 {
		lastPage = 1
	}
	start := (page - 1) * perPage
	if start >= len(ps) {
		return []Player{}, lastPage
	}
	end := start + perPage
	if end > len(ps) {
		end = len(ps)
	}
	return ps[start:end], lastPage
}

type MemoryRepo struct {
	mu      sync.RWMutex
	players map[string]Player
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{players: map[string]Player{}}
}

func (r *MemoryRepo) Get(ctx context.Context, id string) (Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.players[id]
	if !ok {
		return Player{}, ErrNotFound
	}
	p.Normalize()
	return clonePlayer(p), nil
}

func (r *MemoryRepo) Create(ctx context.Context, p Player) (Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.players[p.ID]; ok {
		return Player{}, ErrAlreadyExists
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.Version = 1
	p.Normalize()
	r.players[p.ID] = clonePlayer(p)
	return clonePlayer(p), nil
}

func (r *MemoryRepo) Update(ctx context.Context, p Player) (Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.players[p.ID]
	if !ok {
		return Player{}, ErrNotFound
	}
	if cur.Version != p.Version {
		return Player{}, ErrStale
	}
	p.Version++
	p.Normalize()
	r.players[p.ID] = clonePlayer(p)
	return clonePlayer(p), nil
}

func (r *MemoryRepo) List(ctx context.Context, page, perPage int) ([]Player, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		p.Normalize()
		all = append(all, clonePlayer(p))
	}
	sortForLeaderboard(all)
	out, lastPage := pageOf(all, page, perPage)
	return out, lastPage, nil
}
