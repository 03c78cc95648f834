package player

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileState struct {
	Players map[string]Player `json:"players"`
}

// FileRepo persists all players in one JSON file guarded by a mutex. The
// whole state is rewritten on every commit, which keeps a single engine
// operation's field mutations in one atomic write.
type FileRepo struct {
	mu   sync.RWMutex
	path string
	s    fileState
}

func NewFileRepo(dataDir string) (*FileRepo, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	r := &FileRepo{
		path: filepath.Join(dataDir, "players.json"),
		s:    fileState{Players: map[string]Player{}},
	}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *FileRepo) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	b, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.s = fileState{Players: map[string]Player{}}
			return nil
		}
		return err
	}
	var loaded fileState
	if err := json.Unmarshal(b, &loaded); err != nil {
		return err
	}
	if loaded.Players == nil {
		loaded.Players = map[string]Player{}
	}
	for id, p := range loaded.Players {
		p.Normalize()
		if p.Version <= 0 {
			p.Version = 1
		}
		loaded.Players[id] = p
	}
	r.s = loaded
	return nil
}

func (r *FileRepo) saveLocked() error {
	b, err := json.MarshalIndent(r.s, "", "  ")
	if err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}

func (r *FileRepo) Get(ctx context.Context, id string) (Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.s.Players[id]
	if !ok {
		return Player{}, ErrNotFound
	}
	p.Normalize()
	return clonePlayer(p), nil
}

func (r *FileRepo) Create(ctx context.Context, p Player) (Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.s.Players[p.ID]; ok {
		return Player{}, ErrAlreadyExists
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	p.Version = 1
	p.Normalize()
	r.s.Players[p.ID] = clonePlayer(p)
	if err := r.saveLocked(); err != nil {
		delete(r.s.Players, p.ID)
		return Player{}, err
	}
	return clonePlayer(p), nil
}

func (r *FileRepo) Update(ctx context.Context, p Player) (Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.s.Players[p.ID]
	if !ok {
		return Player{}, ErrNotFound
	}
	if cur.Version != p.Version {
		return Player{}, ErrStale
	}
	p.Version++
	p.Normalize()
	r.s.Players[p.ID] = clonePlayer(p)
	if err := r.saveLocked(); err != nil {
		r.s.Players[p.ID] = cur
		return Player{}, err
	}
	return clonePlayer(p), nil
}

func (r *FileRepo) List(ctx context.Context, page, perPage int) ([]Player, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]Player, 0, len(r.s.Players))
	for _, p := range r.s.Players {
		p.Normalize()
		all = append(all, clonePlayer(p))
	}
	sortForLeaderboard(all)
	out, lastPage := pageOf(all, page, perPage)
	return out, lastPage, nil
}
