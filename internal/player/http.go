package player

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

type Handler struct {
	repo             Repository
	pageSize         int
	playerIDResolver func(*http.Request) string
}

func NewHandler(repo Repository, pageSize int) *Handler {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &Handler{repo: repo, pageSize: pageSize}
}

func (h *Handler) SetPlayerIDResolver(fn func(*http.Request) string) {
	h.playerIDResolver = fn
}

func (h *Handler) playerID(r *http.Request) string {
	if h.playerIDResolver == nil {
		return ""
	}
	return h.playerIDResolver(r)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

func decodeJSON(r *http.Request, out any) error {
	return json.NewDecoder(r.Body).Decode(out)
}

// GET /api/player/state
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := h.playerID(r)
	if id == "" {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	p, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeErr(w, http.StatusNotFound, "player not found")
			return
		}
		writeErr(w, http.StatusInternalServerError, "could not load player")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// POST /api/player/avatar
func (h *Handler) Avatar(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := h.playerID(r)
	if id == "" {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var in struct {
		Avatar int `json:"avatar"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.Avatar < AvatarMin || in.Avatar > AvatarMax {
		writeErr(w, http.StatusBadRequest, "avatar out of range")
		return
	}

	p, err := h.updateWithRetry(r, id, func(p *Player) {
		p.Avatar = in.Avatar
	})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "could not change avatar")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "Avatar changed",
		"avatar":  p.Avatar,
	})
}

// POST /api/player/tutorial
//
// Flips the one-time onboarding flag. Until this happens every activity and
// resource operation is refused.
func (h *Handler) FinishTutorial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := h.playerID(r)
	if id == "" {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if _, err := h.updateWithRetry(r, id, func(p *Player) {
		p.TutorialDone = true
	}); err != nil {
		writeErr(w, http.StatusInternalServerError, "could not complete tutorial")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// updateWithRetry applies a cosmetic mutation under the CAS protocol,
// re-reading once on a version conflict. Only used for fields the engines
// never touch.
func (h *Handler) updateWithRetry(r *http.Request, id string, mutate func(*Player)) (Player, error) {
	for attempt := 0; ; attempt++ {
		p, err := h.repo.Get(r.Context(), id)
		if err != nil {
			return Player{}, err
		}
		mutate(&p)
		updated, err := h.repo.Update(r.Context(), p)
		if err != nil {
			if errors.Is(err, ErrStale) && attempt == 0 {
				continue
			}
			return Player{}, err
		}
		return updated, nil
	}
}

type leaderboardRow struct {
	Name     string `json:"name"`
	Avatar   int    `json:"avatar"`
	Strength int    `json:"strength"`
	Stamina  int    `json:"stamina"`
	Speed    int    `json:"speed"`
	Total    int    `json:"total"`
}

// GET /api/leaderboard?page=N
func (h *Handler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page <= 0 {
		page = 1
	}

	players, lastPage, err := h.repo.List(r.Context(), page, h.pageSize)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, "could not load leaderboard")
		return
	}
	rows := make([]leaderboardRow, 0, len(players))
	for _, p := range players {
		rows = append(rows, leaderboardRow{
			Name:     p.Name,
			Avatar:   p.Avatar,
			Strength: p.Stats.Strength,
			Stamina:  p.Stats.Stamina,
			Speed:    p.Stats.Speed,
			Total:    p.Stats.Total(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"players":  rows,
		"page":     page,
		"lastPage": lastPage,
	})
}
