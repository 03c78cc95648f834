package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/Jaybarot21/GlobalCollapse/internal/player"
)

type Handler struct {
	engine           Engine
	redirectPath     string
	playerIDResolver func(*http.Request) string
}

func NewHandler(engine Engine, redirectPath string) *Handler {
	if redirectPath == "" {
		redirectPath = "/intro"
	}
	return &Handler{engine: engine, redirectPath: redirectPath}
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

// writeEngineErr maps every expected engine failure to a distinct message.
func (h *Handler) writeEngineErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":  "Not enough money",
			"reason": "insufficient_funds",
		})
	case errors.Is(err, ErrInsufficientEnergy):
		writeJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":  "Not enough energy",
			"reason": "insufficient_energy",
		})
	case errors.Is(err, ErrAlreadyBusy):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "You are already busy with another activity",
			"reason": "already_busy",
		})
	case errors.Is(err, ErrNotResting):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "You are not resting",
			"reason": "not_resting",
		})
	case errors.Is(err, ErrMismatch):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "Invalid stats, try again.",
			"reason": "mismatch",
		})
	case errors.Is(err, ErrStaleState):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":  "Your state changed in the meantime, please retry",
			"reason": "stale_state",
		})
	case errors.Is(err, ErrNotOnboarded):
		writeJSON(w, http.StatusForbidden, map[string]any{
			"error":    "Finish the tutorial first",
			"reason":   "not_onboarded",
			"redirect": h.redirectPath,
		})
	case errors.Is(err, ErrUnknownStat):
		writeErr(w, http.StatusBadRequest, "unknown stat")
	case errors.Is(err, player.ErrNotFound):
		writeErr(w, http.StatusNotFound, "player not found")
	default:
		writeErr(w, http.StatusInternalServerError, "operation failed")
	}
}

// GET /api/actions
//
// Observes the player (resolving a finished training) and returns
// everything the activity pages render: current action, countdown or
// resting duration, per-stat training costs and the xp progress band.
func (h *Handler) Actions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := h.playerID(r)
	if id == "" {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	action, err := h.engine.Observe(r.Context(), id)
	if err != nil {
		h.writeEngineErr(w, err)
		return
	}
	p, err := h.engine.Players.Get(r.Context(), id)
	if err != nil {
		h.writeEngineErr(w, err)
		return
	}

	resp := map[string]any{
		"action":      action,
		"money":       p.Money,
		"energy":      p.Stats.Energy,
		"energyMax":   p.Stats.EnergyMax,
		"skillpoints": p.Skillpoints,
		"costs":       h.engine.TrainingCosts(p),
		"xpProgress":  XPProgressPct(p.Stats),
	}
	now := h.engine.now()
	if cd, ok := TrainingCountdown(p, now); ok {
		resp["countdown"] = cd
	}
	if rf, ok := RestingFor(p, now); ok {
		resp["restingFor"] = rf
	}
	writeJSON(w, http.StatusOK, resp)
}

// POST /api/training/start
func (h *Handler) TrainingStart(w http.ResponseWriter, r *http.Request) {
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
		Stat string `json:"stat"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	stat, ok := player.ParseStat(in.Stat)
	if !ok {
		writeErr(w, http.StatusBadRequest, "unknown stat")
		return
	}

	res, err := h.engine.StartTraining(r.Context(), id, stat)
	if err != nil {
		h.writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": fmt.Sprintf("Training started for %d money and %d energy", res.CostPaid, res.EnergySpent),
		"result":  res,
	})
}

// POST /api/rest/start
func (h *Handler) RestStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := h.playerID(r)
	if id == "" {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := h.engine.StartResting(r.Context(), id)
	if err != nil {
		h.writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": "You went to rest",
		"result":  res,
	})
}

// POST /api/rest/stop
func (h *Handler) RestStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := h.playerID(r)
	if id == "" {
		writeErr(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := h.engine.StopResting(r.Context(), id)
	if err != nil {
		h.writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": fmt.Sprintf("You regained %d energy", res.Reward),
		"result":  res,
	})
}

// POST /api/skillpoints/allocate
func (h *Handler) SkillpointsAllocate(w http.ResponseWriter, r *http.Request) {
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
		Strength int `json:"strength"`
		Stamina  int `json:"stamina"`
		Speed    int `json:"speed"`
		Total    int `json:"total"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}

	res, err := h.engine.AllocateSkillpoints(r.Context(), id, Allocation{
		Strength: in.Strength,
		Stamina:  in.Stamina,
		Speed:    in.Speed,
	}, in.Total)
	if err != nil {
		h.writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": fmt.Sprintf("Skillpoints successfully assigned (%d spent)", res.Spent),
		"result":  res,
	})
}
