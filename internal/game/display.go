package game

import (
	"fmt"
	"math"
	"time"

	"github.com/Jaybarot21/GlobalCollapse/internal/player"
)

// Countdown is a zero-padded HH/MM/SS decomposition of the remaining
// training time, ready for rendering.
type Countdown struct {
	Hours     string        `json:"hours"`
	Minutes   string        `json:"minutes"`
	Seconds   string        `json:"seconds"`
	Remaining time.Duration `json:"-"`
}

// TrainingCountdown reports the time left on an active training. ok is
// false when the player is not training or the window already elapsed; an
// elapsed window must be observed (and thereby completed) instead of being
// shown as a negative countdown.
func TrainingCountdown(p player.Player, now time.Time) (Countdown, bool) {
	if p.Action.Kind != player.ActionTraining || p.Action.EndsAt == nil {
		return Countdown{}, false
	}
	remaining := p.Action.EndsAt.Sub(now)
	if remaining < 0 {
		return Countdown{}, false
	}
	secs := int(remaining.Seconds())
	return Countdown{
		Hours:     fmt.Sprintf("%02d", secs/3600),
		Minutes:   fmt.Sprintf("%02d", secs/60%60),
		Seconds:   fmt.Sprintf("%02d", secs%60),
		Remaining: remaining,
	}, true
}

// RestingFor describes how long the player has been resting, for UI
// feedback only. The bucketing (minutes under an hour, singular "hour" up
// to 90 minutes, plural beyond) is cosmetic and has no bearing on the
// reward formula.
func RestingFor(p player.Player, now time.Time) (string, bool) {
	if p.Action.Kind != player.ActionResting || p.Action.StartedAt == nil {
		return "", false
	}
	diff := now.Sub(*p.Action.StartedAt).Seconds()
	if diff < 0 {
		diff = -diff
	}
	switch {
	case diff < 3600:
		return fmt.Sprintf("%d minutes", int(math.Round(diff/60))), true
	case diff <= 5400:
		return fmt.Sprintf("%d hour", int(math.Round(diff/3600))), true
	default:
		return fmt.Sprintf("%d hours", int(math.Round(diff/3600))), true
	}
}

// TrainingCosts lists what one session on each stat currently costs.
func (e Engine) TrainingCosts(p player.Player) map[player.Stat]int {
	return map[player.Stat]int{
		player.StatStrength: e.TrainingCost(p.Stats.Strength),
		player.StatStamina:  e.TrainingCost(p.Stats.Stamina),
		player.StatSpeed:    e.TrainingCost(p.Stats.Speed),
	}
}

// XPProgressPct maps the xp band onto 0..100 for a progress bar.
func XPProgressPct(s player.Stats) int {
	span := s.XPMax - s.XPMin
	if span <= 0 {
		return 0
	}
	pct := int(math.Round(float64(s.XP-s.XPMin) / float64(span) * 100))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}
