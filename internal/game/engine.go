package game

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/Jaybarot21/GlobalCollapse/internal/config"
	"github.com/Jaybarot21/GlobalCollapse/internal/player"
)

// Engine is the action-economy core: it starts, stops and lazily completes
// the two timed activities and applies every ledger mutation through one
// compare-and-swap write per operation. There is no background timer; a
// finished training resolves the next time the player is observed.
type Engine struct {
	Players player.Repository
	Balance config.Balance
	Clock   Clock
}

func (e Engine) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock.Now()
}

// TrainingCost is what one session on a stat at the given level costs.
func (e Engine) TrainingCost(level int) int {
	return int(math.Round(float64(level) * e.Balance.TrainingCostFactor))
}

// resolveExpired applies the completion path on the snapshot: if a training
// window has elapsed, the trained stat gains +1 and the action clears.
// Reports whether the snapshot changed.
func (e Engine) resolveExpired(p *player.Player, now time.Time) bool {
	if p.Action.Kind != player.ActionTraining || p.Action.EndsAt == nil {
		return false
	}
	if now.Before(*p.Action.EndsAt) {
		return false
	}
	// No affordability re-check at completion: the reward is unconditional.
	p.Stats.Add(p.Action.Stat, 1)
	p.Action = player.NoAction()
	return true
}

// Observe resolves a completed training before anything else may look at the
// player's activity. It is idempotent: once the action transitions to None
// the reward cannot be applied a second time. A lost CAS race is retried
// once because the loser re-reads a snapshot the winner already resolved.
func (e Engine) Observe(ctx context.Context, playerID string) (player.Action, error) {
	for attempt := 0; ; attempt++ {
		p, err := e.Players.Get(ctx, playerID)
		if err != nil {
			return player.Action{}, err
		}
		if !p.TutorialDone {
			return player.Action{}, ErrNotOnboarded
		}
		if !e.resolveExpired(&p, e.now()) {
			return p.Action, nil
		}
		updated, err := e.Players.Update(ctx, p)
		if err != nil {
			if errors.Is(err, player.ErrStale) && attempt == 0 {
				continue
			}
			if errors.Is(err, player.ErrStale) {
				return player.Action{}, ErrStaleState
			}
			return player.Action{}, err
		}
		return updated.Action, nil
	}
}

type TrainingStartResult struct {
	Stat        player.Stat `json:"stat"`
	CostPaid    int         `json:"costPaid"`
	EnergySpent int         `json:"energySpent"`
	StartedAt   time.Time   `json:"startedAt"`
	EndsAt      time.Time   `json:"endsAt"`
	Money       int         `json:"money"`
	Energy      int         `json:"energy"`
}

// StartTraining validates affordability (money before energy, matching the
// original game) and commits the debits together with the Training
// transition as a single write.
func (e Engine) StartTraining(ctx context.Context, playerID string, stat player.Stat) (TrainingStartResult, error) {
	if _, ok := player.ParseStat(string(stat)); !ok {
		return TrainingStartResult{}, ErrUnknownStat
	}

	p, err := e.Players.Get(ctx, playerID)
	if err != nil {
		return TrainingStartResult{}, err
	}
	if !p.TutorialDone {
		return TrainingStartResult{}, ErrNotOnboarded
	}

	now := e.now()
	// A finished training resolves here and commits together with the new
	// start in the same write below.
	e.resolveExpired(&p, now)
	if p.Action.Active() {
		return TrainingStartResult{}, ErrAlreadyBusy
	}

	cost := e.TrainingCost(p.Stats.Level(stat))
	if !p.SpendMoney(cost) {
		return TrainingStartResult{}, ErrInsufficientFunds
	}
	if !p.Stats.SpendEnergy(e.Balance.TrainingEnergyCost) {
		return TrainingStartResult{}, ErrInsufficientEnergy
	}

	startedAt := now
	endsAt := now.Add(e.Balance.TrainingDuration())
	p.Action = player.Action{
		Kind:      player.ActionTraining,
		Stat:      stat,
		StartedAt: &startedAt,
		EndsAt:    &endsAt,
	}

	updated, err := e.Players.Update(ctx, p)
	if err != nil {
		if errors.Is(err, player.ErrStale) {
			return TrainingStartResult{}, ErrStaleState
		}
		return TrainingStartResult{}, err
	}
	return TrainingStartResult{
		Stat:        stat,
		CostPaid:    cost,
		EnergySpent: e.Balance.TrainingEnergyCost,
		StartedAt:   startedAt,
		EndsAt:      endsAt,
		Money:       updated.Money,
		Energy:      updated.Stats.Energy,
	}, nil
}

type RestStartResult struct {
	StartedAt time.Time `json:"startedAt"`
}

// StartResting opens an unbounded rest. No cost, no end time; it lasts until
// the player explicitly stops.
func (e Engine) StartResting(ctx context.Context, playerID string) (RestStartResult, error) {
	p, err := e.Players.Get(ctx, playerID)
	if err != nil {
		return RestStartResult{}, err
	}
	if !p.TutorialDone {
		return RestStartResult{}, ErrNotOnboarded
	}

	now := e.now()
	e.resolveExpired(&p, now)
	if p.Action.Active() {
		return RestStartResult{}, ErrAlreadyBusy
	}

	startedAt := now
	p.Action = player.Action{
		Kind:      player.ActionResting,
		StartedAt: &startedAt,
	}
	if _, err := e.Players.Update(ctx, p); err != nil {
		if errors.Is(err, player.ErrStale) {
			return RestStartResult{}, ErrStaleState
		}
		return RestStartResult{}, err
	}
	return RestStartResult{StartedAt: startedAt}, nil
}

type RestStopResult struct {
	Reward   int           `json:"reward"`
	Credited int           `json:"credited"`
	Energy   int           `json:"energy"`
	Rested   time.Duration `json:"-"`
}

// StopResting ends the rest and credits 25 energy per rounded hour rested,
// clipped at the energy ceiling. The rounding intentionally truncates rests
// under ~30 minutes to a zero reward; that is the original game's behavior.
func (e Engine) StopResting(ctx context.Context, playerID string) (RestStopResult, error) {
	p, err := e.Players.Get(ctx, playerID)
	if err != nil {
		return RestStopResult{}, err
	}
	if !p.TutorialDone {
		return RestStopResult{}, ErrNotOnboarded
	}
	if p.Action.Kind != player.ActionResting || p.Action.StartedAt == nil {
		return RestStopResult{}, ErrNotResting
	}

	// Elapsed time comes from the pre-transition StartedAt.
	elapsed := e.now().Sub(*p.Action.StartedAt)
	p.Action = player.NoAction()

	reward := e.Balance.RestRewardPerHour * int(math.Round(elapsed.Seconds()/3600))
	credited := p.Stats.CreditEnergy(reward)

	updated, err := e.Players.Update(ctx, p)
	if err != nil {
		if errors.Is(err, player.ErrStale) {
			return RestStopResult{}, ErrStaleState
		}
		return RestStopResult{}, err
	}
	return RestStopResult{
		Reward:   reward,
		Credited: credited,
		Energy:   updated.Stats.Energy,
		Rested:   elapsed,
	}, nil
}

type Allocation struct {
	Strength int `json:"strength"`
	Stamina  int `json:"stamina"`
	Speed    int `json:"speed"`
}

func (a Allocation) Sum() int {
	return a.Strength + a.Stamina + a.Speed
}

type AllocateResult struct {
	Spent       int          `json:"spent"`
	Skillpoints int          `json:"skillpoints"`
	Stats       player.Stats `json:"stats"`
}

// AllocateSkillpoints commits a one-shot spend of unspent skillpoints across
// the three stats. The client submits the per-stat deltas and the total it
// believes it spent; any inconsistency between the two, or with the actual
// balance, rejects the whole allocation untouched.
func (e Engine) AllocateSkillpoints(ctx context.Context, playerID string, alloc Allocation, claimedTotal int) (AllocateResult, error) {
	p, err := e.Players.Get(ctx, playerID)
	if err != nil {
		return AllocateResult{}, err
	}
	if !p.TutorialDone {
		return AllocateResult{}, ErrNotOnboarded
	}

	if claimedTotal <= 0 || p.Skillpoints <= 0 {
		return AllocateResult{}, ErrMismatch
	}
	if alloc.Strength < 0 || alloc.Stamina < 0 || alloc.Speed < 0 {
		return AllocateResult{}, ErrMismatch
	}
	if alloc.Sum() != claimedTotal || claimedTotal > p.Skillpoints {
		return AllocateResult{}, ErrMismatch
	}

	p.Skillpoints -= claimedTotal
	p.Stats.Add(player.StatStrength, alloc.Strength)
	p.Stats.Add(player.StatStamina, alloc.Stamina)
	p.Stats.Add(player.StatSpeed, alloc.Speed)

	updated, err := e.Players.Update(ctx, p)
	if err != nil {
		if errors.Is(err, player.ErrStale) {
			return AllocateResult{}, ErrStaleState
		}
		return AllocateResult{}, err
	}
	return AllocateResult{
		Spent:       claimedTotal,
		Skillpoints: updated.Skillpoints,
		Stats:       updated.Stats,
	}, nil
}
