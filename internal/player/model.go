package player

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("player not found")
	ErrStale         = errors.New("player record changed since it was read")
	ErrAlreadyExists = errors.New("player already exists")
)

// Stat identifies one of the three trainable stats. The set is closed;
// anything else is rejected by ParseStat.
type Stat string

const (
	StatStrength Stat = "strength"
	StatStamina  Stat = "stamina"
	StatSpeed    Stat = "speed"
)

func ParseStat(s string) (Stat, bool) {
	switch Stat(s) {
	case StatStrength, StatStamina, StatSpeed:
		return Stat(s), true
	}
	return "", false
}

type ActionKind string

const (
	ActionNone     ActionKind = "none"
	ActionTraining ActionKind = "training"
	ActionResting  ActionKind = "resting"
)

// Action is the per-player record of the currently active timed activity.
// StartedAt is set iff Kind != ActionNone; EndsAt and Stat are set only
// while training.
type Action struct {
	Kind      ActionKind `json:"kind"`
	Stat      Stat       `json:"stat,omitempty"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	EndsAt    *time.Time `json:"endsAt,omitempty"`
}

func NoAction() Action {
	return Action{Kind: ActionNone}
}

func (a Action) Active() bool {
	return a.Kind == ActionTraining || a.Kind == ActionResting
}

// Stats is the regenerating/spendable part of the ledger plus the xp band
// bounding the current level's progress.
type Stats struct {
	Energy    int `json:"energy"`
	EnergyMax int `json:"energyMax"`
	Strength  int `json:"strength"`
	Stamina   int `json:"stamina"`
	Speed     int `json:"speed"`
	XP        int `json:"xp"`
	XPMin     int `json:"xpMin"`
	XPMax     int `json:"xpMax"`
}

// Level returns the current level of st. Unknown stats read as 0; callers
// validate with ParseStat before dispatching.
func (s *Stats) Level(st Stat) int {
	switch st {
	case StatStrength:
		return s.Strength
	case StatStamina:
		return s.Stamina
	case StatSpeed:
		return s.Speed
	}
	return 0
}

func (s *Stats) Add(st Stat, n int) {
	switch st {
	case StatStrength:
		s.Strength += n
	case StatStamina:
		s.Stamina += n
	case StatSpeed:
		s.Speed += n
	}
}

// SpendEnergy debits amount if the balance covers it.
func (s *Stats) SpendEnergy(amount int) bool {
	if amount < 0 || s.Energy < amount {
		return false
	}
	s.Energy -= amount
	return true
}

// CreditEnergy adds amount clipped at EnergyMax and returns how much was
// actually credited.
func (s *Stats) CreditEnergy(amount int) int {
	if amount <= 0 {
		return 0
	}
	before := s.Energy
	s.Energy += amount
	if s.Energy > s.EnergyMax {
		s.Energy = s.EnergyMax
	}
	return s.Energy - before
}

// Total is the leaderboard ranking value.
func (s *Stats) Total() int {
	return s.Strength + s.Stamina + s.Speed
}

const (
	AvatarMin = 1
	AvatarMax = 21
)

// Player owns one ledger and one action state for the lifetime of the
// account. Version is the optimistic concurrency token: Repository.Update
// refuses to write when the stored version moved since the read.
type Player struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Avatar       int       `json:"avatar"`
	Money        int       `json:"money"`
	Skillpoints  int       `json:"skillpoints"`
	TutorialDone bool      `json:"tutorialDone"`
	CreatedAt    time.Time `json:"createdAt"`
	Stats        Stats     `json:"stats"`
	Action       Action    `json:"action"`
	Version      int64     `json:"version"`
}

// SpendMoney debits amount if the balance covers it.
func (p *Player) SpendMoney(amount int) bool {
	if amount < 0 || p.Money < amount {
		return false
	}
	p.Money -= amount
	return true
}

// Normalize clamps loaded records into their invariants. Repos call this on
// every read path so a hand-edited data file cannot smuggle in a negative
// balance or an out-of-range avatar.
func (p *Player) Normalize() {
	if p.Avatar < AvatarMin || p.Avatar > AvatarMax {
		p.Avatar = AvatarMin
	}
	if p.Money < 0 {
		p.Money = 0
	}
	if p.Skillpoints < 0 {
		p.Skillpoints = 0
	}
	if p.Stats.EnergyMax <= 0 {
		p.Stats.EnergyMax = 100
	}
	if p.Stats.Energy < 0 {
		p.Stats.Energy = 0
	}
	if p.Stats.Energy > p.Stats.EnergyMax {
		p.Stats.Energy = p.Stats.EnergyMax
	}
	if p.Stats.Strength < 0 {
		p.Stats.Strength = 0
	}
	if p.Stats.Stamina < 0 {
		p.Stats.Stamina = 0
	}
	if p.Stats.Speed < 0 {
		p.Stats.Speed = 0
	}
	if p.Action.Kind == "" {
		p.Action = NoAction()
	}
	switch p.Action.Kind {
	case ActionTraining:
		if p.Action.StartedAt == nil || p.Action.EndsAt == nil {
			p.Action = NoAction()
		}
	case ActionResting:
		p.Action.Stat = ""
		p.Action.EndsAt = nil
		if p.Action.StartedAt == nil {
			p.Action = NoAction()
		}
	default:
		p.Action = NoAction()
	}
}
