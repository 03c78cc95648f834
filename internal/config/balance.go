package config

import "time"

// Balance holds gameplay balance configuration. The engine reads every
// tunable from here instead of hardcoding it.
type Balance struct {
	// Training
	TrainingCostFactor  float64 `yaml:"training_cost_factor" json:"training_cost_factor"`
	TrainingEnergyCost  int     `yaml:"training_energy_cost" json:"training_energy_cost"`
	TrainingDurationSec int     `yaml:"training_duration_sec" json:"training_duration_sec"`

	// Resting
	RestRewardPerHour int `yaml:"rest_reward_per_hour" json:"rest_reward_per_hour"`

	// New player starting values
	StartingMoney     int `yaml:"starting_money" json:"starting_money"`
	StartingEnergy    int `yaml:"starting_energy" json:"starting_energy"`
	DefaultEnergyMax  int `yaml:"default_energy_max" json:"default_energy_max"`
	StartingStatLevel int `yaml:"starting_stat_level" json:"starting_stat_level"`
	StartingXPMax     int `yaml:"starting_xp_max" json:"starting_xp_max"`

	// Presentation
	LeaderboardPageSize int `yaml:"leaderboard_page_size" json:"leaderboard_page_size"`
}

// Default returns the default balance configuration.
func Default() Balance {
	return Balance{
		TrainingCostFactor:  0.75,
		TrainingEnergyCost:  10,
		TrainingDurationSec: 1800,
		RestRewardPerHour:   25,
		StartingMoney:       100,
		StartingEnergy:      100,
		DefaultEnergyMax:    100,
		StartingStatLevel:   1,
		StartingXPMax:       100,
		LeaderboardPageSize: 10,
	}
}

// Casual halves training friction for private servers.
func Casual() Balance {
	cfg := Default()
	cfg.TrainingCostFactor = 0.5
	cfg.TrainingEnergyCost = 5
	cfg.RestRewardPerHour = 50
	cfg.StartingMoney = 250
	return cfg
}

// Hard makes every stat point expensive.
func Hard() Balance {
	cfg := Default()
	cfg.TrainingCostFactor = 1.0
	cfg.TrainingEnergyCost = 15
	cfg.RestRewardPerHour = 15
	cfg.StartingMoney = 50
	return cfg
}

func (b Balance) TrainingDuration() time.Duration {
	return time.Duration(b.TrainingDurationSec) * time.Second
}
