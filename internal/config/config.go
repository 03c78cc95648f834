package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Version  string         `yaml:"version" json:"version"`
	Server   ServerConfig   `yaml:"server" json:"server"`
	Balance  Balance        `yaml:"balance" json:"balance"`
	Tutorial TutorialConfig `yaml:"tutorial" json:"tutorial"`
}

type ServerConfig struct {
	Addr    string `yaml:"addr" json:"addr"`
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

type TutorialConfig struct {
	// RedirectPath is where non-onboarded players are sent instead of the
	// game pages.
	RedirectPath string `yaml:"redirect_path" json:"redirect_path"`
}

func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8090"
	}
	if c.Server.DataDir == "" {
		c.Server.DataDir = "data"
	}
	if c.Tutorial.RedirectPath == "" {
		c.Tutorial.RedirectPath = "/intro"
	}
	def := Default()
	if c.Balance.TrainingCostFactor == 0 {
		c.Balance.TrainingCostFactor = def.TrainingCostFactor
	}
	if c.Balance.TrainingEnergyCost == 0 {
		c.Balance.TrainingEnergyCost = def.TrainingEnergyCost
	}
	if c.Balance.TrainingDurationSec == 0 {
		c.Balance.TrainingDurationSec = def.TrainingDurationSec
	}
	if c.Balance.RestRewardPerHour == 0 {
		c.Balance.RestRewardPerHour = def.RestRewardPerHour
	}
	if c.Balance.StartingMoney == 0 {
		c.Balance.StartingMoney = def.StartingMoney
	}
	if c.Balance.StartingEnergy == 0 {
		c.Balance.StartingEnergy = def.StartingEnergy
	}
	if c.Balance.DefaultEnergyMax == 0 {
		c.Balance.DefaultEnergyMax = def.DefaultEnergyMax
	}
	if c.Balance.StartingStatLevel == 0 {
		c.Balance.StartingStatLevel = def.StartingStatLevel
	}
	if c.Balance.StartingXPMax == 0 {
		c.Balance.StartingXPMax = def.StartingXPMax
	}
	if c.Balance.LeaderboardPageSize == 0 {
		c.Balance.LeaderboardPageSize = def.LeaderboardPageSize
	}
}

// Load reads the yaml config at path. A missing file yields the defaults so
// a bare checkout still boots.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c := &Config{}
			c.ApplyDefaults()
			return c, nil
		}
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}
	c.ApplyDefaults()
	return &c, nil
}
