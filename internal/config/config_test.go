package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.Server.Addr)
	assert.Equal(t, "data", cfg.Server.DataDir)
	assert.Equal(t, "/intro", cfg.Tutorial.RedirectPath)
	assert.Equal(t, Default(), cfg.Balance)
}

func TestLoad_PartialFileFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collapse_config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
version: "1"
server:
  addr: ":9999"
balance:
  training_energy_cost: 20
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1", cfg.Version)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, "data", cfg.Server.DataDir)
	assert.Equal(t, 20, cfg.Balance.TrainingEnergyCost)
	assert.Equal(t, 0.75, cfg.Balance.TrainingCostFactor)
	assert.Equal(t, 1800, cfg.Balance.TrainingDurationSec)
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "collapse_config.yml")
	require.NoError(t, os.WriteFile(path, []byte("{not yaml"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestTrainingDuration(t *testing.T) {
	assert.Equal(t, 30*time.Minute, Default().TrainingDuration())
}

func TestPresets(t *testing.T) {
	def := Default()
	casual := Casual()
	hard := Hard()

	assert.Less(t, casual.TrainingCostFactor, def.TrainingCostFactor)
	assert.Greater(t, casual.StartingMoney, def.StartingMoney)
	assert.Greater(t, hard.TrainingCostFactor, def.TrainingCostFactor)
	assert.Less(t, hard.StartingMoney, def.StartingMoney)
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("COLLAPSE_TRAINING_ENERGY_COST", "12")
	t.Setenv("COLLAPSE_TRAINING_DURATION_SEC", "600")
	t.Setenv("COLLAPSE_TRAINING_COST_FACTOR", "1.25")

	b := FromEnv(Default())
	assert.Equal(t, 12, b.TrainingEnergyCost)
	assert.Equal(t, 600, b.TrainingDurationSec)
	assert.Equal(t, 1.25, b.TrainingCostFactor)
	assert.Equal(t, 25, b.RestRewardPerHour)
}

func TestFromEnv_DifficultyPreset(t *testing.T) {
	t.Setenv("COLLAPSE_DIFFICULTY", "casual")
	assert.Equal(t, Casual(), FromEnv(Default()))

	t.Setenv("COLLAPSE_DIFFICULTY", "hard")
	t.Setenv("COLLAPSE_STARTING_MONEY", "75")
	b := FromEnv(Default())
	assert.Equal(t, 1.0, b.TrainingCostFactor)
	assert.Equal(t, 75, b.StartingMoney)
}

func TestFromEnv_IgnoresGarbage(t *testing.T) {
	t.Setenv("COLLAPSE_TRAINING_ENERGY_COST", "lots")
	t.Setenv("COLLAPSE_DIFFICULTY", "nightmare")

	assert.Equal(t, Default(), FromEnv(Default()))
}
