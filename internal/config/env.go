package config

import (
	"os"
	"strconv"
)

// FromEnv applies environment overrides on top of b.
// COLLAPSE_DIFFICULTY=casual|hard swaps the whole preset first.
func FromEnv(b Balance) Balance {
	switch os.Getenv("COLLAPSE_DIFFICULTY") {
	case "casual":
		b = Casual()
	case "hard":
		b = Hard()
	}

	if val := getEnvInt("COLLAPSE_TRAINING_ENERGY_COST"); val > 0 {
		b.TrainingEnergyCost = val
	}
	if val := getEnvInt("COLLAPSE_TRAINING_DURATION_SEC"); val > 0 {
		b.TrainingDurationSec = val
	}
	if val := getEnvInt("COLLAPSE_REST_REWARD_PER_HOUR"); val > 0 {
		b.RestRewardPerHour = val
	}
	if val := getEnvInt("COLLAPSE_STARTING_MONEY"); val > 0 {
		b.StartingMoney = val
	}
	if val := getEnvInt("COLLAPSE_DEFAULT_ENERGY_MAX"); val > 0 {
		b.DefaultEnergyMax = val
	}
	if val := getEnvFloat("COLLAPSE_TRAINING_COST_FACTOR"); val > 0 {
		b.TrainingCostFactor = val
	}
	return b
}

func getEnvInt(key string) int {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return num
}

func getEnvFloat(key string) float64 {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	num, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0
	}
	return num
}
