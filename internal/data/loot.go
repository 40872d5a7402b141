package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// defaultRarityWeights applies when a boss tier has no entry in the file.
var defaultRarityWeights = map[string]int{
	"common":    60,
	"uncommon":  25,
	"rare":      10,
	"epic":      4,
	"legendary": 1,
}

type tierWeightsEntry struct {
	Tier    int            `yaml:"tier"`
	Weights map[string]int `yaml:"weights"`
}

type lootWeightsFile struct {
	Tiers    []tierWeightsEntry `yaml:"tiers"`
	Fallback []string           `yaml:"fallback"`
}

// LootTable holds per-tier rarity weights and the flat fallback item list
// used when a rarity yields no catalog candidates.
type LootTable struct {
	weights  map[int]map[string]int
	fallback []string
}

// Weights returns the rarity weight table for a boss tier.
func (t *LootTable) Weights(tier int) map[string]int {
	if w, ok := t.weights[tier]; ok && len(w) > 0 {
		return w
	}
	return defaultRarityWeights
}

// Fallback returns the flat global loot item id list.
func (t *LootTable) Fallback() []string {
	return t.fallback
}

// Count returns the number of tiers with explicit weights.
func (t *LootTable) Count() int {
	return len(t.weights)
}

// LoadLootTable loads loot rarity weights from a YAML file.
func LoadLootTable(path string) (*LootTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read loot_weights: %w", err)
	}
	var f lootWeightsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse loot_weights: %w", err)
	}
	t := &LootTable{
		weights:  make(map[int]map[string]int, len(f.Tiers)),
		fallback: f.Fallback,
	}
	for _, entry := range f.Tiers {
		t.weights[entry.Tier] = entry.Weights
	}
	return t, nil
}
