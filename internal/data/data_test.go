package data

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadNameTable(t *testing.T) {
	path := writeYAML(t, "boss_names.yaml", `
biomes:
  - biome: forest
    names: ["mossback alpha", "thorn regent"]
  - biome: tundra
    names: ["frost maw"]
default: ["ancient wyrm"]
`)
	table, err := LoadNameTable(path)
	require.NoError(t, err)
	assert.Equal(t, 2, table.Count())

	rng := rand.New(rand.NewSource(1))
	got := table.Pick(rng, "tundra")
	assert.Equal(t, "Frost Maw", got)

	// Unknown biome falls back to the default pool.
	assert.Equal(t, "Ancient Wyrm", table.Pick(rng, "volcano"))
}

func TestNameTableBuiltinFallback(t *testing.T) {
	path := writeYAML(t, "boss_names.yaml", `biomes: []`)
	table, err := LoadNameTable(path)
	require.NoError(t, err)

	rng := rand.New(rand.NewSource(1))
	assert.NotEmpty(t, table.Pick(rng, "anywhere"))
}

func TestLoadCatalog(t *testing.T) {
	path := writeYAML(t, "item_catalog.yaml", `
rarity_multipliers:
  common: 1.0
  rare: 1.25
items:
  - id: iron_sword
    name: Iron Sword
    rarity: common
    tradable: true
  - id: healing_draught
    name: Healing Draught
    rarity: common
    tradable: true
    consumable: true
  - id: gilded_carriage
    name: Gilded Carriage
    rarity: rare
    tradable: true
    vehicle: true
  - id: bound_ring
    name: Bound Ring
    rarity: rare
    tradable: false
  - id: phoenix_plume
    name: Phoenix Plume
    rarity: rare
    tradable: true
    premium: true
`)
	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, 5, c.Count())

	require.NotNil(t, c.Get("iron_sword"))
	assert.Nil(t, c.Get("nope"))

	assert.Equal(t, 1.25, c.RarityMultiplier("rare"))
	assert.Equal(t, 1.0, c.RarityMultiplier("unknown"))
	assert.Equal(t, 1.0, c.RarityMultiplier(""))

	// Consumables, vehicles and non-tradables never drop as loot.
	common := c.Lootable("common", false)
	require.Len(t, common, 1)
	assert.Equal(t, "iron_sword", common[0].ID)

	// Premium gating applies per participant.
	assert.Empty(t, c.Lootable("rare", false))
	rare := c.Lootable("rare", true)
	require.Len(t, rare, 1)
	assert.Equal(t, "phoenix_plume", rare[0].ID)
}

func TestLoadLootTable(t *testing.T) {
	path := writeYAML(t, "loot_weights.yaml", `
tiers:
  - tier: 1
    weights:
      common: 80
      uncommon: 20
fallback:
  - old_trinket
`)
	table, err := LoadLootTable(path)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Count())

	w := table.Weights(1)
	assert.Equal(t, 80, w["common"])
	assert.Equal(t, 20, w["uncommon"])

	// Tiers without an entry use the built-in distribution.
	def := table.Weights(4)
	assert.Equal(t, 60, def["common"])
	assert.Equal(t, 1, def["legendary"])

	assert.Equal(t, []string{"old_trinket"}, table.Fallback())
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := LoadNameTable("nope.yaml")
	assert.Error(t, err)
	_, err = LoadCatalog("nope.yaml")
	assert.Error(t, err)
	_, err = LoadLootTable("nope.yaml")
	assert.Error(t, err)
}
