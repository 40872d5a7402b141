package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rarities lists the known item rarities from weakest to strongest.
// Weighted sampling walks this slice so map iteration order never leaks
// into loot rolls.
var Rarities = []string{"common", "uncommon", "rare", "epic", "legendary"}

// Item is one catalog entry. Lootable items are tradable, non-consumable,
// non-vehicle; premium-gated items drop only for premium participants.
type Item struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Rarity     string `yaml:"rarity"`
	Tradable   bool   `yaml:"tradable"`
	Consumable bool   `yaml:"consumable"`
	Vehicle    bool   `yaml:"vehicle"`
	Premium    bool   `yaml:"premium"`
}

type catalogFile struct {
	RarityMultipliers map[string]float64 `yaml:"rarity_multipliers"`
	Items             []Item             `yaml:"items"`
}

// Catalog holds the item catalog and the weapon rarity multiplier table.
type Catalog struct {
	items       map[string]Item
	byRarity    map[string][]Item
	multipliers map[string]float64
}

// Get returns a catalog item by id, or nil if unknown.
func (c *Catalog) Get(id string) *Item {
	it, ok := c.items[id]
	if !ok {
		return nil
	}
	return &it
}

// Count returns the number of catalog items.
func (c *Catalog) Count() int {
	return len(c.items)
}

// RarityMultiplier returns the damage multiplier for a weapon rarity.
// Unknown or empty rarity is treated as common (1.0).
func (c *Catalog) RarityMultiplier(rarity string) float64 {
	if m, ok := c.multipliers[rarity]; ok {
		return m
	}
	return 1.0
}

// Lootable returns the catalog items of a rarity that may drop as boss loot.
// Premium-gated items are excluded for non-premium participants.
func (c *Catalog) Lootable(rarity string, premium bool) []Item {
	var out []Item
	for _, it := range c.byRarity[rarity] {
		if it.Premium && !premium {
			continue
		}
		out = append(out, it)
	}
	return out
}

// LoadCatalog loads the item catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read item_catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse item_catalog: %w", err)
	}
	c := &Catalog{
		items:       make(map[string]Item, len(f.Items)),
		byRarity:    make(map[string][]Item),
		multipliers: f.RarityMultipliers,
	}
	for _, it := range f.Items {
		c.items[it.ID] = it
		if it.Tradable && !it.Consumable && !it.Vehicle {
			c.byRarity[it.Rarity] = append(c.byRarity[it.Rarity], it)
		}
	}
	return c, nil
}
