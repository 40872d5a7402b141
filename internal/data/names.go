package data

import (
	"fmt"
	"math/rand"
	"os"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// builtinBossNames is used when a biome has no entry and the file
// defines no default list.
var builtinBossNames = []string{
	"ancient wyrm", "dread colossus", "hollow king",
}

type biomeNamesEntry struct {
	Biome string   `yaml:"biome"`
	Names []string `yaml:"names"`
}

type bossNamesFile struct {
	Biomes  []biomeNamesEntry `yaml:"biomes"`
	Default []string          `yaml:"default"`
}

// NameTable holds boss name pools indexed by guild biome.
// Names are stored lowercase and title-cased on pick.
type NameTable struct {
	byBiome map[string][]string
	def     []string
	caser   cases.Caser
}

// Count returns the number of biomes with a name pool.
func (t *NameTable) Count() int {
	return len(t.byBiome)
}

// Pick returns a random display name for a boss spawning in the given biome.
// Unknown biomes fall back to the default pool.
func (t *NameTable) Pick(rng *rand.Rand, biome string) string {
	pool := t.byBiome[biome]
	if len(pool) == 0 {
		pool = t.def
	}
	if len(pool) == 0 {
		pool = builtinBossNames
	}
	return t.caser.String(pool[rng.Intn(len(pool))])
}

// LoadNameTable loads boss name pools from a YAML file.
func LoadNameTable(path string) (*NameTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read boss_names: %w", err)
	}
	var f bossNamesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse boss_names: %w", err)
	}
	t := &NameTable{
		byBiome: make(map[string][]string, len(f.Biomes)),
		def:     f.Default,
		caser:   cases.Title(language.English),
	}
	for _, entry := range f.Biomes {
		t.byBiome[entry.Biome] = entry.Names
	}
	return t, nil
}
