package boss

import "math/rand"

// defaultTierWeights is the built-in tier distribution used when the
// configured table is missing or unusable.
var defaultTierWeights = []int{50, 25, 15, 7, 3}

// PickTier samples a boss tier from a weighted table. weights[n] is the
// weight of tier n+1; entries beyond maxTier are ignored. An empty or
// all-zero table falls back to the built-in distribution. The result is
// always in [1, maxTier].
func PickTier(rng *rand.Rand, weights []int, maxTier int) int {
	if maxTier < 1 {
		maxTier = 1
	}

	pool := expandWeights(weights, maxTier)
	if len(pool) == 0 {
		pool = expandWeights(defaultTierWeights, maxTier)
	}
	if len(pool) == 0 {
		return 1
	}
	return pool[rng.Intn(len(pool))]
}

// expandWeights expands a weight table into a sampling pool of tiers.
func expandWeights(weights []int, maxTier int) []int {
	var pool []int
	for i, w := range weights {
		tier := i + 1
		if tier > maxTier {
			break
		}
		for n := 0; n < w; n++ {
			pool = append(pool, tier)
		}
	}
	return pool
}

// ScaledHP returns floor(baseHP * (1 + (tier-1) * growth)).
func ScaledHP(baseHP int32, tier int, growth float64) int32 {
	return int32(float64(baseHP) * (1 + float64(tier-1)*growth))
}
