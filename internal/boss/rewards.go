package boss

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/wyrmwatch/server/internal/config"
	"github.com/wyrmwatch/server/internal/data"
	"go.uber.org/zap"
)

// Distributor settles boss defeats exactly once. The whole sequence —
// still-active check, loot rolls, coin credit, kill counters, participant
// wipe, fighter marker drop — runs as a single store transaction keyed by
// the reward log, so a crash mid-distribution can neither double-pay nor
// strand a half-paid boss.
type Distributor struct {
	enc      EncounterStore
	catalog  *data.Catalog
	loot     *data.LootTable
	oracle   PremiumOracle
	sync     *Synchronizer
	notifier Notifier
	hooks    Hooks
	cfg      config.RewardsConfig
	log      *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewDistributor(enc EncounterStore, catalog *data.Catalog, loot *data.LootTable, oracle PremiumOracle, sync *Synchronizer, notifier Notifier, hooks Hooks, cfg config.RewardsConfig, rng *rand.Rand, log *zap.Logger) *Distributor {
	return &Distributor{
		enc:      enc,
		catalog:  catalog,
		loot:     loot,
		oracle:   oracle,
		sync:     sync,
		notifier: notifier,
		hooks:    hooks,
		cfg:      cfg,
		log:      log,
		rng:      rng,
	}
}

// Distribute settles one defeated boss. Participant order never affects
// anyone's payout. Re-invoking on an already-settled boss is a no-op.
func (d *Distributor) Distribute(ctx context.Context, bossID int64) (*Settlement, error) {
	// Resolve premium eligibility before entering the transaction: the
	// oracle is an external call and must not run inside it. Participants
	// who join between this read and the settlement lock fall back to the
	// stored premium flag inside the plan.
	premium := d.resolvePremium(ctx, bossID)

	settlement, err := d.enc.SettleDefeat(ctx, bossID, func(b Boss, parts []Participant, stored map[string]bool) []Award {
		awards := make([]Award, 0, len(parts))
		for _, p := range parts {
			prem, ok := premium[p.UserID]
			if !ok {
				prem = stored[p.UserID]
			}
			awards = append(awards, Award{
				UserID: p.UserID,
				Coins:  d.cfg.CoinsPerTier * int64(b.Tier),
				Items:  d.rollLoot(int(b.Tier), prem),
			})
		}
		return awards
	})
	if err != nil {
		return nil, fmt.Errorf("settle boss %d: %w", bossID, err)
	}
	if !settlement.Settled {
		return settlement, nil
	}

	d.afterSettlement(ctx, settlement)

	d.log.Info("boss rewards distributed",
		zap.Int64("boss_id", bossID),
		zap.Int16("tier", settlement.Boss.Tier),
		zap.Int("participants", len(settlement.Awards)))
	return settlement, nil
}

// rollLoot rolls 3-5 items (configurable). Each roll picks a rarity from
// the tier-indexed weight table, then a uniform lootable catalog item of
// that rarity; no candidate falls through to the flat global table, and
// an empty fallback yields nothing for that roll.
func (d *Distributor) rollLoot(tier int, premium bool) map[string]int {
	d.mu.Lock()
	defer d.mu.Unlock()

	items := make(map[string]int)
	rolls := d.cfg.LootRollsMin
	if spread := d.cfg.LootRollsMax - d.cfg.LootRollsMin; spread > 0 {
		rolls += d.rng.Intn(spread + 1)
	}
	for i := 0; i < rolls; i++ {
		rarity := pickRarity(d.rng, d.loot.Weights(tier))
		candidates := d.catalog.Lootable(rarity, premium)
		if len(candidates) > 0 {
			items[candidates[d.rng.Intn(len(candidates))].ID]++
			continue
		}
		if id, ok := d.fallbackItem(premium); ok {
			items[id]++
		}
	}
	return items
}

func (d *Distributor) fallbackItem(premium bool) (string, bool) {
	var pool []string
	for _, id := range d.loot.Fallback() {
		it := d.catalog.Get(id)
		if it == nil || (it.Premium && !premium) {
			continue
		}
		pool = append(pool, id)
	}
	if len(pool) == 0 {
		return "", false
	}
	return pool[d.rng.Intn(len(pool))], true
}

// pickRarity samples a rarity from a weight table. Iteration order must
// not matter, so keys are walked in a fixed order.
func pickRarity(rng *rand.Rand, weights map[string]int) string {
	total := 0
	for _, rarity := range data.Rarities {
		if w := weights[rarity]; w > 0 {
			total += w
		}
	}
	if total == 0 {
		return "common"
	}
	n := rng.Intn(total)
	for _, rarity := range data.Rarities {
		w := weights[rarity]
		if w <= 0 {
			continue
		}
		if n < w {
			return rarity
		}
		n -= w
	}
	return "common"
}

func (d *Distributor) resolvePremium(ctx context.Context, bossID int64) map[string]bool {
	premium := make(map[string]bool)
	if d.oracle == nil {
		return premium
	}
	parts, err := d.enc.Participants(ctx, bossID)
	if err != nil {
		d.log.Warn("participant pre-read failed, using stored premium flags",
			zap.Int64("boss_id", bossID), zap.Error(err))
		return premium
	}
	for _, p := range parts {
		prem, err := d.oracle.IsPremium(ctx, p.UserID)
		if err != nil {
			d.log.Warn("premium oracle failed, using stored flag",
				zap.String("user", p.UserID), zap.Error(err))
			continue
		}
		premium[p.UserID] = prem
	}
	return premium
}

// afterSettlement runs the best-effort side effects outside the
// transaction: platform role revokes, achievement checks, defeat
// announcement.
func (d *Distributor) afterSettlement(ctx context.Context, s *Settlement) {
	d.sync.NotifyRevoked(ctx, s.Released)

	if d.hooks.Achievements != nil {
		for _, a := range s.Awards {
			if err := d.hooks.Achievements.CheckBossKill(ctx, a.UserID); err != nil {
				d.log.Warn("achievement hook failed", zap.String("user", a.UserID), zap.Error(err))
			}
		}
	}

	if d.notifier != nil {
		if err := d.notifier.BossDefeated(ctx, &s.Boss, s.Awards); err != nil {
			d.log.Warn("defeat notification failed", zap.Int64("boss_id", s.Boss.ID), zap.Error(err))
		}
	}
}
