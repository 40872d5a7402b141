package boss

import (
	"context"
	"fmt"
	"time"

	"github.com/wyrmwatch/server/internal/config"
	"github.com/wyrmwatch/server/internal/data"
	"go.uber.org/zap"
)

// Resolver processes player attacks against a guild's active boss.
// The hp decrement is a single atomic store statement: two simultaneous
// attacks can never both observe the same stale hp.
type Resolver struct {
	enc     EncounterStore
	players PlayerStore
	sync    *Synchronizer
	dist    *Distributor
	exp     *Expirer
	catalog *data.Catalog
	formula Formula
	hooks   Hooks
	cfg     config.CombatConfig
	log     *zap.Logger
	now     func() time.Time
}

func NewResolver(enc EncounterStore, players PlayerStore, sync *Synchronizer, dist *Distributor, exp *Expirer, catalog *data.Catalog, formula Formula, hooks Hooks, cfg config.CombatConfig, log *zap.Logger) *Resolver {
	return &Resolver{
		enc:     enc,
		players: players,
		sync:    sync,
		dist:    dist,
		exp:     exp,
		catalog: catalog,
		formula: formula,
		hooks:   hooks,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// Status returns the guild's boss snapshot, or nil when none is active.
// Reading an expired boss finalizes it lazily (expiry is a soft deadline
// checked on read; the scheduler sweep covers unread bosses).
func (r *Resolver) Status(ctx context.Context, guildID string) (*Snapshot, error) {
	b, err := r.enc.ActiveBoss(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("load active boss: %w", err)
	}
	if b == nil {
		return nil, nil
	}
	if b.Expired(r.now()) {
		r.exp.Expire(ctx, b)
		return nil, nil
	}
	return &Snapshot{
		BossID:    b.ID,
		GuildID:   b.GuildID,
		Name:      b.Name,
		Tier:      b.Tier,
		HP:        b.HP,
		MaxHP:     b.MaxHP,
		ExpiresAt: b.ExpiresAt,
	}, nil
}

// Attack resolves one attack by userID against the boss in guildID.
func (r *Resolver) Attack(ctx context.Context, userID, guildID string) (*AttackResult, error) {
	b, err := r.enc.ActiveBoss(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("load active boss: %w", err)
	}
	if b == nil {
		return nil, ErrNoBoss
	}
	if b.Expired(r.now()) {
		r.exp.Expire(ctx, b)
		return nil, ErrExpired
	}

	p, err := r.players.Player(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}
	if p == nil || p.GuildID != guildID || p.Traveling {
		return nil, ErrNotPresent
	}
	if p.Health <= 0 {
		return nil, ErrDowned
	}

	ok, err := r.players.DeductStamina(ctx, userID, r.cfg.StaminaCost)
	if err != nil {
		return nil, fmt.Errorf("deduct stamina: %w", err)
	}
	if !ok {
		return nil, ErrExhausted
	}

	dmg := r.formula.BossDamage(r.weaponStats(p))

	hpLeft, ok, err := r.enc.DamageBoss(ctx, b.ID, dmg)
	if err != nil {
		return nil, fmt.Errorf("apply boss damage: %w", err)
	}
	if !ok {
		// Lost the race: another attack or the sweep finalized it first.
		return nil, ErrNoBoss
	}

	res := &AttackResult{DamageDealt: dmg, HPRemaining: hpLeft}

	// A dead boss never counters: nothing fires on the killing blow.
	if hpLeft > 0 {
		counter := r.formula.CounterDamage(r.cfg.CounterMin, r.cfg.CounterMax)
		if _, err := r.players.ApplyCounter(ctx, userID, counter); err != nil {
			return nil, fmt.Errorf("apply counter damage: %w", err)
		}
		res.CounterTaken = counter
		res.Countered = true
	}

	if err := r.enc.AddParticipantDamage(ctx, b.ID, userID, int64(dmg)); err != nil {
		return nil, fmt.Errorf("record participant damage: %w", err)
	}

	r.sync.Assign(ctx, userID, guildID)
	r.fireHooks(ctx, userID, b.ID, dmg)

	if hpLeft == 0 {
		res.Defeated = true
		if _, err := r.dist.Distribute(ctx, b.ID); err != nil {
			return nil, fmt.Errorf("settle defeat: %w", err)
		}
	}

	return res, nil
}

// weaponStats resolves the equipped weapon's rarity multiplier and attack
// bonus. An unequipped attacker fights as common / 1.0.
func (r *Resolver) weaponStats(p *Player) (rarityMult, weaponBonus float64) {
	rarityMult = r.catalog.RarityMultiplier(p.WeaponRarity)
	weaponBonus = p.WeaponBonus
	if weaponBonus <= 0 {
		weaponBonus = 1.0
	}
	return rarityMult, weaponBonus
}

// fireHooks runs the per-attack side effects. Failures are logged only.
func (r *Resolver) fireHooks(ctx context.Context, userID string, bossID int64, dmg int32) {
	if r.hooks.Analytics != nil {
		if err := r.hooks.Analytics.AttackRecorded(ctx, userID, bossID, dmg); err != nil {
			r.log.Warn("analytics hook failed", zap.String("user", userID), zap.Error(err))
		}
	}
	if r.hooks.Challenges != nil {
		if err := r.hooks.Challenges.RecordBossDamage(ctx, userID, dmg); err != nil {
			r.log.Warn("challenge hook failed", zap.String("user", userID), zap.Error(err))
		}
	}
	if r.hooks.Gems != nil && r.cfg.GemDivisor > 0 {
		if gems := int64(dmg) / r.cfg.GemDivisor; gems > 0 {
			if err := r.hooks.Gems.AwardGems(ctx, userID, gems); err != nil {
				r.log.Warn("gem hook failed", zap.String("user", userID), zap.Error(err))
			}
		}
	}
}
