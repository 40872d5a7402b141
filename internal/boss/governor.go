package boss

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/wyrmwatch/server/internal/config"
	"github.com/wyrmwatch/server/internal/data"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// SpawnRequest asks the governor to create a boss. System requests come
// from the scheduler and skip authorization; manual requests must carry
// an allow-listed requester id or a token matching the configured hash.
type SpawnRequest struct {
	RequesterID string
	Token       string
	GuildID     string
	System      bool
}

// Governor enforces every spawn precondition and creates bosses.
// Each failed precondition yields its own sentinel error and no writes.
type Governor struct {
	enc    EncounterStore
	guilds GuildStore
	names  *data.NameTable
	cfg    config.BossConfig
	log    *zap.Logger
	now    func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewGovernor(enc EncounterStore, guilds GuildStore, names *data.NameTable, cfg config.BossConfig, rng *rand.Rand, log *zap.Logger) *Governor {
	return &Governor{
		enc:    enc,
		guilds: guilds,
		names:  names,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
		rng:    rng,
	}
}

// Spawn validates preconditions in order and creates an active boss.
// The global-cap check is count-then-insert: a narrow race can exceed the
// cap by one, accepted as benign (the cap is a fleet-health limit).
func (g *Governor) Spawn(ctx context.Context, req SpawnRequest) (*Boss, error) {
	if !req.System && !g.authorized(req) {
		return nil, ErrUnauthorized
	}

	guild, err := g.guilds.Guild(ctx, req.GuildID)
	if err != nil {
		return nil, fmt.Errorf("load guild %s: %w", req.GuildID, err)
	}
	if guild == nil || !guild.HasCoords {
		return nil, ErrNoCoordinates
	}
	if g.cfg.HomeGuildID != "" && guild.ID == g.cfg.HomeGuildID {
		return nil, ErrForbiddenGuild
	}

	active, err := g.enc.ActiveCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active bosses: %w", err)
	}
	if active >= g.cfg.Cap {
		return nil, ErrCapacityExceeded
	}

	if !Eligible(g.cfg, guild.ID) {
		return nil, ErrNotEligible
	}

	now := g.now()
	if now.Sub(guild.LastBossAt) < g.cfg.Cooldown {
		return nil, ErrOnCooldown
	}

	tier, name := g.roll(guild.Biome)
	b := &Boss{
		GuildID:   guild.ID,
		Name:      name,
		Tier:      int16(tier),
		HP:        ScaledHP(g.cfg.BaseHP, tier, g.cfg.TierGrowth),
		ExpiresAt: now.Add(g.cfg.TTL),
		Active:    true,
	}
	b.MaxHP = b.HP

	// A concurrent spawn for the same guild trips the partial unique
	// index on bosses(guild_id) and surfaces here as a storage error.
	if err := g.enc.CreateBoss(ctx, b); err != nil {
		return nil, fmt.Errorf("create boss: %w", err)
	}

	g.log.Info("boss spawned",
		zap.Int64("boss_id", b.ID),
		zap.String("guild", b.GuildID),
		zap.String("name", b.Name),
		zap.Int16("tier", b.Tier),
		zap.Int32("hp", b.HP))
	return b, nil
}

func (g *Governor) roll(biome string) (tier int, name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	tier = PickTier(g.rng, g.cfg.TierWeights, g.cfg.MaxTier)
	name = g.names.Pick(g.rng, biome)
	return tier, name
}

func (g *Governor) authorized(req SpawnRequest) bool {
	for _, id := range g.cfg.AdminIDs {
		if id == req.RequesterID {
			return true
		}
	}
	if g.cfg.AdminTokenHash != "" && req.Token != "" {
		return bcrypt.CompareHashAndPassword([]byte(g.cfg.AdminTokenHash), []byte(req.Token)) == nil
	}
	return false
}
