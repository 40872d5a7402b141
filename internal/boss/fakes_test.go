package boss

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wyrmwatch/server/internal/config"
	"github.com/wyrmwatch/server/internal/data"
	"go.uber.org/zap"
)

// In-memory store fakes. They honor the same atomicity contracts the
// Postgres repositories do (conditional updates, idempotent finalization,
// reward-log keyed settlement) so engine tests exercise the real
// concurrency-relevant paths.

type fakeEncounter struct {
	mu      sync.Mutex
	nextID  int64
	bosses  map[int64]*Boss
	parts   map[int64]map[string]int64
	rewards map[int64]bool // settlement log: one entry per paid boss
	guilds  *fakeGuilds
	premium map[string]bool // stored premium flags by user id
}

func newFakeEncounter(guilds *fakeGuilds) *fakeEncounter {
	return &fakeEncounter{
		bosses:  make(map[int64]*Boss),
		parts:   make(map[int64]map[string]int64),
		rewards: make(map[int64]bool),
		guilds:  guilds,
		premium: make(map[string]bool),
	}
}

func (f *fakeEncounter) ActiveBoss(_ context.Context, guildID string) (*Boss, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bosses {
		if b.GuildID == guildID && b.Active {
			cp := *b
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeEncounter) ActiveCount(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.bosses {
		if b.Active {
			n++
		}
	}
	return n, nil
}

func (f *fakeEncounter) CreateBoss(_ context.Context, b *Boss) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	b.ID = f.nextID
	b.StartedAt = time.Now()
	cp := *b
	f.bosses[b.ID] = &cp
	f.parts[b.ID] = make(map[string]int64)
	if f.guilds != nil {
		if g, ok := f.guilds.guilds[b.GuildID]; ok {
			g.LastBossAt = cp.StartedAt
		}
	}
	return nil
}

func (f *fakeEncounter) DamageBoss(_ context.Context, bossID int64, dmg int32) (int32, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bosses[bossID]
	if !ok || !b.Active {
		return 0, false, nil
	}
	b.HP -= dmg
	if b.HP < 0 {
		b.HP = 0
	}
	return b.HP, true, nil
}

func (f *fakeEncounter) AddParticipantDamage(_ context.Context, bossID int64, userID string, dmg int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.parts[bossID][userID] += dmg
	return nil
}

func (f *fakeEncounter) Participants(_ context.Context, bossID int64) ([]Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.participantsLocked(bossID), nil
}

func (f *fakeEncounter) participantsLocked(bossID int64) []Participant {
	var out []Participant
	for uid, dmg := range f.parts[bossID] {
		out = append(out, Participant{BossID: bossID, UserID: uid, Damage: dmg})
	}
	return out
}

func (f *fakeEncounter) ExpireBoss(_ context.Context, bossID int64) ([]Participant, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bosses[bossID]
	if !ok || !b.Active {
		return nil, false, nil
	}
	b.Active = false
	former := f.participantsLocked(bossID)
	f.parts[bossID] = make(map[string]int64)
	return former, true, nil
}

func (f *fakeEncounter) ExpiredActive(_ context.Context, now time.Time) ([]Boss, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Boss
	for _, b := range f.bosses {
		if b.Active && !now.Before(b.ExpiresAt) {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeEncounter) SettleDefeat(_ context.Context, bossID int64, plan PlanFunc) (*Settlement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bosses[bossID]
	if !ok || !b.Active || f.rewards[bossID] {
		return &Settlement{Settled: false}, nil
	}

	parts := f.participantsLocked(bossID)
	stored := make(map[string]bool, len(parts))
	for _, p := range parts {
		stored[p.UserID] = f.premium[p.UserID]
	}
	awards := plan(*b, parts, stored)

	b.Active = false
	f.rewards[bossID] = true
	f.parts[bossID] = make(map[string]int64)

	// Markers drop in-transaction when no other active boss still has the
	// user as a participant, mirroring the repository's settlement delete.
	var released []RoleKey
	for _, p := range parts {
		if !f.fightingElsewhereLocked(p.UserID, bossID) {
			released = append(released, RoleKey{GuildID: b.GuildID, UserID: p.UserID})
		}
	}

	return &Settlement{
		Boss:         *b,
		Participants: parts,
		Awards:       awards,
		Released:     released,
		Settled:      true,
	}, nil
}

func (f *fakeEncounter) fightingElsewhereLocked(userID string, excludeBoss int64) bool {
	now := time.Now()
	for id, b := range f.bosses {
		if id == excludeBoss || !b.Active || b.Expired(now) {
			continue
		}
		if _, ok := f.parts[id][userID]; ok {
			return true
		}
	}
	return false
}

type fakeGuilds struct {
	mu     sync.Mutex
	guilds map[string]*Guild
}

func newFakeGuilds(gs ...Guild) *fakeGuilds {
	f := &fakeGuilds{guilds: make(map[string]*Guild)}
	for i := range gs {
		cp := gs[i]
		f.guilds[cp.ID] = &cp
	}
	return f
}

func (f *fakeGuilds) Guild(_ context.Context, id string) (*Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guilds[id]
	if !ok {
		return nil, nil
	}
	cp := *g
	return &cp, nil
}

func (f *fakeGuilds) Candidates(context.Context) ([]Guild, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Guild
	for _, g := range f.guilds {
		if g.HasCoords {
			out = append(out, *g)
		}
	}
	return out, nil
}

type fakePlayers struct {
	mu      sync.Mutex
	players map[string]*Player
}

func newFakePlayers(ps ...Player) *fakePlayers {
	f := &fakePlayers{players: make(map[string]*Player)}
	for i := range ps {
		cp := ps[i]
		f.players[cp.ID] = &cp
	}
	return f
}

func (f *fakePlayers) Player(_ context.Context, id string) (*Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakePlayers) DeductStamina(_ context.Context, id string, cost int32) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok || p.Stamina < cost {
		return false, nil
	}
	p.Stamina -= cost
	return true, nil
}

func (f *fakePlayers) ApplyCounter(_ context.Context, id string, dmg int32) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return 0, nil
	}
	p.Health -= dmg
	if p.Health < 0 {
		p.Health = 0
	}
	return p.Health, nil
}

// fakeRoles mirrors fighter markers and answers the global release
// predicate against the encounter fake's live boss state.
type fakeRoles struct {
	mu   sync.Mutex
	held map[RoleKey]bool
	enc  *fakeEncounter
}

func newFakeRoles(enc *fakeEncounter) *fakeRoles {
	return &fakeRoles{held: make(map[RoleKey]bool), enc: enc}
}

func (f *fakeRoles) Grant(_ context.Context, guildID, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := RoleKey{GuildID: guildID, UserID: userID}
	if f.held[key] {
		return false, nil
	}
	f.held[key] = true
	return true, nil
}

func (f *fakeRoles) Revoke(_ context.Context, guildID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, RoleKey{GuildID: guildID, UserID: userID})
	return nil
}

func (f *fakeRoles) Holders(context.Context) ([]RoleKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []RoleKey
	for key := range f.held {
		out = append(out, key)
	}
	return out, nil
}

func (f *fakeRoles) HasActiveParticipation(_ context.Context, userID string, now time.Time) (bool, error) {
	f.enc.mu.Lock()
	defer f.enc.mu.Unlock()
	for id, b := range f.enc.bosses {
		if !b.Active || b.Expired(now) {
			continue
		}
		if _, ok := f.enc.parts[id][userID]; ok {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRoles) holds(guildID, userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.held[RoleKey{GuildID: guildID, UserID: userID}]
}

type fakeSchedulerState struct {
	mu   sync.Mutex
	next time.Time
}

func (f *fakeSchedulerState) NextSpawnAt(context.Context) (time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next, nil
}

func (f *fakeSchedulerState) SetNextSpawnAt(_ context.Context, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next = t
	return nil
}

// fixedFormula returns deterministic combat numbers.
type fixedFormula struct {
	dmg     int32
	counter int32
}

func (f fixedFormula) BossDamage(_, _ float64) int32 { return f.dmg }
func (f fixedFormula) CounterDamage(_, _ int) int32  { return f.counter }

// recGateway records platform role grant/revoke calls.
type recGateway struct {
	mu      sync.Mutex
	granted []RoleKey
	revoked []RoleKey
}

func (g *recGateway) GrantFighter(_ context.Context, guildID, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.granted = append(g.granted, RoleKey{GuildID: guildID, UserID: userID})
	return nil
}

func (g *recGateway) RevokeFighter(_ context.Context, guildID, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.revoked = append(g.revoked, RoleKey{GuildID: guildID, UserID: userID})
	return nil
}

// recNotifier records lifecycle announcements.
type recNotifier struct {
	mu       sync.Mutex
	spawned  []int64
	defeated []int64
	expired  []int64
}

func (n *recNotifier) BossSpawned(_ context.Context, b *Boss) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.spawned = append(n.spawned, b.ID)
	return nil
}

func (n *recNotifier) BossDefeated(_ context.Context, b *Boss, _ []Award) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.defeated = append(n.defeated, b.ID)
	return nil
}

func (n *recNotifier) BossExpired(_ context.Context, b *Boss) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.expired = append(n.expired, b.ID)
	return nil
}

const testCatalogYAML = `
rarity_multipliers:
  common: 1.0
  uncommon: 1.1
  rare: 1.25
  epic: 1.5
  legendary: 2.0
items:
  - id: iron_sword
    name: Iron Sword
    rarity: common
    tradable: true
  - id: silver_dagger
    name: Silver Dagger
    rarity: uncommon
    tradable: true
  - id: runed_blade
    name: Runed Blade
    rarity: rare
    tradable: true
  - id: phoenix_plume
    name: Phoenix Plume
    rarity: epic
    tradable: true
    premium: true
  - id: healing_draught
    name: Healing Draught
    rarity: common
    tradable: true
    consumable: true
  - id: fallback_trinket
    name: Old Trinket
    rarity: common
    tradable: true
`

const testLootYAML = `
tiers:
  - tier: 1
    weights:
      common: 100
fallback:
  - fallback_trinket
`

const testNamesYAML = `
biomes:
  - biome: forest
    names: ["mossback alpha"]
default: ["ancient wyrm"]
`

func loadTestData(t *testing.T) (*data.Catalog, *data.LootTable, *data.NameTable) {
	t.Helper()
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}
	catalog, err := data.LoadCatalog(write("item_catalog.yaml", testCatalogYAML))
	require.NoError(t, err)
	loot, err := data.LoadLootTable(write("loot_weights.yaml", testLootYAML))
	require.NoError(t, err)
	names, err := data.LoadNameTable(write("boss_names.yaml", testNamesYAML))
	require.NoError(t, err)
	return catalog, loot, names
}

func testRNG() *rand.Rand {
	return rand.New(rand.NewSource(1))
}

func testBossConfig() config.BossConfig {
	cfg := config.Defaults().Boss
	cfg.EligibilityPolicy = PolicyAllExceptHome
	return cfg
}

var nopLog = zap.NewNop()
