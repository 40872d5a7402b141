package boss

import (
	"context"
	"time"
)

// PlanFunc computes per-participant awards for a defeated boss. It runs
// inside the settlement transaction, after the boss row has been locked,
// so the participant set it sees is final. It must be pure apart from
// randomness: no I/O.
type PlanFunc func(b Boss, parts []Participant, premium map[string]bool) []Award

// EncounterStore is the durable boss/participant store. Individual methods
// are atomic; SettleDefeat and ExpireBoss wrap their multi-statement
// sequences in a single transaction.
type EncounterStore interface {
	// ActiveBoss returns the guild's active boss, or nil when none exists.
	ActiveBoss(ctx context.Context, guildID string) (*Boss, error)

	// ActiveCount returns the fleet-wide number of active bosses.
	ActiveCount(ctx context.Context) (int, error)

	// CreateBoss inserts an active boss and stamps the guild's last_boss_at
	// in one transaction, filling b.ID and b.StartedAt.
	CreateBoss(ctx context.Context, b *Boss) error

	// DamageBoss applies hp = max(0, hp-dmg) as one atomic statement.
	// ok is false when the boss is no longer active (lost race with
	// defeat or expiry); hpLeft is only meaningful when ok.
	DamageBoss(ctx context.Context, bossID int64, dmg int32) (hpLeft int32, ok bool, err error)

	// AddParticipantDamage upserts a participant's cumulative damage.
	AddParticipantDamage(ctx context.Context, bossID int64, userID string, dmg int64) error

	// Participants returns the current participant set for a boss.
	Participants(ctx context.Context, bossID int64) ([]Participant, error)

	// ExpireBoss marks an active boss inactive and deletes its participants
	// in one transaction, returning the former participant set. ok is false
	// when the boss was already finalized (double expiry is a no-op).
	ExpireBoss(ctx context.Context, bossID int64) (former []Participant, ok bool, err error)

	// ExpiredActive lists bosses with expires_at <= now that are still active.
	ExpiredActive(ctx context.Context, now time.Time) ([]Boss, error)

	// SettleDefeat runs the defeat settlement as one transaction: lock the
	// boss row (still-active check), lock participants, call plan, apply
	// awards (inventory stacking, coin credit, kill counters), write the
	// reward log, delete participants and drop fighter markers that no
	// other active participation backs. Settled=false when the boss was
	// already finalized.
	SettleDefeat(ctx context.Context, bossID int64, plan PlanFunc) (*Settlement, error)
}

// GuildStore reads guild coordinate/biome/cooldown records.
type GuildStore interface {
	// Guild returns a guild record, or nil when unknown.
	Guild(ctx context.Context, id string) (*Guild, error)

	// Candidates lists guilds with known coordinates, for scheduler cycles.
	Candidates(ctx context.Context) ([]Guild, error)
}

// PlayerStore reads and mutates player combat records.
type PlayerStore interface {
	// Player returns a player record, or nil when unknown.
	Player(ctx context.Context, id string) (*Player, error)

	// DeductStamina atomically subtracts cost if stamina >= cost,
	// reporting whether the deduction happened.
	DeductStamina(ctx context.Context, id string, cost int32) (bool, error)

	// ApplyCounter applies health = max(0, health-dmg) atomically and
	// returns the remaining health.
	ApplyCounter(ctx context.Context, id string, dmg int32) (int32, error)
}

// RoleStore is the local mirror of per-guild fighter markers.
type RoleStore interface {
	// Grant inserts the marker if absent, reporting whether it was added.
	Grant(ctx context.Context, guildID, userID string) (bool, error)

	// Revoke removes the marker; removing an absent marker is a no-op.
	Revoke(ctx context.Context, guildID, userID string) error

	// Holders lists every marker currently held, fleet-wide.
	Holders(ctx context.Context) ([]RoleKey, error)

	// HasActiveParticipation reports whether the user has damage recorded
	// against any active, unexpired boss in any guild.
	HasActiveParticipation(ctx context.Context, userID string, now time.Time) (bool, error)
}

// SchedulerStore persists the scheduler's next-cycle timestamp so restarts
// neither miss nor duplicate spawn cycles.
type SchedulerStore interface {
	// NextSpawnAt returns the persisted timestamp, zero when unset.
	NextSpawnAt(ctx context.Context) (time.Time, error)

	SetNextSpawnAt(ctx context.Context, t time.Time) error
}

// Formula produces combat numbers. Implemented by the Lua scripting engine.
type Formula interface {
	// BossDamage returns floor(uniform(50,199) * rarityMult * weaponBonus).
	BossDamage(rarityMult, weaponBonus float64) int32

	// CounterDamage returns a uniform integer in [min, max].
	CounterDamage(min, max int) int32
}
