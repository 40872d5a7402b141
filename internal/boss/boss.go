// Package boss implements the cross-guild world boss encounter engine:
// spawn governance, combat resolution, exactly-once reward settlement,
// fighter role synchronization and the background spawn scheduler.
package boss

import "time"

// Boss is a time-bounded, per-guild hostile entity.
// HP only decreases while active; defeat and expiry are terminal.
type Boss struct {
	ID        int64
	GuildID   string
	Name      string
	Tier      int16
	HP        int32
	MaxHP     int32
	StartedAt time.Time
	ExpiresAt time.Time
	Active    bool
}

// Expired reports whether the boss's lifetime has elapsed at the given instant.
func (b *Boss) Expired(now time.Time) bool {
	return !now.Before(b.ExpiresAt)
}

// Participant records a user's cumulative damage against one boss.
// Rows exist only while rewards are outstanding; deletion marks payout done.
type Participant struct {
	BossID int64
	UserID string
	Damage int64
}

// Guild is the coordinate/biome/cooldown record consumed by spawn checks.
type Guild struct {
	ID         string
	X, Y       int32
	HasCoords  bool
	Biome      string
	LastBossAt time.Time
}

// Player is the health/stamina/location record consumed by combat,
// plus the equipped-weapon mirror used by the damage formula.
type Player struct {
	ID           string
	GuildID      string
	Traveling    bool
	Health       int32
	Stamina      int32
	WeaponRarity string
	WeaponBonus  float64
	Premium      bool
}

// Snapshot is the read-only boss view returned by Status.
type Snapshot struct {
	BossID    int64
	GuildID   string
	Name      string
	Tier      int16
	HP        int32
	MaxHP     int32
	ExpiresAt time.Time
}

// AttackResult reports the outcome of one resolved attack.
type AttackResult struct {
	DamageDealt  int32
	HPRemaining  int32
	CounterTaken int32
	Countered    bool // false on the killing blow: a dead boss never counters
	Defeated     bool
}

// RoleKey identifies one fighter marker (per-guild by platform constraint).
type RoleKey struct {
	GuildID string
	UserID  string
}

// Award is one participant's settled payout.
type Award struct {
	UserID string
	Coins  int64
	Items  map[string]int // item id -> quantity
}

// Settlement is the result of a defeat settlement transaction.
// Settled is false when the boss was already finalized (idempotent no-op).
type Settlement struct {
	Boss         Boss
	Participants []Participant
	Awards       []Award
	Released     []RoleKey // fighter markers dropped in the same transaction
	Settled      bool
}
