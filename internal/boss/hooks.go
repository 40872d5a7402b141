package boss

import "context"

// Side-effect capabilities injected into the resolver and distributor.
// All of them are best-effort: failures are logged and never abort the
// core combat or settlement path.

// Analytics records combat events for offline aggregation.
type Analytics interface {
	AttackRecorded(ctx context.Context, userID string, bossID int64, damage int32) error
}

// ChallengeTracker advances time-limited challenge progress.
type ChallengeTracker interface {
	RecordBossDamage(ctx context.Context, userID string, damage int32) error
}

// GemAwarder credits the premium currency earned per attack.
type GemAwarder interface {
	AwardGems(ctx context.Context, userID string, gems int64) error
}

// AchievementChecker re-evaluates a user's achievements after a boss kill.
type AchievementChecker interface {
	CheckBossKill(ctx context.Context, userID string) error
}

// PremiumOracle resolves premium eligibility for loot gating. When it
// fails, the distributor falls back to the stored premium flag.
type PremiumOracle interface {
	IsPremium(ctx context.Context, userID string) (bool, error)
}

// RoleGateway mutates the platform-visible fighter marker. The local
// RoleStore mirror stays authoritative for the release predicate.
type RoleGateway interface {
	GrantFighter(ctx context.Context, guildID, userID string) error
	RevokeFighter(ctx context.Context, guildID, userID string) error
}

// Notifier delivers boss lifecycle announcements.
type Notifier interface {
	BossSpawned(ctx context.Context, b *Boss) error
	BossDefeated(ctx context.Context, b *Boss, awards []Award) error
	BossExpired(ctx context.Context, b *Boss) error
}

// Hooks bundles the fire-and-forget capabilities. Nil fields are skipped.
type Hooks struct {
	Analytics    Analytics
	Challenges   ChallengeTracker
	Gems         GemAwarder
	Achievements AchievementChecker
}
