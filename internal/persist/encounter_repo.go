package persist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/wyrmwatch/server/internal/boss"
)

// EncounterRepo handles all boss and participant database operations.
// Single statements rely on Postgres atomicity; the expiry and settlement
// sequences run inside explicit transactions.
type EncounterRepo struct {
	db *DB
}

func NewEncounterRepo(db *DB) *EncounterRepo {
	return &EncounterRepo{db: db}
}

const bossColumns = `id, guild_id, name, tier, hp, max_hp, started_at, expires_at, active`

func scanBoss(row pgx.Row) (*boss.Boss, error) {
	var b boss.Boss
	err := row.Scan(&b.ID, &b.GuildID, &b.Name, &b.Tier, &b.HP, &b.MaxHP,
		&b.StartedAt, &b.ExpiresAt, &b.Active)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ActiveBoss returns the guild's active boss, or nil when none exists.
func (r *EncounterRepo) ActiveBoss(ctx context.Context, guildID string) (*boss.Boss, error) {
	b, err := scanBoss(r.db.Pool.QueryRow(ctx,
		`SELECT `+bossColumns+` FROM bosses WHERE guild_id = $1 AND active`, guildID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return b, err
}

// ActiveCount returns the fleet-wide number of active bosses.
func (r *EncounterRepo) ActiveCount(ctx context.Context) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx,
		`SELECT count(*) FROM bosses WHERE active`).Scan(&n)
	return n, err
}

// CreateBoss inserts an active boss and stamps the guild's last_boss_at
// in a single transaction. Fills b.ID and b.StartedAt.
func (r *EncounterRepo) CreateBoss(ctx context.Context, b *boss.Boss) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO bosses (guild_id, name, tier, hp, max_hp, expires_at, active)
		 VALUES ($1, $2, $3, $4, $5, $6, TRUE)
		 RETURNING id, started_at`,
		b.GuildID, b.Name, b.Tier, b.HP, b.MaxHP, b.ExpiresAt,
	).Scan(&b.ID, &b.StartedAt)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx,
		`UPDATE guilds SET last_boss_at = $1 WHERE id = $2`,
		b.StartedAt, b.GuildID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DamageBoss applies hp = max(0, hp-dmg) as one atomic statement. The
// decrement and floor happen server-side so two concurrent attacks can
// never both read the same stale hp. ok is false when the boss is no
// longer active.
func (r *EncounterRepo) DamageBoss(ctx context.Context, bossID int64, dmg int32) (int32, bool, error) {
	var hp int32
	err := r.db.Pool.QueryRow(ctx,
		`UPDATE bosses SET hp = GREATEST(hp - $1, 0)
		 WHERE id = $2 AND active
		 RETURNING hp`,
		dmg, bossID).Scan(&hp)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return hp, true, nil
}

// AddParticipantDamage upserts a participant's cumulative damage.
func (r *EncounterRepo) AddParticipantDamage(ctx context.Context, bossID int64, userID string, dmg int64) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO participants (boss_id, user_id, damage)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (boss_id, user_id)
		 DO UPDATE SET damage = participants.damage + EXCLUDED.damage`,
		bossID, userID, dmg)
	return err
}

// Participants returns the current participant set for a boss.
func (r *EncounterRepo) Participants(ctx context.Context, bossID int64) ([]boss.Participant, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT boss_id, user_id, damage FROM participants
		 WHERE boss_id = $1 ORDER BY user_id`, bossID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectParticipants(rows)
}

func collectParticipants(rows pgx.Rows) ([]boss.Participant, error) {
	var parts []boss.Participant
	for rows.Next() {
		var p boss.Participant
		if err := rows.Scan(&p.BossID, &p.UserID, &p.Damage); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// ExpireBoss marks an active boss inactive and deletes its participants
// in one transaction. ok is false when the boss was already finalized,
// which makes concurrent lazy expiry and the scheduler sweep safe.
func (r *EncounterRepo) ExpireBoss(ctx context.Context, bossID int64) ([]boss.Participant, bool, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE bosses SET active = FALSE WHERE id = $1 AND active`, bossID)
	if err != nil {
		return nil, false, err
	}
	if tag.RowsAffected() == 0 {
		return nil, false, nil
	}

	rows, err := tx.Query(ctx,
		`DELETE FROM participants WHERE boss_id = $1
		 RETURNING boss_id, user_id, damage`, bossID)
	if err != nil {
		return nil, false, err
	}
	former, err := collectParticipants(rows)
	rows.Close()
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, err
	}
	return former, true, nil
}

// ExpiredActive lists bosses whose deadline has passed but are still active.
func (r *EncounterRepo) ExpiredActive(ctx context.Context, now time.Time) ([]boss.Boss, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT `+bossColumns+` FROM bosses WHERE active AND expires_at <= $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []boss.Boss
	for rows.Next() {
		var b boss.Boss
		if err := rows.Scan(&b.ID, &b.GuildID, &b.Name, &b.Tier, &b.HP, &b.MaxHP,
			&b.StartedAt, &b.ExpiresAt, &b.Active); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// SettleDefeat runs the whole defeat sequence in a single transaction:
// lock the boss row while it is still active, lock and read participants,
// compute awards via plan, write the reward log (unique per boss), stack
// loot, credit coins and kill counters, wipe participants and drop
// fighter markers no longer backed by any active participation.
// Settled=false when another settlement or an expiry got there first.
func (r *EncounterRepo) SettleDefeat(ctx context.Context, bossID int64, plan boss.PlanFunc) (*boss.Settlement, error) {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	b, err := scanBoss(tx.QueryRow(ctx,
		`SELECT `+bossColumns+` FROM bosses WHERE id = $1 AND active FOR UPDATE`, bossID))
	if errors.Is(err, pgx.ErrNoRows) {
		return &boss.Settlement{Settled: false}, nil
	}
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx,
		`SELECT boss_id, user_id, damage FROM participants
		 WHERE boss_id = $1 ORDER BY user_id FOR UPDATE`, bossID)
	if err != nil {
		return nil, err
	}
	parts, err := collectParticipants(rows)
	rows.Close()
	if err != nil {
		return nil, err
	}

	userIDs := make([]string, len(parts))
	for i, p := range parts {
		userIDs[i] = p.UserID
	}

	stored, err := storedPremiumFlags(ctx, tx, userIDs)
	if err != nil {
		return nil, err
	}

	awards := plan(*b, parts, stored)

	if _, err := tx.Exec(ctx,
		`UPDATE bosses SET active = FALSE WHERE id = $1`, bossID); err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx,
		`INSERT INTO reward_log (id, boss_id, tier, participants)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (boss_id) DO NOTHING`,
		uuid.New(), bossID, b.Tier, len(parts))
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		// Log row without an active boss should be impossible; refuse to
		// pay twice either way.
		return &boss.Settlement{Settled: false}, nil
	}

	for _, a := range awards {
		for itemID, qty := range a.Items {
			if _, err := tx.Exec(ctx,
				`INSERT INTO inventories (user_id, item_id, qty)
				 VALUES ($1, $2, $3)
				 ON CONFLICT (user_id, item_id)
				 DO UPDATE SET qty = inventories.qty + EXCLUDED.qty`,
				a.UserID, itemID, qty); err != nil {
				return nil, err
			}
		}
		if _, err := tx.Exec(ctx,
			`UPDATE players SET coins = coins + $1, boss_kills = boss_kills + 1
			 WHERE id = $2`,
			a.Coins, a.UserID); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM participants WHERE boss_id = $1`, bossID); err != nil {
		return nil, err
	}

	// Drop markers for settled participants whose global combat status is
	// now clear. This boss's rows are already gone, so the predicate only
	// sees other fights still in progress.
	released, err := dropClearedMarkers(ctx, tx, userIDs)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &boss.Settlement{
		Boss:         *b,
		Participants: parts,
		Awards:       awards,
		Released:     released,
		Settled:      true,
	}, nil
}

func storedPremiumFlags(ctx context.Context, tx pgx.Tx, userIDs []string) (map[string]bool, error) {
	flags := make(map[string]bool, len(userIDs))
	if len(userIDs) == 0 {
		return flags, nil
	}
	rows, err := tx.Query(ctx,
		`SELECT id, premium FROM players WHERE id = ANY($1)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("read premium flags: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var prem bool
		if err := rows.Scan(&id, &prem); err != nil {
			return nil, err
		}
		flags[id] = prem
	}
	return flags, rows.Err()
}

func dropClearedMarkers(ctx context.Context, tx pgx.Tx, userIDs []string) ([]boss.RoleKey, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	rows, err := tx.Query(ctx,
		`DELETE FROM fighter_roles fr
		 WHERE fr.user_id = ANY($1)
		   AND NOT EXISTS (
		       SELECT 1 FROM participants p
		       JOIN bosses b ON b.id = p.boss_id
		       WHERE p.user_id = fr.user_id AND b.active AND b.expires_at > now()
		   )
		 RETURNING fr.guild_id, fr.user_id`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("drop cleared markers: %w", err)
	}
	defer rows.Close()

	var released []boss.RoleKey
	for rows.Next() {
		var key boss.RoleKey
		if err := rows.Scan(&key.GuildID, &key.UserID); err != nil {
			return nil, err
		}
		released = append(released, key)
	}
	return released, rows.Err()
}
