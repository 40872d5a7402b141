package persist

import (
	"context"
	"time"

	"github.com/wyrmwatch/server/internal/boss"
)

// RoleRepo is the local mirror of per-guild fighter markers. The platform
// role itself is mutated best-effort through the gateway; this table backs
// the release predicate and the orphan sweep.
type RoleRepo struct {
	db *DB
}

func NewRoleRepo(db *DB) *RoleRepo {
	return &RoleRepo{db: db}
}

// Grant inserts the marker if absent, reporting whether it was added.
func (r *RoleRepo) Grant(ctx context.Context, guildID, userID string) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`INSERT INTO fighter_roles (guild_id, user_id)
		 VALUES ($1, $2)
		 ON CONFLICT (guild_id, user_id) DO NOTHING`,
		guildID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Revoke removes the marker; removing an absent marker is a no-op.
func (r *RoleRepo) Revoke(ctx context.Context, guildID, userID string) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM fighter_roles WHERE guild_id = $1 AND user_id = $2`,
		guildID, userID)
	return err
}

// Holders lists every marker currently held, fleet-wide.
func (r *RoleRepo) Holders(ctx context.Context) ([]boss.RoleKey, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT guild_id, user_id FROM fighter_roles ORDER BY guild_id, user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []boss.RoleKey
	for rows.Next() {
		var key boss.RoleKey
		if err := rows.Scan(&key.GuildID, &key.UserID); err != nil {
			return nil, err
		}
		out = append(out, key)
	}
	return out, rows.Err()
}

// HasActiveParticipation is the global release predicate: damage recorded
// against any active, unexpired boss in any guild. Computed, never cached,
// so it cannot drift.
func (r *RoleRepo) HasActiveParticipation(ctx context.Context, userID string, now time.Time) (bool, error) {
	var fighting bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM participants p
		     JOIN bosses b ON b.id = p.boss_id
		     WHERE p.user_id = $1 AND b.active AND b.expires_at > $2
		 )`, userID, now).Scan(&fighting)
	return fighting, err
}
