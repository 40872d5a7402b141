package persist

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/wyrmwatch/server/internal/boss"
)

// PlayerRepo reads and mutates player combat records.
type PlayerRepo struct {
	db *DB
}

func NewPlayerRepo(db *DB) *PlayerRepo {
	return &PlayerRepo{db: db}
}

// Player returns one player record, or nil when unknown.
func (r *PlayerRepo) Player(ctx context.Context, id string) (*boss.Player, error) {
	var p boss.Player
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, guild_id, traveling, health, stamina, weapon_rarity, weapon_bonus, premium
		 FROM players WHERE id = $1`, id,
	).Scan(&p.ID, &p.GuildID, &p.Traveling, &p.Health, &p.Stamina,
		&p.WeaponRarity, &p.WeaponBonus, &p.Premium)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeductStamina subtracts cost only when enough stamina remains, in one
// conditional statement; the row count says whether it happened.
func (r *PlayerRepo) DeductStamina(ctx context.Context, id string, cost int32) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE players SET stamina = stamina - $1
		 WHERE id = $2 AND stamina >= $1`,
		cost, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ApplyCounter applies health = max(0, health-dmg) atomically and returns
// the remaining health.
func (r *PlayerRepo) ApplyCounter(ctx context.Context, id string, dmg int32) (int32, error) {
	var health int32
	err := r.db.Pool.QueryRow(ctx,
		`UPDATE players SET health = GREATEST(health - $1, 0)
		 WHERE id = $2
		 RETURNING health`,
		dmg, id).Scan(&health)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return health, err
}
