package persist

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/wyrmwatch/server/internal/boss"
)

// GuildRepo reads guild coordinate/biome/cooldown records.
type GuildRepo struct {
	db *DB
}

func NewGuildRepo(db *DB) *GuildRepo {
	return &GuildRepo{db: db}
}

// Guild returns one guild record, or nil when unknown. Guilds that have
// not been placed on the map yet have NULL coordinates.
func (r *GuildRepo) Guild(ctx context.Context, id string) (*boss.Guild, error) {
	var g boss.Guild
	var x, y *int32
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, x, y, biome, last_boss_at FROM guilds WHERE id = $1`, id,
	).Scan(&g.ID, &x, &y, &g.Biome, &g.LastBossAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if x != nil && y != nil {
		g.X, g.Y = *x, *y
		g.HasCoords = true
	}
	return &g, nil
}

// Candidates lists guilds with known coordinates, for scheduler cycles.
func (r *GuildRepo) Candidates(ctx context.Context) ([]boss.Guild, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT id, x, y, biome, last_boss_at FROM guilds
		 WHERE x IS NOT NULL AND y IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []boss.Guild
	for rows.Next() {
		var g boss.Guild
		if err := rows.Scan(&g.ID, &g.X, &g.Y, &g.Biome, &g.LastBossAt); err != nil {
			return nil, err
		}
		g.HasCoords = true
		out = append(out, g)
	}
	return out, rows.Err()
}
