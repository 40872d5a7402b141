package persist

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

// SchedulerRepo persists the spawner's next-cycle timestamp so restarts
// resume the pending cycle instead of missing or duplicating it.
type SchedulerRepo struct {
	db *DB
}

func NewSchedulerRepo(db *DB) *SchedulerRepo {
	return &SchedulerRepo{db: db}
}

// NextSpawnAt returns the persisted timestamp, zero when unset.
func (r *SchedulerRepo) NextSpawnAt(ctx context.Context) (time.Time, error) {
	var t time.Time
	err := r.db.Pool.QueryRow(ctx,
		`SELECT next_spawn_at FROM scheduler_state WHERE id = 1`).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, nil
	}
	return t, err
}

func (r *SchedulerRepo) SetNextSpawnAt(ctx context.Context, t time.Time) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO scheduler_state (id, next_spawn_at) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET next_spawn_at = EXCLUDED.next_spawn_at`, t)
	return err
}
