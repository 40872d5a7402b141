package boss

import (
	"context"
	"math/rand"
	"time"

	"github.com/wyrmwatch/server/internal/config"
	"go.uber.org/zap"
)

// Scheduler drives spawn attempts and expiry sweeps on a randomized
// interval, recomputed after every cycle so a fleet of guilds never
// synchronizes into spawn bursts. The next-cycle timestamp is persisted:
// a restart resumes the pending cycle instead of missing or doubling it.
//
// Single instance assumed. Running two schedulers against one store
// duplicates spawns and sweeps; there is no leader election here.
type Scheduler struct {
	gov      *Governor
	exp      *Expirer
	sync     *Synchronizer
	enc      EncounterStore
	guilds   GuildStore
	state    SchedulerStore
	notifier Notifier
	cfg      config.SchedulerConfig
	rng      *rand.Rand
	log      *zap.Logger
	now      func() time.Time
}

func NewScheduler(gov *Governor, exp *Expirer, sync *Synchronizer, enc EncounterStore, guilds GuildStore, state SchedulerStore, notifier Notifier, cfg config.SchedulerConfig, rng *rand.Rand, log *zap.Logger) *Scheduler {
	return &Scheduler{
		gov:      gov,
		exp:      exp,
		sync:     sync,
		enc:      enc,
		guilds:   guilds,
		state:    state,
		notifier: notifier,
		cfg:      cfg,
		rng:      rng,
		log:      log,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled, firing one Cycle per interval.
func (s *Scheduler) Run(ctx context.Context) error {
	next, err := s.state.NextSpawnAt(ctx)
	if err != nil {
		s.log.Warn("load scheduler state failed, scheduling fresh", zap.Error(err))
		next = time.Time{}
	}
	now := s.now()
	if next.IsZero() || next.Before(now) {
		next = s.reschedule(ctx, now)
	} else {
		s.log.Info("resuming persisted spawn schedule", zap.Time("next", next))
	}

	timer := time.NewTimer(next.Sub(now))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			s.Cycle(ctx)
			next = s.reschedule(ctx, s.now())
			timer.Reset(next.Sub(s.now()))
		}
	}
}

// Cycle runs one full pass: expire overdue bosses, sweep orphaned
// fighter markers, then attempt spawns across candidate guilds behind
// the probability gate. Every step is idempotent; a failed cycle is
// simply retried by the next one.
func (s *Scheduler) Cycle(ctx context.Context) {
	s.CleanupExpired(ctx)

	if err := s.sync.SweepOrphans(ctx); err != nil {
		s.log.Error("orphan sweep failed", zap.Error(err))
	}

	s.attemptSpawns(ctx)
}

// CleanupExpired finalizes every active boss whose deadline has passed.
// Safe to run concurrently with lazy expiry on player reads: the store
// makes the second finalization a no-op.
func (s *Scheduler) CleanupExpired(ctx context.Context) {
	overdue, err := s.enc.ExpiredActive(ctx, s.now())
	if err != nil {
		s.log.Error("list expired bosses failed", zap.Error(err))
		return
	}
	for i := range overdue {
		s.exp.Expire(ctx, &overdue[i])
	}
}

func (s *Scheduler) attemptSpawns(ctx context.Context) {
	candidates, err := s.guilds.Candidates(ctx)
	if err != nil {
		s.log.Error("list candidate guilds failed", zap.Error(err))
		return
	}
	for _, g := range candidates {
		// Eligibility alone never guarantees a spawn: the gate smooths
		// the distribution over time.
		if s.rng.Float64() >= s.cfg.SpawnChance {
			continue
		}
		b, err := s.gov.Spawn(ctx, SpawnRequest{GuildID: g.ID, System: true})
		if err != nil {
			// Rejections are routine here; real failures are logged by
			// the governor's callees.
			s.log.Debug("scheduled spawn rejected", zap.String("guild", g.ID), zap.Error(err))
			continue
		}
		if s.notifier != nil {
			if err := s.notifier.BossSpawned(ctx, b); err != nil {
				s.log.Warn("spawn notification failed", zap.Int64("boss_id", b.ID), zap.Error(err))
			}
		}
	}
}

// reschedule picks the next cycle time uniformly inside the configured
// window and persists it.
func (s *Scheduler) reschedule(ctx context.Context, now time.Time) time.Time {
	next := now.Add(s.interval())
	if err := s.state.SetNextSpawnAt(ctx, next); err != nil {
		s.log.Warn("persist scheduler state failed", zap.Time("next", next), zap.Error(err))
	}
	return next
}

func (s *Scheduler) interval() time.Duration {
	min, max := s.cfg.MinInterval, s.cfg.MaxInterval
	if max <= min {
		return min
	}
	return min + time.Duration(s.rng.Int63n(int64(max-min)))
}
