package boss

import (
	"context"

	"go.uber.org/zap"
)

// Expirer finalizes expired bosses. Expiry is a terminal transition that
// never pays rewards: participants are wiped and fighter markers released.
// Shared by the lazy path (a player reading or attacking an expired boss)
// and the scheduler sweep; the store makes double expiry a no-op.
type Expirer struct {
	enc      EncounterStore
	sync     *Synchronizer
	notifier Notifier
	log      *zap.Logger
}

func NewExpirer(enc EncounterStore, sync *Synchronizer, notifier Notifier, log *zap.Logger) *Expirer {
	return &Expirer{enc: enc, sync: sync, notifier: notifier, log: log}
}

// Expire finalizes one boss. Returns false when another path got there
// first.
func (e *Expirer) Expire(ctx context.Context, b *Boss) bool {
	former, ok, err := e.enc.ExpireBoss(ctx, b.ID)
	if err != nil {
		e.log.Error("boss expiry failed", zap.Int64("boss_id", b.ID), zap.Error(err))
		return false
	}
	if !ok {
		return false
	}

	for _, p := range former {
		if err := e.sync.Release(ctx, p.UserID, b.GuildID); err != nil {
			e.log.Warn("role release after expiry failed",
				zap.String("user", p.UserID), zap.String("guild", b.GuildID), zap.Error(err))
		}
	}

	if e.notifier != nil {
		if err := e.notifier.BossExpired(ctx, b); err != nil {
			e.log.Warn("expiry notification failed", zap.Int64("boss_id", b.ID), zap.Error(err))
		}
	}

	e.log.Info("boss expired",
		zap.Int64("boss_id", b.ID),
		zap.String("guild", b.GuildID),
		zap.Int("participants", len(former)))
	return true
}
