package boss

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Synchronizer keeps per-guild fighter markers consistent with the
// player's global combat status. The marker lives per guild (platform
// constraint) but the predicate governing removal is global: it stays
// as long as the user has damage recorded against any active, unexpired
// boss anywhere.
type Synchronizer struct {
	roles   RoleStore
	gateway RoleGateway
	log     *zap.Logger
	now     func() time.Time
}

func NewSynchronizer(roles RoleStore, gateway RoleGateway, log *zap.Logger) *Synchronizer {
	return &Synchronizer{
		roles:   roles,
		gateway: gateway,
		now:     time.Now,
		log:     log,
	}
}

// Assign grants the fighter marker in a guild. Idempotent; lookup or
// gateway failures are logged and never fail the caller.
func (s *Synchronizer) Assign(ctx context.Context, userID, guildID string) {
	added, err := s.roles.Grant(ctx, guildID, userID)
	if err != nil {
		s.log.Warn("fighter marker grant failed",
			zap.String("user", userID), zap.String("guild", guildID), zap.Error(err))
		return
	}
	if !added || s.gateway == nil {
		return
	}
	if err := s.gateway.GrantFighter(ctx, guildID, userID); err != nil {
		s.log.Warn("fighter role grant failed",
			zap.String("user", userID), zap.String("guild", guildID), zap.Error(err))
	}
}

// Release removes the marker in the triggering guild only when the user
// has no active participation left in any guild. A user still fighting
// elsewhere keeps the marker everywhere (no flapping across simultaneous
// multi-guild fights).
func (s *Synchronizer) Release(ctx context.Context, userID, guildID string) error {
	fighting, err := s.roles.HasActiveParticipation(ctx, userID, s.now())
	if err != nil {
		return fmt.Errorf("check active participation: %w", err)
	}
	if fighting {
		return nil
	}
	return s.revoke(ctx, RoleKey{GuildID: guildID, UserID: userID})
}

// SweepOrphans recomputes the release predicate for every marker holder
// and drops stale ones. Safety net against a missed Release, e.g. after
// a process crash.
func (s *Synchronizer) SweepOrphans(ctx context.Context) error {
	holders, err := s.roles.Holders(ctx)
	if err != nil {
		return fmt.Errorf("list fighter markers: %w", err)
	}
	now := s.now()
	removed := 0
	for _, key := range holders {
		fighting, err := s.roles.HasActiveParticipation(ctx, key.UserID, now)
		if err != nil {
			return fmt.Errorf("check active participation: %w", err)
		}
		if fighting {
			continue
		}
		if err := s.revoke(ctx, key); err != nil {
			return err
		}
		removed++
	}
	if removed > 0 {
		s.log.Info("swept orphaned fighter markers", zap.Int("removed", removed))
	}
	return nil
}

// NotifyRevoked pushes already-removed markers to the platform gateway.
// Used when the settlement transaction dropped the rows itself.
func (s *Synchronizer) NotifyRevoked(ctx context.Context, keys []RoleKey) {
	if s.gateway == nil {
		return
	}
	for _, key := range keys {
		if err := s.gateway.RevokeFighter(ctx, key.GuildID, key.UserID); err != nil {
			s.log.Warn("fighter role revoke failed",
				zap.String("user", key.UserID), zap.String("guild", key.GuildID), zap.Error(err))
		}
	}
}

func (s *Synchronizer) revoke(ctx context.Context, key RoleKey) error {
	if err := s.roles.Revoke(ctx, key.GuildID, key.UserID); err != nil {
		return fmt.Errorf("revoke fighter marker: %w", err)
	}
	if s.gateway != nil {
		if err := s.gateway.RevokeFighter(ctx, key.GuildID, key.UserID); err != nil {
			s.log.Warn("fighter role revoke failed",
				zap.String("user", key.UserID), zap.String("guild", key.GuildID), zap.Error(err))
		}
	}
	return nil
}
