package main

import (
	"context"

	"github.com/wyrmwatch/server/internal/boss"
	"go.uber.org/zap"
)

// Log-only implementations of the engine's injected capabilities. The
// embedding service replaces these with its real analytics pipeline,
// challenge tracker, premium billing lookup and platform role client.

type logAnalytics struct{ log *zap.Logger }

func (a *logAnalytics) AttackRecorded(_ context.Context, userID string, bossID int64, damage int32) error {
	a.log.Debug("attack recorded",
		zap.String("user", userID), zap.Int64("boss_id", bossID), zap.Int32("damage", damage))
	return nil
}

type logChallenges struct{ log *zap.Logger }

func (c *logChallenges) RecordBossDamage(_ context.Context, userID string, damage int32) error {
	c.log.Debug("challenge progress",
		zap.String("user", userID), zap.Int32("damage", damage))
	return nil
}

type logGems struct{ log *zap.Logger }

func (g *logGems) AwardGems(_ context.Context, userID string, gems int64) error {
	g.log.Debug("gems awarded", zap.String("user", userID), zap.Int64("gems", gems))
	return nil
}

type logAchievements struct{ log *zap.Logger }

func (a *logAchievements) CheckBossKill(_ context.Context, userID string) error {
	a.log.Debug("achievement check", zap.String("user", userID))
	return nil
}

type logRoleGateway struct{ log *zap.Logger }

func (g *logRoleGateway) GrantFighter(_ context.Context, guildID, userID string) error {
	g.log.Debug("fighter role granted", zap.String("guild", guildID), zap.String("user", userID))
	return nil
}

func (g *logRoleGateway) RevokeFighter(_ context.Context, guildID, userID string) error {
	g.log.Debug("fighter role revoked", zap.String("guild", guildID), zap.String("user", userID))
	return nil
}

type logNotifier struct{ log *zap.Logger }

func (n *logNotifier) BossSpawned(_ context.Context, b *boss.Boss) error {
	n.log.Info("boss announcement",
		zap.String("guild", b.GuildID), zap.String("name", b.Name), zap.Int16("tier", b.Tier))
	return nil
}

func (n *logNotifier) BossDefeated(_ context.Context, b *boss.Boss, awards []boss.Award) error {
	n.log.Info("defeat announcement",
		zap.String("guild", b.GuildID), zap.String("name", b.Name), zap.Int("winners", len(awards)))
	return nil
}

func (n *logNotifier) BossExpired(_ context.Context, b *boss.Boss) error {
	n.log.Info("expiry announcement",
		zap.String("guild", b.GuildID), zap.String("name", b.Name))
	return nil
}
