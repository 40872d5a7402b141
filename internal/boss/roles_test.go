package boss

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rolesFixture struct {
	sync    *Synchronizer
	enc     *fakeEncounter
	roles   *fakeRoles
	gateway *recGateway
}

func newRolesFixture(t *testing.T) *rolesFixture {
	t.Helper()
	enc := newFakeEncounter(nil)
	roles := newFakeRoles(enc)
	gateway := &recGateway{}
	return &rolesFixture{
		sync:    NewSynchronizer(roles, gateway, nopLog),
		enc:     enc,
		roles:   roles,
		gateway: gateway,
	}
}

// seedFight spawns an active boss in a guild with one participant.
func (fx *rolesFixture) seedFight(t *testing.T, guildID, userID string) *Boss {
	t.Helper()
	ctx := context.Background()
	b := &Boss{
		GuildID:   guildID,
		Name:      "Wyrm",
		Tier:      1,
		HP:        1000,
		MaxHP:     1000,
		ExpiresAt: time.Now().Add(time.Hour),
		Active:    true,
	}
	require.NoError(t, fx.enc.CreateBoss(ctx, b))
	require.NoError(t, fx.enc.AddParticipantDamage(ctx, b.ID, userID, 100))
	fx.sync.Assign(ctx, userID, guildID)
	return b
}

func TestAssignIsIdempotent(t *testing.T) {
	fx := newRolesFixture(t)
	ctx := context.Background()

	fx.sync.Assign(ctx, "u1", "g1")
	fx.sync.Assign(ctx, "u1", "g1")

	assert.True(t, fx.roles.holds("g1", "u1"))
	assert.Len(t, fx.gateway.granted, 1)
}

func TestReleaseDropsMarkerWhenNoFightsRemain(t *testing.T) {
	fx := newRolesFixture(t)
	ctx := context.Background()

	b := fx.seedFight(t, "g1", "u1")
	require.True(t, fx.roles.holds("g1", "u1"))

	// Fight still active: release retains the marker.
	require.NoError(t, fx.sync.Release(ctx, "u1", "g1"))
	assert.True(t, fx.roles.holds("g1", "u1"))

	// Fight finalized: release drops it.
	_, ok, err := fx.enc.ExpireBoss(ctx, b.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, fx.sync.Release(ctx, "u1", "g1"))
	assert.False(t, fx.roles.holds("g1", "u1"))
	assert.Len(t, fx.gateway.revoked, 1)
}

func TestReleaseRetainsMarkerWhileFightingElsewhere(t *testing.T) {
	fx := newRolesFixture(t)
	ctx := context.Background()

	b1 := fx.seedFight(t, "g1", "u1")
	fx.seedFight(t, "g2", "u1")

	// u1's g1 fight ends, but the g2 fight is still live: the marker stays
	// in both guilds.
	_, ok, err := fx.enc.ExpireBoss(ctx, b1.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, fx.sync.Release(ctx, "u1", "g1"))
	assert.True(t, fx.roles.holds("g1", "u1"))
	assert.True(t, fx.roles.holds("g2", "u1"))
}

func TestSweepOrphansDropsStaleMarkers(t *testing.T) {
	fx := newRolesFixture(t)
	ctx := context.Background()

	b := fx.seedFight(t, "g1", "stale")
	fx.seedFight(t, "g2", "live")

	// Finalize the stale user's only fight without releasing the marker,
	// as a crash between finalization and release would.
	_, ok, err := fx.enc.ExpireBoss(ctx, b.ID)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, fx.sync.SweepOrphans(ctx))
	assert.False(t, fx.roles.holds("g1", "stale"))
	assert.True(t, fx.roles.holds("g2", "live"))
}

func TestExpireReleasesParticipants(t *testing.T) {
	fx := newRolesFixture(t)
	notifier := &recNotifier{}
	expirer := NewExpirer(fx.enc, fx.sync, notifier, nopLog)
	ctx := context.Background()

	b := fx.seedFight(t, "g1", "u1")

	require.True(t, expirer.Expire(ctx, b))
	assert.False(t, fx.roles.holds("g1", "u1"))
	assert.Contains(t, notifier.expired, b.ID)

	// Double expiry is a no-op.
	assert.False(t, expirer.Expire(ctx, b))
	assert.Len(t, notifier.expired, 1)
}
