package boss

import "errors"

// Spawn rejections. Each failed precondition maps to exactly one sentinel;
// a rejection never leaves partial writes.
var (
	ErrUnauthorized     = errors.New("requester not authorized to spawn")
	ErrNoCoordinates    = errors.New("guild has no known coordinates")
	ErrForbiddenGuild   = errors.New("bosses never spawn in the home guild")
	ErrCapacityExceeded = errors.New("global active boss cap reached")
	ErrNotEligible      = errors.New("guild not eligible to host a boss")
	ErrOnCooldown       = errors.New("guild boss cooldown has not elapsed")
)

// Attack rejections.
var (
	ErrNoBoss     = errors.New("no active boss in this guild")
	ErrExpired    = errors.New("boss has expired")
	ErrNotPresent = errors.New("attacker not present at this guild")
	ErrDowned     = errors.New("attacker has no health left")
	ErrExhausted  = errors.New("attacker lacks stamina for an attack")
)
