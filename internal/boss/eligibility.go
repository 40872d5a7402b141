package boss

import (
	"strconv"

	"github.com/wyrmwatch/server/internal/config"
)

// Eligibility policies. The choice is an explicit configuration toggle;
// there is no implicit default beyond config defaults.
const (
	PolicyHash          = "hash"
	PolicyAllExceptHome = "all_except_home"
)

// hashDigits is the number of trailing guild-id digits fed into the
// eligibility hash.
const hashDigits = 4

// Eligible reports whether a guild may host a boss spawn under the
// configured policy.
//
// PolicyHash spreads load across the fleet without an allow-list: the
// id's trailing digits, read as base 16, must divide evenly by the
// configured divisor. Ids too short or unparsable are ineligible rather
// than a crash. PolicyAllExceptHome admits every guild except the home
// guild. Unknown policies admit nothing.
func Eligible(cfg config.BossConfig, guildID string) bool {
	switch cfg.EligibilityPolicy {
	case PolicyAllExceptHome:
		return guildID != cfg.HomeGuildID
	case PolicyHash:
		return hashEligible(guildID, cfg.EligibilityDivisor)
	default:
		return false
	}
}

func hashEligible(guildID string, divisor int) bool {
	if divisor <= 0 {
		divisor = 3
	}
	if len(guildID) < hashDigits {
		return false
	}
	tail := guildID[len(guildID)-hashDigits:]
	v, err := strconv.ParseUint(tail, 16, 64)
	if err != nil {
		return false
	}
	return v%uint64(divisor) == 0
}
