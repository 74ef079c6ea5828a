// Package trust implements the trust ledger: the action→points table, the
// trust-tier→modifier table, and the vote-weight calculation built on both.
// Every trust-score mutation in the system routes through this package.
package trust

import (
	"log"

	"github.com/someoneelse131/purfacted-sub002/internal/domain"
	"github.com/someoneelse131/purfacted-sub002/internal/infra/sqlite"
)

// Config is an immutable snapshot of the three economy tables. Reloading
// configuration means building a new snapshot, never mutating a shared one.
type Config struct {
	Points      map[domain.ActionKind]int64
	Tiers       []domain.TrustTier
	RoleWeights map[domain.Role]float64
}

func intPtr(v int64) *int64 { return &v }

// DefaultConfig returns the hard-coded economy tables. Deployments tune
// these through the config store; absent rows fall back here.
func DefaultConfig() Config {
	return Config{
		Points: map[domain.ActionKind]int64{
			domain.ActionApprovedContent:     10,
			domain.ActionWrongContent:        -15,
			domain.ActionNeutralOutdated:     0,
			domain.ActionVetoSuccess:         8,
			domain.ActionVetoFail:            -6,
			domain.ActionVerificationCorrect: 12,
			domain.ActionVerificationWrong:   -12,
			domain.ActionReceivedUpvote:      1,
			domain.ActionReceivedDownvote:    -1,
		},
		Tiers: []domain.TrustTier{
			{Max: intPtr(-50), Modifier: 0.25},
			{Min: intPtr(-49), Max: intPtr(-1), Modifier: 0.5},
			{Min: intPtr(0), Max: intPtr(49), Modifier: 1.0},
			{Min: intPtr(50), Max: intPtr(99), Modifier: 1.2},
			{Min: intPtr(100), Max: intPtr(249), Modifier: 1.5},
			{Min: intPtr(250), Modifier: 2.0},
		},
		RoleWeights: map[domain.Role]float64{
			domain.RoleAnonymous:    0.1,
			domain.RoleVerified:     2,
			domain.RoleExpert:       5,
			domain.RoleDoctorate:    8,
			domain.RoleOrganization: 100,
			domain.RoleModerator:    3,
		},
	}
}

// LoadConfig builds a snapshot from the config tables, overlaying stored
// rows on the defaults. A missing or empty table is not an error — the
// defaults simply stand.
func LoadConfig(db *sqlite.DB) Config {
	cfg := DefaultConfig()

	points, err := db.ActionPoints()
	if err != nil {
		log.Printf("[trust] action points unavailable, using defaults: %v", err)
	} else {
		for kind, p := range points {
			cfg.Points[kind] = p
		}
	}

	tiers, err := db.TrustTiers()
	if err != nil {
		log.Printf("[trust] trust tiers unavailable, using defaults: %v", err)
	} else if len(tiers) > 0 {
		cfg.Tiers = tiers
	}

	weights, err := db.RoleWeights()
	if err != nil {
		log.Printf("[trust] role weights unavailable, using defaults: %v", err)
	} else {
		for role, w := range weights {
			cfg.RoleWeights[role] = w
		}
	}

	return cfg
}

// PointsFor returns the trust delta for an action kind. Unconfigured kinds
// are worth zero points.
func (c Config) PointsFor(kind domain.ActionKind) int64 {
	return c.Points[kind]
}

// ModifierFor resolves a trust score to its tier modifier. The tier table is
// a linear scan over disjoint ordered ranges; a score no tier contains
// resolves to 1.0. That fallback is a defined case, not an error.
func (c Config) ModifierFor(score int64) float64 {
	for _, tier := range c.Tiers {
		if tier.Contains(score) {
			return tier.Modifier
		}
	}
	return 1.0
}
