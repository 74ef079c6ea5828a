package trust

import "github.com/someoneelse131/purfacted-sub002/internal/domain"

// ─── Vote Weight ────────────────────────────────────────────────────────────
// weight = baseWeight(role) × modifier(trustScore). Pure given the snapshot:
// no I/O, no side effects. The same weight feeds fact, veto, debate, and
// comment votes.

// BaseWeight returns the role-determined starting voting power. Unknown
// roles weigh in as anonymous.
func (c Config) BaseWeight(role domain.Role) float64 {
	if w, ok := c.RoleWeights[role]; ok {
		return w
	}
	return c.RoleWeights[domain.RoleAnonymous]
}

// WeightFor combines the role base weight with the trust-tier modifier into
// the single scalar used for every weighted vote.
func (c Config) WeightFor(role domain.Role, trustScore int64) float64 {
	return c.BaseWeight(role) * c.ModifierFor(trustScore)
}
