package domain

import "time"

// Vote is one weighted vote on an aggregable entity. Weight is captured at
// cast time so later trust changes never rewrite historical aggregates.
// At most one vote exists per (voter, entity) pair; re-casting updates the
// polarity and re-captures the weight.
type Vote struct {
	EntityID string    `json:"entity_id"`
	VoterID  string    `json:"voter_id"`
	Polarity int       `json:"polarity"` // +1 or -1
	Weight   float64   `json:"weight"`
	CastAt   time.Time `json:"cast_at"`
}

// Aggregate is the cached weighted tally on an entity. Sum is always
// Positive - Negative; Negative is stored as an absolute value.
type Aggregate struct {
	Positive float64 `json:"positive_weight"`
	Negative float64 `json:"negative_weight"`
	Count    int     `json:"vote_count"`
}

// Sum is the signed weighted sum over all votes.
func (a Aggregate) Sum() float64 { return a.Positive - a.Negative }

// PositiveShare returns Positive / (Positive + Negative) and whether the
// denominator was non-zero.
func (a Aggregate) PositiveShare() (float64, bool) {
	total := a.Positive + a.Negative
	if total == 0 {
		return 0, false
	}
	return a.Positive / total, true
}
