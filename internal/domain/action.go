package domain

import "time"

// ActionKind is a trust-affecting event. The set is closed: every kind has a
// default point value, overridable per deployment through the config store.
type ActionKind string

const (
	ActionApprovedContent     ActionKind = "approved_content"     // authored fact reached proven
	ActionWrongContent        ActionKind = "wrong_content"        // authored fact disproven / vetoed as wrong
	ActionNeutralOutdated     ActionKind = "neutral_outdated"     // authored fact vetoed as merely outdated
	ActionVetoSuccess         ActionKind = "veto_success"         // submitted veto was approved
	ActionVetoFail            ActionKind = "veto_fail"            // submitted veto was rejected
	ActionVerificationCorrect ActionKind = "verification_correct" // reviewed a verification that resolved the same way
	ActionVerificationWrong   ActionKind = "verification_wrong"   // owned a verification request that was rejected
	ActionReceivedUpvote      ActionKind = "received_upvote"
	ActionReceivedDownvote    ActionKind = "received_downvote"
)

// Valid reports whether k is one of the closed set of action kinds.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionApprovedContent, ActionWrongContent, ActionNeutralOutdated,
		ActionVetoSuccess, ActionVetoFail,
		ActionVerificationCorrect, ActionVerificationWrong,
		ActionReceivedUpvote, ActionReceivedDownvote:
		return true
	}
	return false
}

// ActionRecord is one immutable trust-affecting event. Points is the delta
// that was applied at the time, so later config changes never rewrite history.
type ActionRecord struct {
	ID        string     `json:"id"`
	ActorID   string     `json:"actor_id"`
	Kind      ActionKind `json:"kind"`
	Points    int64      `json:"points"`
	CreatedAt time.Time  `json:"created_at"`
}

// TrustTier maps a [Min,Max] trust-score range to a vote-weight modifier.
// A nil bound means open-ended in that direction. Tiers are disjoint and
// ordered; a score outside every tier resolves to modifier 1.0.
type TrustTier struct {
	Min      *int64  `json:"min,omitempty"`
	Max      *int64  `json:"max,omitempty"`
	Modifier float64 `json:"modifier"`
}

// Contains reports whether score falls inside the tier's range.
func (t TrustTier) Contains(score int64) bool {
	if t.Min != nil && score < *t.Min {
		return false
	}
	if t.Max != nil && score > *t.Max {
		return false
	}
	return true
}
