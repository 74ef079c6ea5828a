package domain

import "time"

// EntityKind selects which status state machine an aggregable entity uses.
type EntityKind string

const (
	KindFact   EntityKind = "fact"
	KindVeto   EntityKind = "veto"
	KindDebate EntityKind = "debate"
)

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	return k == KindFact || k == KindVeto || k == KindDebate
}

// Fact statuses.
const (
	StatusInReview      = "in_review"
	StatusProven        = "proven"
	StatusDisproven     = "disproven"
	StatusControversial = "controversial"
)

// Veto statuses.
const (
	StatusVetoOpen     = "open"
	StatusVetoApproved = "approved"
	StatusVetoRejected = "rejected"
)

// Published-debate statuses. Debates share the fact-shaped threshold rule but
// keep their own vocabulary.
const (
	StatusDebateOpen     = "open"
	StatusDebateAccepted = "accepted"
	StatusDebateRejected = "rejected"
	StatusDebateSplit    = "split"
)

// OpenStatus returns the initial status for a freshly created entity of
// the given kind.
func OpenStatus(kind EntityKind) string {
	switch kind {
	case KindVeto:
		return StatusVetoOpen
	case KindDebate:
		return StatusDebateOpen
	default:
		return StatusInReview
	}
}

// Entity is a fact, veto, or published debate: anything votes aggregate on.
// For vetoes, SubjectID is the entity the veto challenges; empty otherwise.
type Entity struct {
	ID        string     `json:"id"`
	Kind      EntityKind `json:"kind"`
	AuthorID  string     `json:"author_id"`
	SubjectID string     `json:"subject_id,omitempty"`
	Status    string     `json:"status"`
	Aggregate Aggregate  `json:"aggregate"`
	CreatedAt time.Time  `json:"created_at"`
}

// VetoClassification is the caller-supplied judgement attached to a
// successful veto: was the original content wrong, or merely outdated?
// It decides the author's penalty and is never inferred from vote polarity.
type VetoClassification string

const (
	VetoWrong    VetoClassification = "wrong"
	VetoOutdated VetoClassification = "outdated"
)

// Valid reports whether c is a known classification.
func (c VetoClassification) Valid() bool {
	return c == VetoWrong || c == VetoOutdated
}
