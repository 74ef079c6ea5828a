package domain

import "time"

// FlagStatus is the lifecycle of an abuse flag on an account.
// pending and reviewing are open states; an actor has at most one open flag.
type FlagStatus string

const (
	FlagPending   FlagStatus = "pending"
	FlagReviewing FlagStatus = "reviewing"
	FlagDismissed FlagStatus = "dismissed"
	FlagResolved  FlagStatus = "resolved"
)

// Open reports whether the flag still awaits a moderator decision.
func (s FlagStatus) Open() bool {
	return s == FlagPending || s == FlagReviewing
}

// AccountFlag marks an actor for moderator review, typically after repeated
// failed vetoes. A resolved flag may trigger a ban escalation.
type AccountFlag struct {
	ID         string     `json:"id"`
	ActorID    string     `json:"actor_id"`
	Reason     string     `json:"reason"`
	Status     FlagStatus `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
}

// DenylistEntry blocks new-account creation for a permanently banned
// offender. Email is stored normalized; IPHash is optional.
type DenylistEntry struct {
	Email     string    `json:"email"`
	IPHash    string    `json:"ip_hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
