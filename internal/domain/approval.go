package domain

import "time"

// ReviewOutcome is the resolution state of a quorum-reviewed request.
type ReviewOutcome string

const (
	OutcomePending  ReviewOutcome = "pending"
	OutcomeApproved ReviewOutcome = "approved"
	OutcomeRejected ReviewOutcome = "rejected"
)

// VerificationRequest asks the expert panel to confirm an actor's
// credentials and upgrade them to TargetRole.
type VerificationRequest struct {
	ID         string        `json:"id"`
	ActorID    string        `json:"actor_id"`
	TargetRole Role          `json:"target_role"`
	Status     ReviewOutcome `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}

// Approval is one reviewer's verdict on a request. Override marks a
// moderator decision that bypassed quorum counting; it is kept as a regular
// record for audit. At most one approval exists per (reviewer, request).
type Approval struct {
	ID         string    `json:"id"`
	RequestID  string    `json:"request_id"`
	ReviewerID string    `json:"reviewer_id"`
	Approved   bool      `json:"approved"`
	Comment    string    `json:"comment,omitempty"`
	Override   bool      `json:"override"`
	CreatedAt  time.Time `json:"created_at"`
}
