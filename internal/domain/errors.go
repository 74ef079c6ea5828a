package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency. Not-found errors are
// distinct from validation errors so callers can map them to different HTTP
// statuses.

var (
	// Not-found errors
	ErrActorNotFound   = errors.New("actor not found")
	ErrEntityNotFound  = errors.New("entity not found")
	ErrRequestNotFound = errors.New("verification request not found")
	ErrFlagNotFound    = errors.New("account flag not found")

	// Validation errors — rejected synchronously, never partially applied
	ErrInvalidPolarity = errors.New("vote polarity must be +1 or -1")
	ErrInvalidRole     = errors.New("unknown role")
	ErrInvalidKind     = errors.New("unknown action or entity kind")
	ErrSelfReview      = errors.New("cannot review your own verification request")
	ErrDuplicateReview = errors.New("already reviewed this request")
	ErrSelfVeto        = errors.New("cannot veto your own content")
	ErrActorBanned     = errors.New("actor is banned")
	ErrReviewClosed    = errors.New("verification request already resolved")
	ErrVetoResolved    = errors.New("veto already resolved")
	ErrFlagAlreadyOpen = errors.New("actor already has an open flag")
	ErrFlagClosed      = errors.New("account flag already closed")
	ErrNotModerator    = errors.New("actor is not a moderator")

	// Coordination errors
	ErrSweepInProgress = errors.New("another sweep is already running")
)
