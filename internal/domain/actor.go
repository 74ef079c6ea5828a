// Package domain holds the pure types of the consensus engine.
// No infrastructure dependencies; everything here is storage- and
// transport-agnostic.
package domain

import "time"

// Role is the platform role of an actor. Roles determine the base voting
// weight and what operations an actor may perform.
type Role string

const (
	RoleAnonymous    Role = "anonymous"
	RoleVerified     Role = "verified"
	RoleExpert       Role = "expert"
	RoleDoctorate    Role = "doctorate"
	RoleOrganization Role = "organization"
	RoleModerator    Role = "moderator"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAnonymous, RoleVerified, RoleExpert, RoleDoctorate, RoleOrganization, RoleModerator:
		return true
	}
	return false
}

// Credential reports whether r is a verified credential an actor can fall
// back to when demoted from moderator.
func (r Role) Credential() bool {
	switch r {
	case RoleVerified, RoleExpert, RoleDoctorate:
		return true
	}
	return false
}

// MaxBanLevel is the permanent ban. Escalation never goes past it.
const MaxBanLevel = 3

// Actor is any participant: user, organization, or moderator.
// TrustScore is a signed integer, unbounded in both directions.
type Actor struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	Role       Role       `json:"role"`
	Credential Role       `json:"credential"` // highest verified credential, for demotion
	TrustScore int64      `json:"trust_score"`
	BanLevel   int        `json:"ban_level"` // 0..3
	BanExpires *time.Time `json:"ban_expires,omitempty"`
	Verified   bool       `json:"verified"`
	Deleted    bool       `json:"deleted"`
	CreatedAt  time.Time  `json:"created_at"`
	LastLogin  *time.Time `json:"last_login,omitempty"`
}

// Banned reports whether the actor is banned at the given instant.
// Level 3 is permanent; lower levels expire.
func (a *Actor) Banned(now time.Time) bool {
	if a.BanLevel == 0 {
		return false
	}
	if a.BanLevel >= MaxBanLevel {
		return true
	}
	if a.BanExpires == nil {
		return true
	}
	return now.Before(*a.BanExpires)
}

// LastActive returns the reference instant for inactivity checks:
// the last login, or account creation if the actor never logged in.
func (a *Actor) LastActive() time.Time {
	if a.LastLogin != nil {
		return *a.LastLogin
	}
	return a.CreatedAt
}
