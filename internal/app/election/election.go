// Package election decides who moderates. The platform moves through
// population phases — bootstrap, early, mature — and once past bootstrap,
// moderators are drawn automatically from the top trust percentile.
package election

import (
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/someoneelse131/purfacted-sub002/internal/domain"
	"github.com/someoneelse131/purfacted-sub002/internal/infra/metrics"
	"github.com/someoneelse131/purfacted-sub002/internal/infra/sqlite"
)

// Phase is the platform-wide election mode, derived from the verified actor
// population.
type Phase string

const (
	PhaseBootstrap Phase = "bootstrap" // manual appointment only
	PhaseEarly     Phase = "early"
	PhaseMature    Phase = "mature"
)

// Config controls elections and the inactivity sweep.
type Config struct {
	// EarlyThreshold: verified actors needed to leave bootstrap.
	EarlyThreshold int
	// MatureThreshold: verified actors needed for the mature phase.
	MatureThreshold int
	// TopPercent: fraction of the eligible pool whose trust qualifies for
	// moderation (0.10 = top 10%).
	TopPercent float64
	// MaxModerators caps the roster.
	MaxModerators int
	// InactivityWindow: a moderator silent longer than this is swept.
	InactivityWindow time.Duration
}

// DefaultConfig returns the platform defaults.
func DefaultConfig() Config {
	return Config{
		EarlyThreshold:   100,
		MatureThreshold:  500,
		TopPercent:       0.10,
		MaxModerators:    25,
		InactivityWindow: 30 * 24 * time.Hour,
	}
}

// Guard serializes batch passes. Elections and inactivity sweeps must not
// interleave with themselves, or two runs could promote into the same freed
// slot. The default guard is an in-process try-lock; deployments with an
// external scheduler can inject their own.
type Guard interface {
	TryAcquire() bool
	Release()
}

type mutexGuard struct{ mu sync.Mutex }

func (g *mutexGuard) TryAcquire() bool { return g.mu.TryLock() }
func (g *mutexGuard) Release()         { g.mu.Unlock() }

// NewGuard returns the default in-process sweep guard.
func NewGuard() Guard { return &mutexGuard{} }

// Controller runs elections and inactivity sweeps.
type Controller struct {
	db    *sqlite.DB
	cfg   Config
	guard Guard

	// now is injectable for testing.
	now func() time.Time
}

// NewController creates an election controller.
func NewController(db *sqlite.DB, cfg Config, guard Guard) *Controller {
	if guard == nil {
		guard = NewGuard()
	}
	return &Controller{db: db, cfg: cfg, guard: guard, now: time.Now}
}

// PhaseFor maps a verified-actor count onto the election phase.
func PhaseFor(verifiedCount int, cfg Config) Phase {
	switch {
	case verifiedCount < cfg.EarlyThreshold:
		return PhaseBootstrap
	case verifiedCount < cfg.MatureThreshold:
		return PhaseEarly
	default:
		return PhaseMature
	}
}

// Phase returns the current election phase.
func (c *Controller) Phase() (Phase, error) {
	n, err := c.db.CountVerified()
	if err != nil {
		return "", fmt.Errorf("count verified: %w", err)
	}
	return PhaseFor(n, c.cfg), nil
}

// TopPercentileCutoff computes the trust score at rank ceil(n × pct) of the
// pool sorted descending by trust. The boundary-rank actor's own score is
// the cutoff, so "score ≥ cutoff" includes them. Returns false for an empty
// pool.
func TopPercentileCutoff(pool []domain.Actor, pct float64) (int64, bool) {
	if len(pool) == 0 {
		return 0, false
	}
	sorted := make([]domain.Actor, len(pool))
	copy(sorted, pool)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].TrustScore != sorted[j].TrustScore {
			return sorted[i].TrustScore > sorted[j].TrustScore
		}
		return sorted[i].ID < sorted[j].ID
	})

	rank := int(math.Ceil(float64(len(sorted)) * pct))
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1].TrustScore, true
}

// Result lists the roster changes one pass produced.
type Result struct {
	Phase    Phase    `json:"phase"`
	Cutoff   int64    `json:"cutoff"`
	Promoted []string `json:"promoted"`
	Demoted  []string `json:"demoted"`
}

// RunElection runs one demote-then-promote pass. Idempotent: with no
// population change a repeat run is a no-op. During bootstrap nothing is
// promoted automatically.
func (c *Controller) RunElection() (*Result, error) {
	if !c.guard.TryAcquire() {
		return nil, domain.ErrSweepInProgress
	}
	defer c.guard.Release()

	res, err := c.runLocked()
	if err != nil {
		return nil, err
	}
	metrics.ElectionsRun.Inc()
	return res, nil
}

// runLocked is the election body; the caller holds the guard.
func (c *Controller) runLocked() (*Result, error) {
	actors, err := c.db.ListActive()
	if err != nil {
		return nil, fmt.Errorf("list actors: %w", err)
	}

	phase := PhaseFor(len(actors), c.cfg)
	result := &Result{Phase: phase}
	if phase == PhaseBootstrap {
		return result, nil
	}

	now := c.now()
	pool, candidates, moderators := partition(actors, now)

	cutoff, ok := TopPercentileCutoff(pool, c.cfg.TopPercent)
	if !ok {
		return result, nil
	}
	result.Cutoff = cutoff

	// Demotion first: moderators whose trust fell below the cutoff drop
	// back to their highest verified credential.
	remaining := make([]domain.Actor, 0, len(moderators))
	for _, m := range moderators {
		if m.TrustScore >= cutoff {
			remaining = append(remaining, m)
			continue
		}
		if err := c.demote(m); err != nil {
			log.Printf("[election] demote %s failed: %v", m.ID, err)
			remaining = append(remaining, m)
			continue
		}
		result.Demoted = append(result.Demoted, m.ID)
	}

	// Promotion fills freed and open slots in descending trust order. A
	// single failed promotion is skipped, not fatal — a racing manual
	// appointment may already have changed the actor.
	result.Promoted = c.fillSlots(candidates, cutoff, c.cfg.MaxModerators-len(remaining))

	return result, nil
}

// partition splits the verified population into the cutoff pool, the
// promotion candidates, and the sitting moderators.
//
// The cutoff pool is everyone who could in principle moderate (banned and
// organization actors excluded, sitting moderators included) so the
// percentile is stable across promotion and demotion decisions.
func partition(actors []domain.Actor, now time.Time) (pool, candidates, moderators []domain.Actor) {
	for _, a := range actors {
		if a.Role == domain.RoleOrganization || a.Banned(now) {
			continue
		}
		pool = append(pool, a)
		if a.Role == domain.RoleModerator {
			moderators = append(moderators, a)
		} else {
			candidates = append(candidates, a)
		}
	}
	return pool, candidates, moderators
}

// fillSlots promotes up to open candidates with trust ≥ cutoff, highest
// first. Returns promoted IDs.
func (c *Controller) fillSlots(candidates []domain.Actor, cutoff int64, open int) []string {
	if open <= 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].TrustScore != candidates[j].TrustScore {
			return candidates[i].TrustScore > candidates[j].TrustScore
		}
		return candidates[i].ID < candidates[j].ID
	})

	var promoted []string
	for _, cand := range candidates {
		if open == 0 {
			break
		}
		if cand.TrustScore < cutoff {
			break
		}
		if err := c.promote(cand); err != nil {
			log.Printf("[election] promote %s failed: %v", cand.ID, err)
			continue
		}
		promoted = append(promoted, cand.ID)
		open--
	}
	return promoted
}

func (c *Controller) promote(a domain.Actor) error {
	if err := c.db.SetCredential(a.ID, fallbackCredential(a)); err != nil {
		return err
	}
	if err := c.db.SetRole(a.ID, domain.RoleModerator); err != nil {
		return err
	}
	metrics.ModeratorsPromoted.Inc()
	return nil
}

func (c *Controller) demote(a domain.Actor) error {
	if err := c.db.SetRole(a.ID, fallbackCredential(a)); err != nil {
		return err
	}
	metrics.ModeratorsDemoted.Inc()
	return nil
}

// fallbackCredential is the role a demoted moderator returns to: their
// highest verified credential, or verified when none is recorded.
func fallbackCredential(a domain.Actor) domain.Role {
	if a.Role != domain.RoleModerator && a.Role.Credential() {
		return a.Role
	}
	if a.Credential.Credential() {
		return a.Credential
	}
	return domain.RoleVerified
}
