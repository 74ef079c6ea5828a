package election

import (
	"fmt"
	"log"

	"github.com/someoneelse131/purfacted-sub002/internal/domain"
)

// ─── Inactivity ─────────────────────────────────────────────────────────────

// inactive reports whether a moderator has gone silent: no login past the
// window, or, for accounts that never logged in, no activity since creation.
func (c *Controller) inactive(a domain.Actor) bool {
	return c.now().Sub(a.LastActive()) > c.cfg.InactivityWindow
}

// InactivitySweep demotes every inactive moderator, then immediately refills
// the vacated slots from the eligible candidate pool. Guarded like
// RunElection: only one sweep runs at a time.
func (c *Controller) InactivitySweep() (*Result, error) {
	if !c.guard.TryAcquire() {
		return nil, domain.ErrSweepInProgress
	}
	defer c.guard.Release()

	actors, err := c.db.ListActive()
	if err != nil {
		return nil, fmt.Errorf("list actors: %w", err)
	}

	phase := PhaseFor(len(actors), c.cfg)
	result := &Result{Phase: phase}

	now := c.now()
	pool, candidates, moderators := partition(actors, now)

	remaining := 0
	for _, m := range moderators {
		if !c.inactive(m) {
			remaining++
			continue
		}
		if err := c.demote(m); err != nil {
			log.Printf("[election] inactivity demote %s failed: %v", m.ID, err)
			remaining++
			continue
		}
		result.Demoted = append(result.Demoted, m.ID)
	}

	// Refill only outside bootstrap — manual appointment governs there.
	if phase == PhaseBootstrap {
		return result, nil
	}

	cutoff, ok := TopPercentileCutoff(pool, c.cfg.TopPercent)
	if !ok {
		return result, nil
	}
	result.Cutoff = cutoff
	result.Promoted = c.fillSlots(candidates, cutoff, c.cfg.MaxModerators-remaining)

	return result, nil
}

// ─── Return Flow ────────────────────────────────────────────────────────────

// Reinstate restores a previously demoted moderator who became active
// again. The returner must still be eligible (verified, unbanned, not an
// organization, trust at or above the current cutoff). When the roster is
// full, reinstatement displaces the single lowest-trust sitting moderator —
// and only if that moderator's trust is strictly below the returner's.
func (c *Controller) Reinstate(actorID string) (bool, error) {
	if !c.guard.TryAcquire() {
		return false, domain.ErrSweepInProgress
	}
	defer c.guard.Release()

	returner, err := c.db.GetActor(actorID)
	if err != nil {
		return false, err
	}
	now := c.now()
	if returner.Role == domain.RoleModerator {
		return false, nil // already seated
	}
	if !returner.Verified || returner.Deleted ||
		returner.Role == domain.RoleOrganization || returner.Banned(now) {
		return false, nil
	}

	actors, err := c.db.ListActive()
	if err != nil {
		return false, fmt.Errorf("list actors: %w", err)
	}
	if PhaseFor(len(actors), c.cfg) == PhaseBootstrap {
		return false, nil
	}

	pool, _, moderators := partition(actors, now)
	cutoff, ok := TopPercentileCutoff(pool, c.cfg.TopPercent)
	if !ok || returner.TrustScore < cutoff {
		return false, nil
	}

	if len(moderators) >= c.cfg.MaxModerators {
		lowest := moderators[0]
		for _, m := range moderators[1:] {
			if m.TrustScore < lowest.TrustScore {
				lowest = m
			}
		}
		if lowest.TrustScore >= returner.TrustScore {
			return false, nil
		}
		if err := c.demote(lowest); err != nil {
			return false, fmt.Errorf("displace %s: %w", lowest.ID, err)
		}
	}

	if err := c.promote(*returner); err != nil {
		return false, fmt.Errorf("reinstate %s: %w", actorID, err)
	}
	return true, nil
}
