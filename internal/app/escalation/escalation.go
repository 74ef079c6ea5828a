// Package escalation implements progressive bans and veto-abuse account
// flagging. Both are count-and-threshold driven, not vote driven.
package escalation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/someoneelse131/purfacted-sub002/internal/domain"
	"github.com/someoneelse131/purfacted-sub002/internal/infra/metrics"
	"github.com/someoneelse131/purfacted-sub002/internal/infra/sqlite"
)

// Config controls escalation behavior.
type Config struct {
	// FlagThreshold: failed vetoes at or past this count flag the account.
	FlagThreshold int
	// BanDurations: temporary ban length per level. Level 3 has none — it
	// is permanent.
	BanDurations map[int]time.Duration
}

// DefaultConfig returns the platform defaults.
func DefaultConfig() Config {
	return Config{
		FlagThreshold: 5,
		BanDurations: map[int]time.Duration{
			1: 7 * 24 * time.Hour,
			2: 30 * 24 * time.Hour,
		},
	}
}

// NextBanLevel increments a ban level by exactly one per offense, capped at
// the permanent level. The severity of the triggering action never skips
// levels.
func NextBanLevel(current int) int {
	if current >= domain.MaxBanLevel {
		return domain.MaxBanLevel
	}
	if current < 0 {
		current = 0
	}
	return current + 1
}

// ExpiryFor returns when a ban at the given level lifts, or nil for the
// permanent level 3.
func (c Config) ExpiryFor(level int, now time.Time) *time.Time {
	if level >= domain.MaxBanLevel {
		return nil
	}
	d, ok := c.BanDurations[level]
	if !ok {
		return nil
	}
	t := now.Add(d)
	return &t
}

// ShouldFlag reports whether a failed-veto count warrants an account flag.
func (c Config) ShouldFlag(failedVetoes int) bool {
	return failedVetoes >= c.FlagThreshold
}

// Controller applies escalations against the store.
type Controller struct {
	db  *sqlite.DB
	cfg Config

	// now is injectable for testing.
	now func() time.Time
}

// NewController creates an escalation controller.
func NewController(db *sqlite.DB, cfg Config) *Controller {
	return &Controller{db: db, cfg: cfg, now: time.Now}
}

// Escalation reports one applied ban escalation.
type Escalation struct {
	ActorID string     `json:"actor_id"`
	Level   int        `json:"level"`
	Expires *time.Time `json:"expires,omitempty"`
}

// Escalate bumps an actor's ban by one level. A level-3 ban also lands the
// offender's normalized email and, if supplied, hashed IP on the denylist
// consulted at account creation.
func (c *Controller) Escalate(actorID, ipHash string) (*Escalation, error) {
	actor, err := c.db.GetActor(actorID)
	if err != nil {
		return nil, err
	}
	if actor.BanLevel >= domain.MaxBanLevel {
		// Already permanently banned and denylisted. Nothing left to escalate.
		return &Escalation{ActorID: actorID, Level: domain.MaxBanLevel}, nil
	}

	now := c.now()
	level := NextBanLevel(actor.BanLevel)
	expires := c.cfg.ExpiryFor(level, now)

	if err := c.db.SetBan(actorID, level, expires); err != nil {
		return nil, fmt.Errorf("set ban: %w", err)
	}
	metrics.BansEscalated.WithLabelValues(strconv.Itoa(level)).Inc()

	if level == domain.MaxBanLevel {
		entry := domain.DenylistEntry{
			Email:     NormalizeEmail(actor.Email),
			IPHash:    ipHash,
			CreatedAt: now,
		}
		if err := c.db.InsertDenylist(entry); err != nil {
			return nil, fmt.Errorf("denylist: %w", err)
		}
	}

	return &Escalation{ActorID: actorID, Level: level, Expires: expires}, nil
}

// ─── Account Flags ──────────────────────────────────────────────────────────

// FlagActor opens an abuse flag unless the actor already has one open.
func (c *Controller) FlagActor(actorID, reason string) (*domain.AccountFlag, error) {
	if _, err := c.db.GetActor(actorID); err != nil {
		return nil, err
	}
	open, err := c.db.HasOpenFlag(actorID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, domain.ErrFlagAlreadyOpen
	}

	flag := domain.AccountFlag{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		Reason:    reason,
		Status:    domain.FlagPending,
		CreatedAt: c.now(),
	}
	if err := c.db.InsertFlag(flag); err != nil {
		return nil, fmt.Errorf("insert flag: %w", err)
	}
	metrics.FlagsOpened.Inc()
	return &flag, nil
}

// AutoFlagSweep flags every actor whose failed-veto count reached the
// threshold and who has no open flag yet. Returns the flags it opened.
func (c *Controller) AutoFlagSweep() ([]domain.AccountFlag, error) {
	actors, err := c.db.ListActive()
	if err != nil {
		return nil, fmt.Errorf("list actors: %w", err)
	}

	var opened []domain.AccountFlag
	for _, a := range actors {
		failed, err := c.db.CountActions(a.ID, domain.ActionVetoFail)
		if err != nil {
			return nil, err
		}
		if !c.cfg.ShouldFlag(failed) {
			continue
		}
		flag, err := c.FlagActor(a.ID, fmt.Sprintf("%d failed vetoes", failed))
		if err == domain.ErrFlagAlreadyOpen {
			continue
		}
		if err != nil {
			return nil, err
		}
		opened = append(opened, *flag)
	}
	return opened, nil
}

// ResolveFlag closes a flag as dismissed or resolved. Only moderators may
// resolve; a resolved outcome escalates the flagged actor's ban.
func (c *Controller) ResolveFlag(flagID, moderatorID string, resolved bool) (*domain.AccountFlag, *Escalation, error) {
	mod, err := c.db.GetActor(moderatorID)
	if err != nil {
		return nil, nil, err
	}
	if mod.Role != domain.RoleModerator {
		return nil, nil, domain.ErrNotModerator
	}

	flag, err := c.db.GetFlag(flagID)
	if err != nil {
		return nil, nil, err
	}
	if !flag.Status.Open() {
		return nil, nil, domain.ErrFlagClosed
	}

	status := domain.FlagDismissed
	if resolved {
		status = domain.FlagResolved
	}
	won, err := c.db.CloseFlag(flagID, status, moderatorID, c.now())
	if err != nil {
		return nil, nil, fmt.Errorf("close flag: %w", err)
	}
	if !won {
		return nil, nil, domain.ErrFlagClosed
	}

	flag.Status = status
	flag.ResolvedBy = moderatorID

	var esc *Escalation
	if resolved {
		esc, err = c.Escalate(flag.ActorID, "")
		if err != nil {
			return nil, nil, err
		}
	}
	return flag, esc, nil
}

// ─── Identity Normalization ─────────────────────────────────────────────────

// NormalizeEmail lowercases, trims, and strips a plus-tag from the local
// part, so denylist lookups match trivial aliases of the banned address.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	local, dom := email[:at], email[at+1:]
	if plus := strings.Index(local, "+"); plus >= 0 {
		local = local[:plus]
	}
	return local + "@" + dom
}

// HashIP returns the hex SHA-256 of an IP address. Raw addresses are never
// stored.
func HashIP(ip string) string {
	if ip == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}
