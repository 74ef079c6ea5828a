// Package consensus aggregates weighted votes into entity outcomes: facts
// become proven/disproven/controversial, debates accepted/rejected/split,
// vetoes approved/rejected. Vote weight is captured at cast time from the
// trust ledger.
package consensus

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/someoneelse131/purfacted-sub002/internal/app/trust"
	"github.com/someoneelse131/purfacted-sub002/internal/domain"
	"github.com/someoneelse131/purfacted-sub002/internal/infra/metrics"
	"github.com/someoneelse131/purfacted-sub002/internal/infra/sqlite"
)

// Thresholds is the threshold-plus-minimum-sample rule shared by all
// aggregable kinds. Shares are fractions of (positive + |negative|) weight.
type Thresholds struct {
	MinVotes   int     // below this the entity stays open
	UpperShare float64 // positive share above this wins
	LowerShare float64 // positive share below this loses
}

// Config holds per-kind thresholds.
type Config struct {
	Fact   Thresholds
	Veto   Thresholds
	Debate Thresholds
}

// DefaultConfig returns the platform defaults: 20-vote minimum, 75%/25%
// decision bands for every kind.
func DefaultConfig() Config {
	def := Thresholds{MinVotes: 20, UpperShare: 0.75, LowerShare: 0.25}
	return Config{Fact: def, Veto: def, Debate: def}
}

// ForKind returns the thresholds for an entity kind.
func (c Config) ForKind(kind domain.EntityKind) Thresholds {
	switch kind {
	case domain.KindVeto:
		return c.Veto
	case domain.KindDebate:
		return c.Debate
	default:
		return c.Fact
	}
}

// Service is the consensus aggregator.
type Service struct {
	db     *sqlite.DB
	ledger *trust.Ledger
	cfg    Config

	// now is injectable for testing.
	now func() time.Time
}

// NewService creates a consensus aggregator.
func NewService(db *sqlite.DB, ledger *trust.Ledger, cfg Config) *Service {
	return &Service{db: db, ledger: ledger, cfg: cfg, now: time.Now}
}

// VoteResult is returned to the caller with enough detail to notify users.
type VoteResult struct {
	Vote      domain.Vote      `json:"vote"`
	Aggregate domain.Aggregate `json:"aggregate"`
	Status    string           `json:"status"`
	Changed   bool             `json:"status_changed"`
}

// CreateEntity registers a new fact or published debate for voting.
func (s *Service) CreateEntity(kind domain.EntityKind, authorID string) (*domain.Entity, error) {
	if !kind.Valid() || kind == domain.KindVeto {
		return nil, domain.ErrInvalidKind
	}
	if _, err := s.db.GetActor(authorID); err != nil {
		return nil, err
	}

	e := domain.Entity{
		ID:        uuid.NewString(),
		Kind:      kind,
		AuthorID:  authorID,
		Status:    domain.OpenStatus(kind),
		CreatedAt: s.now(),
	}
	if err := s.db.InsertEntity(e); err != nil {
		return nil, fmt.Errorf("create %s: %w", kind, err)
	}
	return &e, nil
}

// RecordVote casts or re-casts a vote. Idempotent per (voter, entity): a
// repeat call updates the stored polarity, re-captures the weight at the
// current trust level, and recomputes the aggregate — the vote count never
// grows. Banned voters are rejected.
func (s *Service) RecordVote(entityID, voterID string, polarity int) (*VoteResult, error) {
	if polarity != 1 && polarity != -1 {
		return nil, domain.ErrInvalidPolarity
	}

	voter, err := s.db.GetActor(voterID)
	if err != nil {
		return nil, err
	}
	if voter.Banned(s.now()) {
		return nil, domain.ErrActorBanned
	}

	entity, err := s.db.GetEntity(entityID)
	if err != nil {
		return nil, err
	}

	vote := domain.Vote{
		EntityID: entityID,
		VoterID:  voterID,
		Polarity: polarity,
		Weight:   s.ledger.Config().WeightFor(voter.Role, voter.TrustScore),
		CastAt:   s.now(),
	}

	agg, err := s.db.ApplyVote(vote)
	if err != nil {
		return nil, fmt.Errorf("record vote: %w", err)
	}
	metrics.VotesCast.WithLabelValues(string(entity.Kind)).Inc()

	status, changed, err := s.refreshStatus(entity, agg)
	if err != nil {
		return nil, err
	}

	return &VoteResult{Vote: vote, Aggregate: agg, Status: status, Changed: changed}, nil
}

// RemoveVote deletes a voter's vote and recomputes the aggregate and status.
func (s *Service) RemoveVote(entityID, voterID string) (*VoteResult, error) {
	entity, err := s.db.GetEntity(entityID)
	if err != nil {
		return nil, err
	}

	agg, err := s.db.RemoveVote(entityID, voterID)
	if err != nil {
		return nil, fmt.Errorf("remove vote: %w", err)
	}
	metrics.VotesRemoved.WithLabelValues(string(entity.Kind)).Inc()

	status, changed, err := s.refreshStatus(entity, agg)
	if err != nil {
		return nil, err
	}

	return &VoteResult{Aggregate: agg, Status: status, Changed: changed}, nil
}

// StatusFor computes the outcome state for an aggregate under the given
// thresholds. Pure; the caller supplies everything.
//
// Below MinVotes the entity stays open regardless of share — five positive
// votes and zero negative is still an open question. A zero decision weight
// (all votes weightless) also stays open.
func StatusFor(kind domain.EntityKind, agg domain.Aggregate, th Thresholds) string {
	if agg.Count < th.MinVotes {
		return domain.OpenStatus(kind)
	}
	share, ok := agg.PositiveShare()
	if !ok {
		return domain.OpenStatus(kind)
	}

	switch kind {
	case domain.KindVeto:
		// Vetoes are binary: the middle band is not enough to overturn
		// published content, so anything short of a clear win rejects.
		if share > th.UpperShare {
			return domain.StatusVetoApproved
		}
		return domain.StatusVetoRejected
	case domain.KindDebate:
		switch {
		case share > th.UpperShare:
			return domain.StatusDebateAccepted
		case share < th.LowerShare:
			return domain.StatusDebateRejected
		default:
			return domain.StatusDebateSplit
		}
	default:
		switch {
		case share > th.UpperShare:
			return domain.StatusProven
		case share < th.LowerShare:
			return domain.StatusDisproven
		default:
			return domain.StatusControversial
		}
	}
}

// terminal reports whether a fact/debate status is final. Once decided, the
// aggregate keeps updating but the status and its author side effects are
// settled.
func terminal(kind domain.EntityKind, status string) bool {
	switch kind {
	case domain.KindFact:
		return status == domain.StatusProven || status == domain.StatusDisproven
	case domain.KindDebate:
		return status == domain.StatusDebateAccepted || status == domain.StatusDebateRejected
	case domain.KindVeto:
		return status != domain.StatusVetoOpen
	}
	return false
}

// refreshStatus recomputes and stores the entity status after a vote change.
// Vetoes resolve only through ResolveVeto (the classification is a required
// input there), so their status is left alone here.
func (s *Service) refreshStatus(entity *domain.Entity, agg domain.Aggregate) (string, bool, error) {
	if entity.Kind == domain.KindVeto {
		return entity.Status, false, nil
	}
	if terminal(entity.Kind, entity.Status) {
		return entity.Status, false, nil
	}

	next := StatusFor(entity.Kind, agg, s.cfg.ForKind(entity.Kind))
	if next == entity.Status {
		return entity.Status, false, nil
	}

	// Guarded on the previous status: under concurrent votes only one
	// caller applies the transition and its side effects.
	won, err := s.db.TransitionEntity(entity.ID, entity.Status, next)
	if err != nil {
		return "", false, fmt.Errorf("transition %s: %w", entity.ID, err)
	}
	if !won {
		current, err := s.db.GetEntity(entity.ID)
		if err != nil {
			return "", false, err
		}
		return current.Status, false, nil
	}
	metrics.StatusTransitions.WithLabelValues(string(entity.Kind), next).Inc()

	if terminal(entity.Kind, next) {
		if err := s.settleAuthor(entity, next); err != nil {
			return "", false, err
		}
	}
	return next, true, nil
}

// settleAuthor credits or debits the author once their entity reaches a
// final status.
func (s *Service) settleAuthor(entity *domain.Entity, status string) error {
	var kind domain.ActionKind
	switch status {
	case domain.StatusProven, domain.StatusDebateAccepted:
		kind = domain.ActionApprovedContent
	case domain.StatusDisproven, domain.StatusDebateRejected:
		kind = domain.ActionWrongContent
	default:
		return nil
	}
	if _, _, err := s.ledger.ApplyAction(entity.AuthorID, kind); err != nil {
		return fmt.Errorf("settle author %s: %w", entity.AuthorID, err)
	}
	return nil
}

// RecordCommentVote applies a discussion upvote/downvote to the comment
// author's trust. Comment votes do not aggregate into an entity status; the
// trust delta is the whole effect.
func (s *Service) RecordCommentVote(authorID, voterID string, polarity int) (delta, newScore int64, err error) {
	if polarity != 1 && polarity != -1 {
		return 0, 0, domain.ErrInvalidPolarity
	}
	voter, err := s.db.GetActor(voterID)
	if err != nil {
		return 0, 0, err
	}
	if voter.Banned(s.now()) {
		return 0, 0, domain.ErrActorBanned
	}

	kind := domain.ActionReceivedUpvote
	if polarity < 0 {
		kind = domain.ActionReceivedDownvote
	}
	return s.ledger.ApplyAction(authorID, kind)
}
