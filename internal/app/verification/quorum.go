// Package verification implements the quorum approval engine for expert
// verification requests. Outcomes are count-based, independent of vote
// weight: a fixed number of reviewer approvals resolves a request.
package verification

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/someoneelse131/purfacted-sub002/internal/app/trust"
	"github.com/someoneelse131/purfacted-sub002/internal/domain"
	"github.com/someoneelse131/purfacted-sub002/internal/infra/metrics"
	"github.com/someoneelse131/purfacted-sub002/internal/infra/sqlite"
)

// Config controls quorum resolution.
type Config struct {
	// Quorum: approvals needed to approve. Rejection needs strictly more
	// than this many rejections — the asymmetry is deliberate.
	Quorum int
}

// DefaultConfig returns the default quorum of 3.
func DefaultConfig() Config {
	return Config{Quorum: 3}
}

// Service reviews verification requests against the quorum rule.
type Service struct {
	db     *sqlite.DB
	ledger *trust.Ledger
	cfg    Config

	// now is injectable for testing.
	now func() time.Time
}

// NewService creates a quorum approval service.
func NewService(db *sqlite.DB, ledger *trust.Ledger, cfg Config) *Service {
	return &Service{db: db, ledger: ledger, cfg: cfg, now: time.Now}
}

// Submit opens a verification request asking to upgrade an actor to
// targetRole.
func (s *Service) Submit(actorID string, targetRole domain.Role) (*domain.VerificationRequest, error) {
	if !targetRole.Credential() {
		return nil, domain.ErrInvalidRole
	}
	if _, err := s.db.GetActor(actorID); err != nil {
		return nil, err
	}

	req := domain.VerificationRequest{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		TargetRole: targetRole,
		Status:     domain.OutcomePending,
		CreatedAt:  s.now(),
	}
	if err := s.db.InsertRequest(req); err != nil {
		return nil, fmt.Errorf("submit request: %w", err)
	}
	return &req, nil
}

// ReviewResult reports a recorded review and the request outcome after it.
type ReviewResult struct {
	Approval domain.Approval      `json:"approval"`
	Outcome  domain.ReviewOutcome `json:"outcome"`
}

// Review records one reviewer verdict and resolves the request if the
// quorum rule is met. Self-review and duplicate review fail regardless of
// the request's state. A moderator's verdict is an override: it forces the
// outcome immediately, bypassing quorum counting, and is stored as a tagged
// approval record for audit.
func (s *Service) Review(requestID, reviewerID string, approved bool, comment string) (*ReviewResult, error) {
	req, err := s.db.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	if req.ActorID == reviewerID {
		return nil, domain.ErrSelfReview
	}
	if has, err := s.db.HasApproval(requestID, reviewerID); err != nil {
		return nil, err
	} else if has {
		return nil, domain.ErrDuplicateReview
	}
	if req.Status != domain.OutcomePending {
		return nil, domain.ErrReviewClosed
	}

	reviewer, err := s.db.GetActor(reviewerID)
	if err != nil {
		return nil, err
	}
	override := reviewer.Role == domain.RoleModerator

	approval := domain.Approval{
		ID:         uuid.NewString(),
		RequestID:  requestID,
		ReviewerID: reviewerID,
		Approved:   approved,
		Comment:    comment,
		Override:   override,
		CreatedAt:  s.now(),
	}
	if err := s.db.InsertApproval(approval); err != nil {
		return nil, err
	}

	verdict := "reject"
	if approved {
		verdict = "approve"
	}
	metrics.ReviewsSubmitted.WithLabelValues(verdict).Inc()

	var outcome domain.ReviewOutcome
	if override {
		if approved {
			outcome = domain.OutcomeApproved
		} else {
			outcome = domain.OutcomeRejected
		}
	} else {
		approvals, err := s.db.ApprovalsFor(requestID)
		if err != nil {
			return nil, err
		}
		var yes, no int
		for _, a := range approvals {
			if a.Approved {
				yes++
			} else {
				no++
			}
		}
		outcome = OutcomeFor(yes, no, s.cfg.Quorum)
	}

	if outcome != domain.OutcomePending {
		outcome, err = s.resolve(req, outcome)
		if err != nil {
			return nil, err
		}
	}

	return &ReviewResult{Approval: approval, Outcome: outcome}, nil
}

// OutcomeFor applies the quorum rule to raw counts. Approval needs at least
// quorum approvals; rejection needs strictly more than quorum rejections.
func OutcomeFor(approvals, rejections, quorum int) domain.ReviewOutcome {
	switch {
	case approvals >= quorum:
		return domain.OutcomeApproved
	case rejections > quorum:
		return domain.OutcomeRejected
	default:
		return domain.OutcomePending
	}
}

// resolve performs the pending→outcome transition and its side effects.
// The conditional update makes the transition single-winner: when two
// reviewers push the count past quorum concurrently, only one of them
// applies the credits and the role upgrade. The loser observes the settled
// outcome without treating it as an error.
func (s *Service) resolve(req *domain.VerificationRequest, outcome domain.ReviewOutcome) (domain.ReviewOutcome, error) {
	won, err := s.db.ResolveRequest(req.ID, outcome, s.now())
	if err != nil {
		return "", fmt.Errorf("resolve request: %w", err)
	}
	if !won {
		settled, err := s.db.GetRequest(req.ID)
		if err != nil {
			return "", err
		}
		return settled.Status, nil
	}

	switch outcome {
	case domain.OutcomeApproved:
		approvals, err := s.db.ApprovalsFor(req.ID)
		if err != nil {
			return "", err
		}
		var apps []trust.Application
		for _, a := range approvals {
			if a.Approved {
				apps = append(apps, trust.Application{ActorID: a.ReviewerID, Kind: domain.ActionVerificationCorrect})
			}
		}
		recs, err := s.ledger.Prepare(apps)
		if err != nil {
			return "", err
		}
		// Credits and the role/credential upgrade land in one transaction.
		if err := s.db.ApproveRequestTx(req.ActorID, req.TargetRole, recs); err != nil {
			return "", fmt.Errorf("apply approval: %w", err)
		}
		s.ledger.Applied(recs)
	case domain.OutcomeRejected:
		if _, _, err := s.ledger.ApplyAction(req.ActorID, domain.ActionVerificationWrong); err != nil {
			return "", err
		}
	}

	return outcome, nil
}
