package consensus

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/someoneelse131/purfacted-sub002/internal/app/trust"
	"github.com/someoneelse131/purfacted-sub002/internal/domain"
	"github.com/someoneelse131/purfacted-sub002/internal/infra/metrics"
)

// ─── Vetoes ─────────────────────────────────────────────────────────────────
// A veto challenges a published entity. It collects weighted votes like any
// aggregable, but resolution is an explicit operation carrying the
// wrong-vs-outdated classification — that judgement decides the original
// author's penalty and is never inferred from vote polarity.

// SubmitVeto opens a veto against a published entity. Vetoing your own
// content is rejected.
func (s *Service) SubmitVeto(targetID, submitterID string) (*domain.Entity, error) {
	target, err := s.db.GetEntity(targetID)
	if err != nil {
		return nil, err
	}
	if target.AuthorID == submitterID {
		return nil, domain.ErrSelfVeto
	}

	submitter, err := s.db.GetActor(submitterID)
	if err != nil {
		return nil, err
	}
	if submitter.Banned(s.now()) {
		return nil, domain.ErrActorBanned
	}

	veto := domain.Entity{
		ID:        uuid.NewString(),
		Kind:      domain.KindVeto,
		AuthorID:  submitterID,
		SubjectID: targetID,
		Status:    domain.StatusVetoOpen,
		CreatedAt: s.now(),
	}
	if err := s.db.InsertEntity(veto); err != nil {
		return nil, fmt.Errorf("submit veto: %w", err)
	}
	return &veto, nil
}

// VetoOutcome reports a veto resolution with the trust deltas it produced.
type VetoOutcome struct {
	VetoID         string                    `json:"veto_id"`
	Status         string                    `json:"status"`
	Classification domain.VetoClassification `json:"classification,omitempty"`
	SubmitterDelta int64                     `json:"submitter_delta"`
	AuthorDelta    int64                     `json:"author_delta"`
}

// ResolveVeto closes a veto from its vote aggregate. The classification is
// required when the veto succeeds: "wrong" debits the original author the
// full penalty, "outdated" applies the zero-point neutral action. A veto
// short of its minimum vote count stays open.
//
// The open→approved/rejected transition is single-winner; the losing caller
// of a concurrent resolution observes the winner's outcome with no side
// effects of its own.
func (s *Service) ResolveVeto(vetoID string, classification domain.VetoClassification) (*VetoOutcome, error) {
	if !classification.Valid() {
		return nil, domain.ErrInvalidKind
	}

	veto, err := s.db.GetEntity(vetoID)
	if err != nil {
		return nil, err
	}
	if veto.Kind != domain.KindVeto {
		return nil, domain.ErrInvalidKind
	}
	if veto.Status != domain.StatusVetoOpen {
		return nil, domain.ErrVetoResolved
	}

	status := StatusFor(domain.KindVeto, veto.Aggregate, s.cfg.Veto)
	if status == domain.StatusVetoOpen {
		return &VetoOutcome{VetoID: vetoID, Status: status}, nil
	}

	won, err := s.db.TransitionEntity(vetoID, domain.StatusVetoOpen, status)
	if err != nil {
		return nil, fmt.Errorf("resolve veto: %w", err)
	}
	if !won {
		current, err := s.db.GetEntity(vetoID)
		if err != nil {
			return nil, err
		}
		return &VetoOutcome{VetoID: vetoID, Status: current.Status}, nil
	}
	metrics.StatusTransitions.WithLabelValues(string(domain.KindVeto), status).Inc()

	outcome := &VetoOutcome{VetoID: vetoID, Status: status, Classification: classification}

	if status == domain.StatusVetoApproved {
		target, err := s.db.GetEntity(veto.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("veto target: %w", err)
		}
		authorAction := domain.ActionWrongContent
		if classification == domain.VetoOutdated {
			authorAction = domain.ActionNeutralOutdated
		}

		// Both deltas land in one transaction or not at all.
		recs, err := s.ledger.ApplyAll([]trust.Application{
			{ActorID: veto.AuthorID, Kind: domain.ActionVetoSuccess},
			{ActorID: target.AuthorID, Kind: authorAction},
		})
		if err != nil {
			return nil, err
		}
		outcome.SubmitterDelta = recs[0].Points
		outcome.AuthorDelta = recs[1].Points
	} else {
		outcome.SubmitterDelta, _, err = s.ledger.ApplyAction(veto.AuthorID, domain.ActionVetoFail)
		if err != nil {
			return nil, err
		}
	}

	return outcome, nil
}
