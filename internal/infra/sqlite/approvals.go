package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/someoneelse131/purfacted-sub002/internal/domain"
)

// ─── Verification Requests ──────────────────────────────────────────────────

// InsertRequest creates a new verification request.
func (d *DB) InsertRequest(r domain.VerificationRequest) error {
	_, err := d.db.Exec(
		`INSERT INTO verification_requests (id, actor_id, target_role, status, created_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, r.ActorID, r.TargetRole, r.Status, r.CreatedAt.Unix(), nullableUnix(r.ResolvedAt),
	)
	return err
}

// GetRequest retrieves a verification request by ID.
func (d *DB) GetRequest(id string) (*domain.VerificationRequest, error) {
	var r domain.VerificationRequest
	var createdAt int64
	var resolvedAt sql.NullInt64

	err := d.db.QueryRow(
		`SELECT id, actor_id, target_role, status, created_at, resolved_at
		 FROM verification_requests WHERE id = ?`, id,
	).Scan(&r.ID, &r.ActorID, &r.TargetRole, &r.Status, &createdAt, &resolvedAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}

	r.CreatedAt = time.Unix(createdAt, 0)
	r.ResolvedAt = unixPtr(resolvedAt)
	return &r, nil
}

// ResolveRequest transitions a request from pending to the given outcome.
// Only one caller wins; the guard on status='pending' makes the approve
// side effects single-shot under concurrent quorum-crossing reviews.
func (d *DB) ResolveRequest(id string, outcome domain.ReviewOutcome, at time.Time) (bool, error) {
	res, err := d.db.Exec(
		`UPDATE verification_requests SET status = ?, resolved_at = ? WHERE id = ? AND status = ?`,
		outcome, at.Unix(), id, domain.OutcomePending,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ApproveRequestTx lands the approve side effects of a resolved request in
// one transaction: the reviewer credit records and the subject's
// role/credential upgrade. Reviewers are never credited for an upgrade that
// did not land.
func (d *DB) ApproveRequestTx(actorID string, role domain.Role, recs []domain.ActionRecord) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin approve tx: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range recs {
		if _, err := applyActionRecord(tx, rec); err != nil {
			return err
		}
	}

	res, err := tx.Exec(
		`UPDATE actors SET role = ?, credential = ? WHERE id = ?`,
		role, role, actorID,
	)
	if err != nil {
		return fmt.Errorf("upgrade actor %s: %w", actorID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrActorNotFound
	}
	return tx.Commit()
}

// ─── Approvals ──────────────────────────────────────────────────────────────

// InsertApproval records a reviewer verdict. The UNIQUE(request, reviewer)
// constraint is the authoritative duplicate guard; a violation surfaces as
// ErrDuplicateReview even when two reviews race.
func (d *DB) InsertApproval(a domain.Approval) error {
	_, err := d.db.Exec(
		`INSERT INTO approvals (id, request_id, reviewer_id, approved, comment, override, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.RequestID, a.ReviewerID, a.Approved, a.Comment, a.Override, a.CreatedAt.Unix(),
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return domain.ErrDuplicateReview
	}
	return err
}

// ApprovalsFor returns all verdicts recorded for a request.
func (d *DB) ApprovalsFor(requestID string) ([]domain.Approval, error) {
	rows, err := d.db.Query(
		`SELECT id, request_id, reviewer_id, approved, comment, override, created_at
		 FROM approvals WHERE request_id = ? ORDER BY created_at ASC`, requestID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var approvals []domain.Approval
	for rows.Next() {
		var a domain.Approval
		var createdAt int64
		if err := rows.Scan(&a.ID, &a.RequestID, &a.ReviewerID, &a.Approved, &a.Comment, &a.Override, &createdAt); err != nil {
			return nil, err
		}
		a.CreatedAt = time.Unix(createdAt, 0)
		approvals = append(approvals, a)
	}
	return approvals, rows.Err()
}

// HasApproval reports whether a reviewer already reviewed a request.
func (d *DB) HasApproval(requestID, reviewerID string) (bool, error) {
	var n int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM approvals WHERE request_id = ? AND reviewer_id = ?`,
		requestID, reviewerID,
	).Scan(&n)
	return n > 0, err
}
