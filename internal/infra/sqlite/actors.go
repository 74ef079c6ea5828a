package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/someoneelse131/purfacted-sub002/internal/domain"
)

// ─── Actor Repository ───────────────────────────────────────────────────────

// UpsertActor inserts or updates an actor record.
func (d *DB) UpsertActor(a domain.Actor) error {
	_, err := d.db.Exec(
		`INSERT INTO actors (id, email, role, credential, trust_score, ban_level, ban_expires, verified, deleted, created_at, last_login)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			email=excluded.email,
			role=excluded.role,
			credential=excluded.credential,
			trust_score=excluded.trust_score,
			ban_level=excluded.ban_level,
			ban_expires=excluded.ban_expires,
			verified=excluded.verified,
			deleted=excluded.deleted,
			last_login=excluded.last_login`,
		a.ID, a.Email, a.Role, a.Credential, a.TrustScore, a.BanLevel,
		nullableUnix(a.BanExpires), a.Verified, a.Deleted,
		a.CreatedAt.Unix(), nullableUnix(a.LastLogin),
	)
	return err
}

// GetActor retrieves a single actor by ID.
func (d *DB) GetActor(id string) (*domain.Actor, error) {
	row := d.db.QueryRow(
		`SELECT id, email, role, credential, trust_score, ban_level, ban_expires, verified, deleted, created_at, last_login
		 FROM actors WHERE id = ?`, id,
	)
	a, err := scanActor(row)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, domain.ErrActorNotFound
	}
	return a, nil
}

// applyActionRecord increments the actor's score and appends the action
// record inside the caller's transaction. The increment runs against the
// stored value, never a caller-cached one, so concurrent deltas cannot be
// lost — and the score never moves without its matching record.
func applyActionRecord(tx *sql.Tx, rec domain.ActionRecord) (int64, error) {
	var score int64
	err := tx.QueryRow(
		`UPDATE actors SET trust_score = trust_score + ? WHERE id = ? RETURNING trust_score`,
		rec.Points, rec.ActorID,
	).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, domain.ErrActorNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("add trust %s: %w", rec.ActorID, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO trust_actions (id, actor_id, kind, points, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.ActorID, rec.Kind, rec.Points, rec.CreatedAt.Unix(),
	); err != nil {
		return 0, fmt.Errorf("record action %s: %w", rec.ActorID, err)
	}
	return score, nil
}

// ApplyTrustAction applies one increment plus its action record in a single
// transaction and returns the new score.
func (d *DB) ApplyTrustAction(rec domain.ActionRecord) (int64, error) {
	tx, err := d.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin trust tx: %w", err)
	}
	defer tx.Rollback()

	score, err := applyActionRecord(tx, rec)
	if err != nil {
		return 0, err
	}
	return score, tx.Commit()
}

// ApplyTrustActions applies several increments plus their action records in
// one transaction. Multi-actor side effects (veto resolution touching the
// submitter and the author) go through here so they land atomically or not
// at all.
func (d *DB) ApplyTrustActions(recs []domain.ActionRecord) error {
	if len(recs) == 0 {
		return nil
	}
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("begin trust tx: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range recs {
		if _, err := applyActionRecord(tx, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// CountActions counts an actor's recorded actions of one kind.
func (d *DB) CountActions(actorID string, kind domain.ActionKind) (int, error) {
	var n int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM trust_actions WHERE actor_id = ? AND kind = ?`,
		actorID, kind,
	).Scan(&n)
	return n, err
}

// SetRole updates an actor's role.
func (d *DB) SetRole(actorID string, role domain.Role) error {
	res, err := d.db.Exec(`UPDATE actors SET role = ? WHERE id = ?`, role, actorID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrActorNotFound
	}
	return nil
}

// SetCredential records an actor's highest verified credential.
func (d *DB) SetCredential(actorID string, credential domain.Role) error {
	_, err := d.db.Exec(`UPDATE actors SET credential = ? WHERE id = ?`, credential, actorID)
	return err
}

// SetBan updates an actor's ban level and expiry.
func (d *DB) SetBan(actorID string, level int, expires *time.Time) error {
	res, err := d.db.Exec(
		`UPDATE actors SET ban_level = ?, ban_expires = ? WHERE id = ?`,
		level, nullableUnix(expires), actorID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrActorNotFound
	}
	return nil
}

// TouchLogin records an actor login. Drives the inactivity sweep.
func (d *DB) TouchLogin(actorID string, t time.Time) error {
	res, err := d.db.Exec(`UPDATE actors SET last_login = ? WHERE id = ?`, t.Unix(), actorID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrActorNotFound
	}
	return nil
}

// CountVerified counts verified, non-deleted actors. The election phase is
// derived from this number.
func (d *DB) CountVerified() (int, error) {
	var n int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM actors WHERE verified = 1 AND deleted = 0`,
	).Scan(&n)
	return n, err
}

// ListActive returns all verified, non-deleted actors. The election
// controller applies the remaining eligibility rules in memory.
func (d *DB) ListActive() ([]domain.Actor, error) {
	rows, err := d.db.Query(
		`SELECT id, email, role, credential, trust_score, ban_level, ban_expires, verified, deleted, created_at, last_login
		 FROM actors WHERE verified = 1 AND deleted = 0 ORDER BY trust_score DESC, id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actors []domain.Actor
	for rows.Next() {
		a, err := scanActor(rows)
		if err != nil {
			return nil, err
		}
		actors = append(actors, *a)
	}
	return actors, rows.Err()
}

// ListModerators returns all actors currently holding the moderator role.
func (d *DB) ListModerators() ([]domain.Actor, error) {
	rows, err := d.db.Query(
		`SELECT id, email, role, credential, trust_score, ban_level, ban_expires, verified, deleted, created_at, last_login
		 FROM actors WHERE role = ? AND deleted = 0 ORDER BY trust_score ASC, id ASC`,
		domain.RoleModerator,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actors []domain.Actor
	for rows.Next() {
		a, err := scanActor(rows)
		if err != nil {
			return nil, err
		}
		actors = append(actors, *a)
	}
	return actors, rows.Err()
}

func scanActor(s scanner) (*domain.Actor, error) {
	var a domain.Actor
	var createdAt int64
	var banExpires, lastLogin sql.NullInt64
	var credential string

	err := s.Scan(&a.ID, &a.Email, &a.Role, &credential, &a.TrustScore,
		&a.BanLevel, &banExpires, &a.Verified, &a.Deleted, &createdAt, &lastLogin)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}

	a.Credential = domain.Role(credential)
	a.CreatedAt = time.Unix(createdAt, 0)
	a.BanExpires = unixPtr(banExpires)
	a.LastLogin = unixPtr(lastLogin)
	return &a, nil
}
