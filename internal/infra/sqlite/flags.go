package sqlite

import (
	"database/sql"
	"time"

	"github.com/someoneelse131/purfacted-sub002/internal/domain"
)

// ─── Account Flags ──────────────────────────────────────────────────────────

// InsertFlag creates a new account flag.
func (d *DB) InsertFlag(f domain.AccountFlag) error {
	_, err := d.db.Exec(
		`INSERT INTO flags (id, actor_id, reason, status, created_at, resolved_at, resolved_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.ActorID, f.Reason, f.Status, f.CreatedAt.Unix(), nullableUnix(f.ResolvedAt), f.ResolvedBy,
	)
	return err
}

// GetFlag retrieves a flag by ID.
func (d *DB) GetFlag(id string) (*domain.AccountFlag, error) {
	row := d.db.QueryRow(
		`SELECT id, actor_id, reason, status, created_at, resolved_at, resolved_by
		 FROM flags WHERE id = ?`, id,
	)
	f, err := scanFlag(row)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, domain.ErrFlagNotFound
	}
	return f, nil
}

// HasOpenFlag reports whether the actor has a flag in pending or reviewing.
func (d *DB) HasOpenFlag(actorID string) (bool, error) {
	var n int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM flags WHERE actor_id = ? AND status IN (?, ?)`,
		actorID, domain.FlagPending, domain.FlagReviewing,
	).Scan(&n)
	return n > 0, err
}

// CloseFlag transitions an open flag to dismissed or resolved. Returns false
// when another moderator already closed it.
func (d *DB) CloseFlag(id string, status domain.FlagStatus, by string, at time.Time) (bool, error) {
	res, err := d.db.Exec(
		`UPDATE flags SET status = ?, resolved_at = ?, resolved_by = ?
		 WHERE id = ? AND status IN (?, ?)`,
		status, at.Unix(), by, id, domain.FlagPending, domain.FlagReviewing,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ListOpenFlags returns all flags awaiting moderator review.
func (d *DB) ListOpenFlags() ([]domain.AccountFlag, error) {
	rows, err := d.db.Query(
		`SELECT id, actor_id, reason, status, created_at, resolved_at, resolved_by
		 FROM flags WHERE status IN (?, ?) ORDER BY created_at ASC`,
		domain.FlagPending, domain.FlagReviewing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []domain.AccountFlag
	for rows.Next() {
		f, err := scanFlag(rows)
		if err != nil {
			return nil, err
		}
		flags = append(flags, *f)
	}
	return flags, rows.Err()
}

func scanFlag(s scanner) (*domain.AccountFlag, error) {
	var f domain.AccountFlag
	var createdAt int64
	var resolvedAt sql.NullInt64

	err := s.Scan(&f.ID, &f.ActorID, &f.Reason, &f.Status, &createdAt, &resolvedAt, &f.ResolvedBy)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}

	f.CreatedAt = time.Unix(createdAt, 0)
	f.ResolvedAt = unixPtr(resolvedAt)
	return &f, nil
}

// ─── Denylist ───────────────────────────────────────────────────────────────

// InsertDenylist records a permanent-ban denylist entry. Re-inserting the
// same identity pair is a no-op.
func (d *DB) InsertDenylist(e domain.DenylistEntry) error {
	_, err := d.db.Exec(
		`INSERT INTO denylist (email, ip_hash, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(email, ip_hash) DO NOTHING`,
		e.Email, e.IPHash, e.CreatedAt.Unix(),
	)
	return err
}

// IsDenylisted reports whether either the normalized email or the hashed IP
// matches a denylist entry. The account-creation boundary consults this.
func (d *DB) IsDenylisted(email, ipHash string) (bool, error) {
	var n int
	err := d.db.QueryRow(
		`SELECT COUNT(*) FROM denylist
		 WHERE (email != '' AND email = ?) OR (ip_hash != '' AND ip_hash = ?)`,
		email, ipHash,
	).Scan(&n)
	return n > 0, err
}
