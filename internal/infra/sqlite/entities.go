package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/someoneelse131/purfacted-sub002/internal/domain"
)

// ─── Entity Repository ──────────────────────────────────────────────────────

// InsertEntity creates a new aggregable entity.
func (d *DB) InsertEntity(e domain.Entity) error {
	_, err := d.db.Exec(
		`INSERT INTO entities (id, kind, author_id, subject_id, status, vote_count, positive_weight, negative_weight, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Kind, e.AuthorID, e.SubjectID, e.Status,
		e.Aggregate.Count, e.Aggregate.Positive, e.Aggregate.Negative,
		e.CreatedAt.Unix(),
	)
	return err
}

// GetEntity retrieves an entity by ID.
func (d *DB) GetEntity(id string) (*domain.Entity, error) {
	row := d.db.QueryRow(
		`SELECT id, kind, author_id, subject_id, status, vote_count, positive_weight, negative_weight, created_at
		 FROM entities WHERE id = ?`, id,
	)
	e, err := scanEntity(row)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, domain.ErrEntityNotFound
	}
	return e, nil
}

// TransitionEntity updates the status only if the entity is still in `from`.
// Returns true for the single caller that wins the transition; losers get
// false with no error so they can observe the winner's outcome instead.
func (d *DB) TransitionEntity(id, from, to string) (bool, error) {
	res, err := d.db.Exec(
		`UPDATE entities SET status = ? WHERE id = ? AND status = ?`,
		to, id, from,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ─── Vote Repository ────────────────────────────────────────────────────────

// ApplyVote upserts a vote and recomputes the entity's cached aggregate in
// one transaction. A repeat vote from the same voter replaces the stored
// polarity and weight; the (entity, voter) primary key makes duplicates
// impossible even under concurrent casts.
func (d *DB) ApplyVote(v domain.Vote) (domain.Aggregate, error) {
	return d.voteTx(v.EntityID, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`INSERT INTO votes (entity_id, voter_id, polarity, weight, cast_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(entity_id, voter_id) DO UPDATE SET
				polarity=excluded.polarity,
				weight=excluded.weight,
				cast_at=excluded.cast_at`,
			v.EntityID, v.VoterID, v.Polarity, v.Weight, v.CastAt.Unix(),
		)
		return err
	})
}

// RemoveVote deletes a voter's vote and recomputes the aggregate.
func (d *DB) RemoveVote(entityID, voterID string) (domain.Aggregate, error) {
	return d.voteTx(entityID, func(tx *sql.Tx) error {
		_, err := tx.Exec(
			`DELETE FROM votes WHERE entity_id = ? AND voter_id = ?`,
			entityID, voterID,
		)
		return err
	})
}

// VotesFor returns all votes on an entity.
func (d *DB) VotesFor(entityID string) ([]domain.Vote, error) {
	rows, err := d.db.Query(
		`SELECT entity_id, voter_id, polarity, weight, cast_at
		 FROM votes WHERE entity_id = ? ORDER BY cast_at ASC`, entityID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []domain.Vote
	for rows.Next() {
		var v domain.Vote
		var castAt int64
		if err := rows.Scan(&v.EntityID, &v.VoterID, &v.Polarity, &v.Weight, &castAt); err != nil {
			return nil, err
		}
		v.CastAt = time.Unix(castAt, 0)
		votes = append(votes, v)
	}
	return votes, rows.Err()
}

// voteTx runs a vote mutation plus aggregate recompute atomically.
func (d *DB) voteTx(entityID string, mutate func(*sql.Tx) error) (domain.Aggregate, error) {
	var agg domain.Aggregate

	tx, err := d.db.Begin()
	if err != nil {
		return agg, fmt.Errorf("begin vote tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM entities WHERE id = ?`, entityID).Scan(&exists); err != nil {
		return agg, err
	}
	if exists == 0 {
		return agg, domain.ErrEntityNotFound
	}

	if err := mutate(tx); err != nil {
		return agg, fmt.Errorf("mutate vote: %w", err)
	}

	// Recompute from the vote rows — the cached columns on the entity are
	// derived data, never the source of truth.
	err = tx.QueryRow(
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN polarity > 0 THEN weight ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN polarity < 0 THEN weight ELSE 0 END), 0)
		 FROM votes WHERE entity_id = ?`, entityID,
	).Scan(&agg.Count, &agg.Positive, &agg.Negative)
	if err != nil {
		return agg, fmt.Errorf("recompute aggregate: %w", err)
	}

	_, err = tx.Exec(
		`UPDATE entities SET vote_count = ?, positive_weight = ?, negative_weight = ? WHERE id = ?`,
		agg.Count, agg.Positive, agg.Negative, entityID,
	)
	if err != nil {
		return agg, fmt.Errorf("cache aggregate: %w", err)
	}

	return agg, tx.Commit()
}

func scanEntity(s scanner) (*domain.Entity, error) {
	var e domain.Entity
	var createdAt int64

	err := s.Scan(&e.ID, &e.Kind, &e.AuthorID, &e.SubjectID, &e.Status,
		&e.Aggregate.Count, &e.Aggregate.Positive, &e.Aggregate.Negative, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}

	e.CreatedAt = time.Unix(createdAt, 0)
	return &e, nil
}
