package sqlite

import (
	"database/sql"

	"github.com/someoneelse131/purfacted-sub002/internal/domain"
)

// ─── Configuration Tables ───────────────────────────────────────────────────
// Point values, trust tiers, and role weights are deployment-tunable data.
// Empty tables are normal: callers overlay these rows on hard-coded defaults.

// ActionPoints returns all configured action→points overrides.
func (d *DB) ActionPoints() (map[domain.ActionKind]int64, error) {
	rows, err := d.db.Query(`SELECT kind, points FROM config_action_points`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make(map[domain.ActionKind]int64)
	for rows.Next() {
		var kind string
		var p int64
		if err := rows.Scan(&kind, &p); err != nil {
			return nil, err
		}
		points[domain.ActionKind(kind)] = p
	}
	return points, rows.Err()
}

// SetActionPoints stores one action→points override.
func (d *DB) SetActionPoints(kind domain.ActionKind, points int64) error {
	_, err := d.db.Exec(
		`INSERT INTO config_action_points (kind, points) VALUES (?, ?)
		 ON CONFLICT(kind) DO UPDATE SET points=excluded.points`,
		kind, points,
	)
	return err
}

// TrustTiers returns the configured tier table ordered by lower bound.
// An empty result means the deployment runs on the built-in tiers.
func (d *DB) TrustTiers() ([]domain.TrustTier, error) {
	rows, err := d.db.Query(
		`SELECT min_score, max_score, modifier FROM config_trust_tiers
		 ORDER BY COALESCE(min_score, -9223372036854775808) ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tiers []domain.TrustTier
	for rows.Next() {
		var t domain.TrustTier
		var minScore, maxScore sql.NullInt64
		if err := rows.Scan(&minScore, &maxScore, &t.Modifier); err != nil {
			return nil, err
		}
		if minScore.Valid {
			v := minScore.Int64
			t.Min = &v
		}
		if maxScore.Valid {
			v := maxScore.Int64
			t.Max = &v
		}
		tiers = append(tiers, t)
	}
	return tiers, rows.Err()
}

// ReplaceTrustTiers swaps the whole tier table in one transaction.
func (d *DB) ReplaceTrustTiers(tiers []domain.TrustTier) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM config_trust_tiers`); err != nil {
		return err
	}
	for _, t := range tiers {
		var minScore, maxScore sql.NullInt64
		if t.Min != nil {
			minScore = sql.NullInt64{Int64: *t.Min, Valid: true}
		}
		if t.Max != nil {
			maxScore = sql.NullInt64{Int64: *t.Max, Valid: true}
		}
		if _, err := tx.Exec(
			`INSERT INTO config_trust_tiers (min_score, max_score, modifier) VALUES (?, ?, ?)`,
			minScore, maxScore, t.Modifier,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RoleWeights returns all configured role→base-weight overrides.
func (d *DB) RoleWeights() (map[domain.Role]float64, error) {
	rows, err := d.db.Query(`SELECT role, weight FROM config_role_weights`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	weights := make(map[domain.Role]float64)
	for rows.Next() {
		var role string
		var w float64
		if err := rows.Scan(&role, &w); err != nil {
			return nil, err
		}
		weights[domain.Role(role)] = w
	}
	return weights, rows.Err()
}

// SetRoleWeight stores one role→base-weight override.
func (d *DB) SetRoleWeight(role domain.Role, weight float64) error {
	_, err := d.db.Exec(
		`INSERT INTO config_role_weights (role, weight) VALUES (?, ?)
		 ON CONFLICT(role) DO UPDATE SET weight=excluded.weight`,
		role, weight,
	)
	return err
}
