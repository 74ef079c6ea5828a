package trust

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/someoneelse131/purfacted-sub002/internal/domain"
	"github.com/someoneelse131/purfacted-sub002/internal/infra/metrics"
	"github.com/someoneelse131/purfacted-sub002/internal/infra/sqlite"
)

// Ledger applies trust-affecting actions to actors. It is the only mutator
// of trust scores; the increment happens relative to the stored value so
// concurrent actions against the same actor are never lost.
type Ledger struct {
	db  *sqlite.DB
	cfg Config

	// now is injectable for testing.
	now func() time.Time
}

// NewLedger creates a trust ledger over the given config snapshot.
func NewLedger(db *sqlite.DB, cfg Config) *Ledger {
	return &Ledger{db: db, cfg: cfg, now: time.Now}
}

// Config returns the ledger's config snapshot.
func (l *Ledger) Config() Config { return l.cfg }

// ApplyAction records one trust-affecting event: appends an immutable action
// record and atomically increments the actor's score. Returns the applied
// delta and the new score.
func (l *Ledger) ApplyAction(actorID string, kind domain.ActionKind) (delta, newScore int64, err error) {
	if !kind.Valid() {
		return 0, 0, domain.ErrInvalidKind
	}

	rec := domain.ActionRecord{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		Kind:      kind,
		Points:    l.cfg.PointsFor(kind),
		CreatedAt: l.now(),
	}
	newScore, err = l.db.ApplyTrustAction(rec)
	if err != nil {
		return 0, 0, fmt.Errorf("apply %s: %w", kind, err)
	}

	metrics.TrustActionsApplied.WithLabelValues(string(kind)).Inc()
	metrics.TrustPointsDelta.Add(float64(rec.Points))

	return rec.Points, newScore, nil
}

// Application is one intended trust mutation in a multi-actor side effect.
type Application struct {
	ActorID string
	Kind    domain.ActionKind
}

// Prepare stamps a batch of intended mutations into action records without
// applying them. Callers that need the records inside a wider storage
// transaction build them here and count them with Applied afterwards.
func (l *Ledger) Prepare(apps []Application) ([]domain.ActionRecord, error) {
	recs := make([]domain.ActionRecord, 0, len(apps))
	now := l.now()
	for _, app := range apps {
		if !app.Kind.Valid() {
			return nil, domain.ErrInvalidKind
		}
		recs = append(recs, domain.ActionRecord{
			ID:        uuid.NewString(),
			ActorID:   app.ActorID,
			Kind:      app.Kind,
			Points:    l.cfg.PointsFor(app.Kind),
			CreatedAt: now,
		})
	}
	return recs, nil
}

// Applied counts records that landed in storage.
func (l *Ledger) Applied(recs []domain.ActionRecord) {
	for _, rec := range recs {
		metrics.TrustActionsApplied.WithLabelValues(string(rec.Kind)).Inc()
		metrics.TrustPointsDelta.Add(float64(rec.Points))
	}
}

// ApplyAll applies several trust mutations atomically — all land or none
// do. Used for outcomes that touch more than one actor, like a veto
// resolution crediting the submitter and debiting the author.
func (l *Ledger) ApplyAll(apps []Application) ([]domain.ActionRecord, error) {
	recs, err := l.Prepare(apps)
	if err != nil {
		return nil, err
	}

	if err := l.db.ApplyTrustActions(recs); err != nil {
		return nil, fmt.Errorf("apply batch: %w", err)
	}

	l.Applied(recs)
	return recs, nil
}

// PreviewAction computes what ApplyAction would do to a score, without any
// side effects. Safe to call from preview UIs and statistics.
func (l *Ledger) PreviewAction(currentScore int64, kind domain.ActionKind) (delta, newScore int64, newModifier float64) {
	delta = l.cfg.PointsFor(kind)
	newScore = currentScore + delta
	return delta, newScore, l.cfg.ModifierFor(newScore)
}
