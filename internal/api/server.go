// Package api provides the HTTP surface of the consensus engine. The
// handlers are thin glue: validation and JSON mapping, with all decisions
// made by the app services.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/someoneelse131/purfacted-sub002/internal/app/consensus"
	"github.com/someoneelse131/purfacted-sub002/internal/app/election"
	"github.com/someoneelse131/purfacted-sub002/internal/app/escalation"
	"github.com/someoneelse131/purfacted-sub002/internal/app/trust"
	"github.com/someoneelse131/purfacted-sub002/internal/app/verification"
	"github.com/someoneelse131/purfacted-sub002/internal/domain"
	"github.com/someoneelse131/purfacted-sub002/internal/infra/sqlite"
)

// Server is the engine HTTP API server.
type Server struct {
	db             *sqlite.DB
	ledger         *trust.Ledger
	consensus      *consensus.Service
	verification   *verification.Service
	election       *election.Controller
	escalation     *escalation.Controller
	metricsEnabled bool
}

// NewServer creates a new API server.
func NewServer(db *sqlite.DB, ledger *trust.Ledger, cons *consensus.Service, verif *verification.Service, elect *election.Controller, esc *escalation.Controller) *Server {
	return &Server{
		db:           db,
		ledger:       ledger,
		consensus:    cons,
		verification: verif,
		election:     elect,
		escalation:   esc,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/entities", s.handleCreateEntity)
		r.Get("/entities/{id}", s.handleGetEntity)
		r.Post("/entities/{id}/votes", s.handleRecordVote)
		r.Delete("/entities/{id}/votes/{voter}", s.handleRemoveVote)

		r.Post("/vetoes", s.handleSubmitVeto)
		r.Post("/vetoes/{id}/resolve", s.handleResolveVeto)

		r.Post("/verifications", s.handleSubmitVerification)
		r.Post("/verifications/{id}/reviews", s.handleReview)

		r.Post("/actors", s.handleRegisterActor)
		r.Get("/actors/{id}", s.handleGetActor)
		r.Post("/actors/{id}/login", s.handleTouchLogin)
		r.Get("/actors/{id}/weight", s.handleWeight)
		r.Post("/actors/{id}/comment-votes", s.handleCommentVote)
		r.Get("/moderators", s.handleListModerators)

		r.Get("/election/phase", s.handleElectionPhase)
		r.Post("/election/run", s.handleRunElection)
		r.Post("/election/inactivity", s.handleInactivitySweep)
		r.Post("/election/reinstate/{id}", s.handleReinstate)

		r.Post("/escalations/{id}", s.handleEscalate)
		r.Get("/flags", s.handleListFlags)
		r.Post("/flags/{id}/resolve", s.handleResolveFlag)
		r.Get("/denylist/check", s.handleDenylistCheck)
	})

	return r
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// writeDomainError maps engine errors onto HTTP statuses: not-found errors
// become 404, validation errors 422, the sweep guard 409.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrActorNotFound),
		errors.Is(err, domain.ErrEntityNotFound),
		errors.Is(err, domain.ErrRequestNotFound),
		errors.Is(err, domain.ErrFlagNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrSweepInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidPolarity),
		errors.Is(err, domain.ErrInvalidRole),
		errors.Is(err, domain.ErrInvalidKind),
		errors.Is(err, domain.ErrSelfReview),
		errors.Is(err, domain.ErrDuplicateReview),
		errors.Is(err, domain.ErrSelfVeto),
		errors.Is(err, domain.ErrActorBanned),
		errors.Is(err, domain.ErrReviewClosed),
		errors.Is(err, domain.ErrVetoResolved),
		errors.Is(err, domain.ErrFlagAlreadyOpen),
		errors.Is(err, domain.ErrFlagClosed),
		errors.Is(err, domain.ErrNotModerator):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
