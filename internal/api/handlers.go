package api

import (
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/someoneelse131/purfacted-sub002/internal/app/escalation"
	"github.com/someoneelse131/purfacted-sub002/internal/domain"
)

// ─── Entities & Votes ───────────────────────────────────────────────────────

func (s *Server) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind     string `json:"kind"`
		AuthorID string `json:"author_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	entity, err := s.consensus.CreateEntity(domain.EntityKind(req.Kind), req.AuthorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entity)
}

func (s *Server) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	entity, err := s.db.GetEntity(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (s *Server) handleRecordVote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VoterID  string `json:"voter_id"`
		Polarity int    `json:"polarity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.consensus.RecordVote(chi.URLParam(r, "id"), req.VoterID, req.Polarity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRemoveVote(w http.ResponseWriter, r *http.Request) {
	result, err := s.consensus.RemoveVote(chi.URLParam(r, "id"), chi.URLParam(r, "voter"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleCommentVote(w http.ResponseWriter, r *http.Request) {
	var req struct {
		VoterID  string `json:"voter_id"`
		Polarity int    `json:"polarity"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	delta, newScore, err := s.consensus.RecordCommentVote(chi.URLParam(r, "id"), req.VoterID, req.Polarity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"delta": delta, "new_score": newScore})
}

// ─── Vetoes ─────────────────────────────────────────────────────────────────

func (s *Server) handleSubmitVeto(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetID    string `json:"target_id"`
		SubmitterID string `json:"submitter_id"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	veto, err := s.consensus.SubmitVeto(req.TargetID, req.SubmitterID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, veto)
}

func (s *Server) handleResolveVeto(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Classification string `json:"classification"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	outcome, err := s.consensus.ResolveVeto(chi.URLParam(r, "id"), domain.VetoClassification(req.Classification))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

// ─── Verification ───────────────────────────────────────────────────────────

func (s *Server) handleSubmitVerification(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ActorID    string `json:"actor_id"`
		TargetRole string `json:"target_role"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	request, err := s.verification.Submit(req.ActorID, domain.Role(req.TargetRole))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, request)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ReviewerID string `json:"reviewer_id"`
		Approved   bool   `json:"approved"`
		Comment    string `json:"comment"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := s.verification.Review(chi.URLParam(r, "id"), req.ReviewerID, req.Approved, req.Comment)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ─── Actors ─────────────────────────────────────────────────────────────────

// handleRegisterActor creates an account. Registration is the denylist
// boundary: an email or caller IP matching a permanent-ban entry is refused.
func (s *Server) handleRegisterActor(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string `json:"id"`
		Email    string `json:"email"`
		Role     string `json:"role"`
		Verified bool   `json:"verified"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	role := domain.Role(req.Role)
	if req.Role == "" {
		role = domain.RoleAnonymous
	}
	// Moderator is an elected role, never a registered one.
	if !role.Valid() || role == domain.RoleModerator {
		writeDomainError(w, domain.ErrInvalidRole)
		return
	}

	denied, err := s.db.IsDenylisted(escalation.NormalizeEmail(req.Email), escalation.HashIP(clientIP(r)))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if denied {
		writeError(w, http.StatusForbidden, "registration denied")
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	if _, err := s.db.GetActor(id); err == nil {
		writeError(w, http.StatusConflict, "actor already exists")
		return
	} else if err != domain.ErrActorNotFound {
		writeDomainError(w, err)
		return
	}

	now := time.Now()
	actor := domain.Actor{
		ID:        id,
		Email:     req.Email,
		Role:      role,
		Verified:  req.Verified,
		CreatedAt: now,
		LastLogin: &now,
	}
	if role.Credential() {
		actor.Credential = role
	}
	if err := s.db.UpsertActor(actor); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, actor)
}

// handleTouchLogin stamps an actor's last login, keeping moderators clear of
// the inactivity sweep.
func (s *Server) handleTouchLogin(w http.ResponseWriter, r *http.Request) {
	if err := s.db.TouchLogin(chi.URLParam(r, "id"), time.Now()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetActor(w http.ResponseWriter, r *http.Request) {
	actor, err := s.db.GetActor(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, actor)
}

func (s *Server) handleWeight(w http.ResponseWriter, r *http.Request) {
	actor, err := s.db.GetActor(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	cfg := s.ledger.Config()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"actor_id": actor.ID,
		"role":     actor.Role,
		"score":    actor.TrustScore,
		"modifier": cfg.ModifierFor(actor.TrustScore),
		"weight":   cfg.WeightFor(actor.Role, actor.TrustScore),
	})
}

func (s *Server) handleListModerators(w http.ResponseWriter, r *http.Request) {
	mods, err := s.db.ListModerators()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mods)
}

// clientIP strips the port from the request's remote address. The RealIP
// middleware has already substituted any forwarded address.
func clientIP(r *http.Request) string {
	host := r.RemoteAddr
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return host
}

// ─── Election ───────────────────────────────────────────────────────────────

func (s *Server) handleElectionPhase(w http.ResponseWriter, r *http.Request) {
	phase, err := s.election.Phase()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"phase": string(phase)})
}

func (s *Server) handleRunElection(w http.ResponseWriter, r *http.Request) {
	result, err := s.election.RunElection()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleInactivitySweep(w http.ResponseWriter, r *http.Request) {
	result, err := s.election.InactivitySweep()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReinstate(w http.ResponseWriter, r *http.Request) {
	seated, err := s.election.Reinstate(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"reinstated": seated})
}

// ─── Escalation ─────────────────────────────────────────────────────────────

func (s *Server) handleEscalate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IPHash string `json:"ip_hash"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	esc, err := s.escalation.Escalate(chi.URLParam(r, "id"), req.IPHash)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, esc)
}

func (s *Server) handleListFlags(w http.ResponseWriter, r *http.Request) {
	flags, err := s.db.ListOpenFlags()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, flags)
}

func (s *Server) handleResolveFlag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ModeratorID string `json:"moderator_id"`
		Resolved    bool   `json:"resolved"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	flag, esc, err := s.escalation.ResolveFlag(chi.URLParam(r, "id"), req.ModeratorID, req.Resolved)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"flag": flag, "escalation": esc})
}

func (s *Server) handleDenylistCheck(w http.ResponseWriter, r *http.Request) {
	email := escalation.NormalizeEmail(r.URL.Query().Get("email"))
	ipHash := r.URL.Query().Get("ip_hash")

	denied, err := s.db.IsDenylisted(email, ipHash)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"denylisted": denied})
}
