package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"trading-signal-console/internal/domain"
	"trading-signal-console/internal/domain/model"
	red "trading-signal-console/internal/infra/redis"
)

// keyResponse carries the derived state as the status field; the timestamps
// are detail, never an alternate source of truth.
type keyResponse struct {
	ID                int64          `json:"id"`
	Secret            string         `json:"secret"`
	DurationDays      int            `json:"duration_days"`
	Note              string         `json:"note,omitempty"`
	State             model.KeyState `json:"state"`
	CreatedAt         time.Time      `json:"created_at"`
	UsedByPrincipalID *int64         `json:"used_by_principal_id,omitempty"`
	UsedAt            *time.Time     `json:"used_at,omitempty"`
	RevokedAt         *time.Time     `json:"revoked_at,omitempty"`
}

func toKeyResponse(k *model.ActivationKey) keyResponse {
	return keyResponse{
		ID:                k.ID,
		Secret:            k.Secret,
		DurationDays:      k.DurationDays,
		Note:              k.Note,
		State:             k.State(),
		CreatedAt:         k.CreatedAt,
		UsedByPrincipalID: k.UsedByPrincipalID,
		UsedAt:            k.UsedAt,
		RevokedAt:         k.RevokedAt,
	}
}

type generateKeysRequest struct {
	DurationDays int    `json:"duration_days"`
	Count        int    `json:"count"`
	Note         string `json:"note"`
}

func (s *Server) handleGenerateKeys(w http.ResponseWriter, r *http.Request) {
	var req generateKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	keys, err := s.issuerUC.Generate(r.Context(), req.DurationDays, req.Count, req.Note)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]keyResponse, len(keys))
	for i, k := range keys {
		out[i] = toKeyResponse(k)
	}
	writeJSON(w, http.StatusCreated, struct {
		Keys []keyResponse `json:"keys"`
	}{Keys: out})
}

func (s *Server) handleListKeys(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	keys, err := s.keyAdminUC.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]keyResponse, len(keys))
	for i, k := range keys {
		out[i] = toKeyResponse(k)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetKey(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid key id", http.StatusBadRequest)
		return
	}
	key, err := s.keyAdminUC.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toKeyResponse(key))
}

func (s *Server) handleRevokeKey(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid key id", http.StatusBadRequest)
		return
	}
	if err := s.keyAdminUC.Revoke(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type redeemRequest struct {
	Secret string `json:"secret"`
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	pid, err := claims.PrincipalID()
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	allowed, err := s.limiter.Allow(r.Context(), red.RedeemAttemptKey(pid), s.limit.Attempts, s.limit.Window)
	if err != nil {
		s.log.Error().Err(err).Msg("redeem rate limiter unavailable")
		http.Error(w, "Service unavailable", http.StatusServiceUnavailable)
		return
	}
	if !allowed {
		http.Error(w, "Too many attempts", http.StatusTooManyRequests)
		return
	}

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	days, err := s.redeemerUC.Redeem(r.Context(), req.Secret, pid)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		DurationDays int `json:"duration_days"`
	}{DurationDays: days})
}

type groupRequest struct {
	Name        string   `json:"name"`
	AllowedTabs []string `json:"allowed_tabs"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	g, err := s.groupUC.Create(r.Context(), req.Name, req.AllowedTabs)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.groupUC.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid group id", http.StatusBadRequest)
		return
	}
	if err := s.groupUC.Delete(r.Context(), id); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setTabsRequest struct {
	AllowedTabs []string `json:"allowed_tabs"`
}

func (s *Server) handleSetGroupTabs(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid group id", http.StatusBadRequest)
		return
	}
	var req setTabsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.groupUC.SetAllowedTabs(r.Context(), id, req.AllowedTabs); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignGroupRequest struct {
	GroupID int64 `json:"group_id"`
}

func (s *Server) handleAssignGroup(w http.ResponseWriter, r *http.Request) {
	pid, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid principal id", http.StatusBadRequest)
		return
	}
	var req assignGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.groupUC.AssignPrincipal(r.Context(), pid, req.GroupID); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAccessCheck serves the UI guards. A caller may ask about itself;
// asking about another principal requires the admin tab.
func (s *Server) handleAccessCheck(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	selfID, err := claims.PrincipalID()
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	pid := selfID
	if raw := r.URL.Query().Get("principal_id"); raw != "" {
		pid, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "Invalid principal id", http.StatusBadRequest)
			return
		}
	}
	if pid != selfID && !s.accessUC.IsAllowed(r.Context(), selfID, model.TabAdmin) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	tab, err := model.ParseTab(r.URL.Query().Get("tab"))
	if err != nil {
		http.Error(w, "Unknown tab", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Allowed bool `json:"allowed"`
	}{Allowed: s.accessUC.IsAllowed(r.Context(), pid, tab)})
}

// handleAccessTabs returns the principal's whole tab set in one call, for
// guards that render a full navigation bar. Same visibility rule as the
// single-tab check: self always, others only with the admin tab.
func (s *Server) handleAccessTabs(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFrom(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	selfID, err := claims.PrincipalID()
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	pid := selfID
	if raw := r.URL.Query().Get("principal_id"); raw != "" {
		pid, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "Invalid principal id", http.StatusBadRequest)
			return
		}
	}
	if pid != selfID && !s.accessUC.IsAllowed(r.Context(), selfID, model.TabAdmin) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	tabs, err := s.accessUC.ListAllowedTabs(r.Context(), pid)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if tabs == nil {
		tabs = []model.Tab{}
	}
	writeJSON(w, http.StatusOK, struct {
		Tabs []model.Tab `json:"tabs"`
	}{Tabs: tabs})
}

func (s *Server) handleListGrantAudits(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	audits, err := s.keyAdminUC.ListGrantAudits(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, audits)
}

// writeError maps the domain taxonomy onto HTTP statuses in one place.
// Redemption misses stay a bare 404: the body never hints whether a similar
// secret exists.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrUnknownTab):
		http.Error(w, "Invalid argument", http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrKeyAlreadyConsumed):
		http.Error(w, "Key already used", http.StatusConflict)
	case errors.Is(err, domain.ErrKeyRevoked), errors.Is(err, domain.ErrAlreadyRevoked):
		http.Error(w, "Key revoked", http.StatusConflict)
	case errors.Is(err, domain.ErrAlreadyExists):
		http.Error(w, "Already exists", http.StatusConflict)
	case errors.Is(err, domain.ErrGroupNotEmpty):
		http.Error(w, "Group still has members", http.StatusConflict)
	case errors.Is(err, domain.ErrGrantFailed):
		// The key is consumed; the operator reconciles from the audit queue.
		http.Error(w, "Redemption recorded but grant failed; contact support", http.StatusBadGateway)
	default:
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
