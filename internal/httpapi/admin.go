package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/service"
	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/store"
	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/types"
)

func (s *Server) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	var req types.CreateTenantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}

	t, err := s.tenantService.Create(r.Context(), service.NewTenant{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		GateAccessCode: req.GateAccessCode,
		LicensePlate:   req.LicensePlate,
		OpeningBalance: req.CurrentBalance,
		LockedOut:      req.IsLockedOut,
	})
	if err != nil {
		s.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tenantToResponse(t))
}

func (s *Server) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := s.tenantService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenantToResponse(t))
}

func (s *Server) handleLockTenant(w http.ResponseWriter, r *http.Request) {
	t, err := s.tenantService.Lock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenantToResponse(t))
}

func (s *Server) handleUnlockTenant(w http.ResponseWriter, r *http.Request) {
	t, err := s.tenantService.Unlock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenantToResponse(t))
}

func (s *Server) handleChargeTenant(w http.ResponseWriter, r *http.Request) {
	var req types.AmountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	t, err := s.tenantService.Charge(r.Context(), chi.URLParam(r, "id"), req.AmountCents)
	if err != nil {
		s.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenantToResponse(t))
}

func (s *Server) handleTenantPayment(w http.ResponseWriter, r *http.Request) {
	var req types.AmountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json", "invalid JSON body")
		return
	}
	t, err := s.tenantService.RecordPayment(r.Context(), chi.URLParam(r, "id"), req.AmountCents)
	if err != nil {
		s.writeAdminError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tenantToResponse(t))
}

func (s *Server) handleListAccessLogs(w http.ResponseWriter, r *http.Request) {
	q, err := parseAccessLogQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_query", err.Error())
		return
	}

	entries, err := s.accessLogs.List(r.Context(), q)
	if err != nil {
		s.writeAdminError(w, r, err)
		return
	}

	resp := types.AccessLogListResponse{
		Entries: make([]types.AccessLogResponse, 0, len(entries)),
		Count:   len(entries),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, accessLogToResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseAccessLogQuery(r *http.Request) (store.AccessLogQuery, error) {
	v := r.URL.Query()
	q := store.AccessLogQuery{TenantID: v.Get("tenant_id")}
	if q.TenantID != "" {
		if _, err := uuid.Parse(q.TenantID); err != nil {
			return q, errors.New("tenant_id must be a UUID")
		}
	}

	if a := v.Get("action"); a != "" {
		q.Action = store.AccessAction(a)
		if !q.Action.Valid() {
			return q, errors.New("action must be entry_granted or entry_denied")
		}
	}
	if since := v.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return q, errors.New("since must be an RFC 3339 timestamp")
		}
		q.Since = t
	}
	if l := v.Get("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			return q, errors.New("limit must be a non-negative integer")
		}
		q.Limit = n
	}
	return q, nil
}

func (s *Server) writeAdminError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidTenant):
		writeError(w, http.StatusBadRequest, "invalid_tenant", err.Error())
	case errors.Is(err, service.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "invalid_amount", err.Error())
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "tenant not found")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", "gate access code or license plate already in use")
	default:
		s.logger.Error("admin request error",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "unexpected server error")
	}
}
