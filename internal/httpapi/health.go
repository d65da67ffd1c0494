package httpapi

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/IsThatLegal/summit-os-sub000/internal/gatekeeper/types"
)

const healthPingTimeout = 2 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := types.HealthResponse{
		Status:     "healthy",
		Store:      "ok",
		ServerTime: time.Now().UTC().Format(time.RFC3339),
	}
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			s.logger.Warn("health check: store ping failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Store = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
