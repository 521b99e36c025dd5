package api

import (
	"context"
	"net/http"
	"time"
)

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	now := time.Now().UTC().Format(time.RFC3339)
	if err := h.db.PingContext(ctx); err != nil {
		h.log.Error().Err(err).Msg("health check failed")
		respondJSON(w, http.StatusInternalServerError, map[string]string{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": now,
		})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": now,
	})
}
