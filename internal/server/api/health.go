package api

import (
	"net/http"

	"github.com/dmitrijs2005/classgate/internal/server/response"
)

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil && !h.health.Serving(r.Context()) {
		response.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
