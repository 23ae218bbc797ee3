package api

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/classgate/internal/common"
	"github.com/dmitrijs2005/classgate/internal/server/models"
	"github.com/dmitrijs2005/classgate/internal/server/response"
	"github.com/dmitrijs2005/classgate/internal/server/session"
	"github.com/go-chi/chi/v5"
)

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, _ := session.UserFromContext(r.Context())
	response.JSON(w, http.StatusOK, newUserView(user))
}

func (h *Handler) myBatches(w http.ResponseWriter, r *http.Request) {
	user, _ := session.UserFromContext(r.Context())
	batches := user.EnrolledBatches
	if batches == nil {
		batches = []models.EnrolledBatch{}
	}
	response.JSON(w, http.StatusOK, batches)
}

func (h *Handler) enroll(w http.ResponseWriter, r *http.Request) {
	user, _ := session.UserFromContext(r.Context())

	var req enrollRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	updated, err := h.users.Enroll(r.Context(), user.ID, req.BatchID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, updated.EnrolledBatches)
}

func (h *Handler) unenroll(w http.ResponseWriter, r *http.Request) {
	user, _ := session.UserFromContext(r.Context())

	updated, err := h.users.Unenroll(r.Context(), user.ID, chi.URLParam(r, "batchId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	batches := updated.EnrolledBatches
	if batches == nil {
		batches = []models.EnrolledBatch{}
	}
	response.JSON(w, http.StatusOK, batches)
}

// proxyBatch passes upstream's JSON through unchanged. A rejected upstream
// rotation ends the session like any other rejection.
func (h *Handler) proxyBatch(w http.ResponseWriter, r *http.Request) {
	user, _ := session.UserFromContext(r.Context())

	body, err := h.proxy.Fetch(r.Context(), user, chi.URLParam(r, "batchId"), chi.URLParam(r, "resource"), r.URL.Query())
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			h.session.Clear(w)
		}
		h.writeError(w, r, err)
		return
	}

	response.Raw(w, http.StatusOK, body)
}
