package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/classgate/internal/common"
	"github.com/dmitrijs2005/classgate/internal/server/auth"
	"github.com/dmitrijs2005/classgate/internal/server/models"
	"github.com/dmitrijs2005/classgate/internal/server/response"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

type adminContextKey struct{}

// AdminFromContext returns the claims stored by the admin guard.
func AdminFromContext(ctx context.Context) (*auth.Claims, bool) {
	c, ok := ctx.Value(adminContextKey{}).(*auth.Claims)
	return c, ok
}

// requireAdmin admits requests whose admin cookie carries a valid admin
// token. Any failure clears the cookie.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.adminCookies.Read(r)
		if token == "" {
			h.adminCookies.Clear(w)
			response.Unauthorized(w)
			return
		}

		claims, err := h.admins.VerifyToken(token)
		if err != nil {
			h.logger.Debug(r.Context(), "admin token rejected", "reason", err)
			h.adminCookies.Clear(w)
			response.Unauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), adminContextKey{}, claims)))
	})
}

func (h *Handler) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	token, expiresAt, err := h.admins.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.adminCookies.Issue(w, token, expiresAt)
	response.Message(w, http.StatusOK, "logged in")
}

func (h *Handler) adminLogout(w http.ResponseWriter, r *http.Request) {
	h.adminCookies.Clear(w)
	response.Message(w, http.StatusOK, "logged out")
}

func (h *Handler) adminListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	list, total, err := h.users.ListUsers(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	page := userPage{Users: make([]userView, 0, len(list)), Total: total, Limit: limit, Offset: offset}
	for _, u := range list {
		page.Users = append(page.Users, newUserView(u))
	}
	response.JSON(w, http.StatusOK, page)
}

func (h *Handler) adminGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, newUserView(user))
}

func (h *Handler) adminEnroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	user, err := h.users.Enroll(r.Context(), chi.URLParam(r, "id"), req.BatchID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, newUserView(user))
}

func (h *Handler) adminUnenroll(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.Unenroll(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "batchId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, newUserView(user))
}

func (h *Handler) adminListBatches(w http.ResponseWriter, r *http.Request) {
	list, err := h.batches.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := make([]batchView, 0, len(list))
	for _, b := range list {
		out = append(out, newBatchView(b))
	}
	response.JSON(w, http.StatusOK, out)
}

func (h *Handler) adminCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	b, err := h.batches.Create(r.Context(), req.model())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusCreated, newBatchView(b))
}

func (h *Handler) adminGetBatch(w http.ResponseWriter, r *http.Request) {
	b, err := h.batches.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, newBatchView(b))
}

func (h *Handler) adminUpdateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	b, err := h.batches.Update(r.Context(), chi.URLParam(r, "id"), req.model())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, newBatchView(b))
}

func (h *Handler) adminDeleteBatch(w http.ResponseWriter, r *http.Request) {
	if err := h.batches.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	c, err := h.config.Get(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, newConfigView(c))
}

func (h *Handler) adminUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req configRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	c, err := h.config.Update(r.Context(), &models.ServerConfig{
		MaintenanceMode: req.MaintenanceMode,
		MinAppVersion:   req.MinAppVersion,
		Banner:          req.Banner,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, newConfigView(c))
}

func pagination(r *http.Request) (int, int, error) {
	v := common.NewValidationError()
	limit, offset := defaultPageSize, 0

	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > maxPageSize {
			v.Add("limit", fmt.Sprintf("must be between 1 and %d", maxPageSize))
		}
		limit = n
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			v.Add("offset", "must be a non-negative integer")
		}
		offset = n
	}

	return limit, offset, v.OrNil()
}
