package api

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/classgate/internal/common"
	"github.com/dmitrijs2005/classgate/internal/server/response"
	"github.com/dmitrijs2005/classgate/internal/server/upstream"
)

// writeError maps service errors onto HTTP statuses. Anything unrecognised
// is logged and reported as 500 without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *common.ValidationError
	var serr *upstream.StatusError

	switch {
	case errors.As(err, &verr):
		response.Validation(w, verr)
	case errors.Is(err, common.ErrorUnauthorized):
		response.Unauthorized(w)
	case errors.Is(err, common.ErrInvalidCredentials):
		response.Unauthorized(w)
	case errors.Is(err, common.ErrorForbidden):
		response.Error(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, common.ErrorNotFound):
		response.Error(w, http.StatusNotFound, "not found")
	case errors.Is(err, common.ErrAlreadyExists):
		response.Error(w, http.StatusConflict, "already exists")
	case errors.Is(err, common.ErrOTPRateLimited), errors.Is(err, common.ErrOTPAttempts):
		response.Error(w, http.StatusTooManyRequests, err.Error())
	case errors.As(err, &serr):
		if serr.StatusCode == http.StatusNotFound {
			response.Error(w, http.StatusNotFound, "not found")
			return
		}
		h.logger.Warn(r.Context(), "upstream error", "error", err)
		response.Error(w, http.StatusBadGateway, "upstream unavailable")
	default:
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		response.Internal(w)
	}
}
