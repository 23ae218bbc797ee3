package api

import (
	"net/http"

	"github.com/dmitrijs2005/classgate/internal/server/response"
	"github.com/dmitrijs2005/classgate/internal/server/session"
)

func (h *Handler) requestOTP(w http.ResponseWriter, r *http.Request) {
	var req otpRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.users.RequestOTP(r.Context(), req.PhoneNumber); err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Message(w, http.StatusAccepted, "otp sent")
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.users.Login(r.Context(), req.PhoneNumber, req.OTP)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.sessionCookies.Issue(w, res.Token, res.ExpiresAt)
	response.JSON(w, http.StatusOK, map[string]any{"user": newUserView(res.User)})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	user, _ := session.UserFromContext(r.Context())

	if err := h.users.Logout(r.Context(), user); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.session.Clear(w)
	response.Message(w, http.StatusOK, "logged out")
}
