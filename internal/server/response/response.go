// Package response writes JSON bodies for the HTTP API.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/classgate/internal/common"
)

type ErrorBody struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Raw writes an already encoded JSON document.
func Raw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func Error(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{Message: msg})
}

func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, ErrorBody{Message: msg})
}

func Validation(w http.ResponseWriter, verr *common.ValidationError) {
	JSON(w, http.StatusBadRequest, ErrorBody{Message: "validation failed", Fields: verr.Fields})
}

func Unauthorized(w http.ResponseWriter) {
	Error(w, http.StatusUnauthorized, "unauthorized")
}

func Internal(w http.ResponseWriter) {
	Error(w, http.StatusInternalServerError, "internal error")
}
