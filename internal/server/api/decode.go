package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/classgate/internal/common"
)

const maxBodyBytes = 1 << 20

type validator interface {
	Validate() error
}

// decode reads a single JSON object into dst and validates it. Every
// failure is a *common.ValidationError.
func decode(w http.ResponseWriter, r *http.Request, dst validator) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		v := common.NewValidationError()
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			v.Add("body", "is empty")
		case errors.As(err, &maxErr):
			v.Add("body", "is too large")
		default:
			v.Add("body", err.Error())
		}
		return v
	}
	if dec.More() {
		v := common.NewValidationError()
		v.Add("body", "must contain a single JSON object")
		return v
	}

	return dst.Validate()
}
