package handler

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"timeledger/internal/apperr"
	"timeledger/internal/auth"
	"timeledger/internal/i18n"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error string      `json:"error"`
	Kind  apperr.Kind `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("encode response")
	}
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err in the request's locale. Anything that is not a domain error is
// logged and reported as an internal error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok {
		log.WithError(err).WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: i18n.T(r.Context(), "error.internal"),
			Kind:  apperr.KindInternal,
		})
		return
	}
	writeJSON(w, statusFor(e.Kind), ErrorResponse{
		Error: i18n.T(r.Context(), e.Key, e.Data),
		Kind:  e.Kind,
	})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperr.Validation("request.err.invalid_body", map[string]any{"Reason": errors.Cause(err).Error()})
	}
	return nil
}

// caller returns the authenticated caller. Routes are mounted behind auth.Middleware, so
// a missing caller is a wiring bug.
func caller(r *http.Request) auth.Caller {
	c, ok := auth.CallerFromContext(r.Context())
	if !ok {
		panic("handler: request reached API route without authentication")
	}
	return c
}
