package api

import (
	"errors"
	"net/http"

	"github.com/odedia/translation-layer/internal/apperr"
)

// statusFor maps an apperr.Kind to the HTTP status this adapter reports
// for it. Every other package in this module is unaware of HTTP status
// codes; this is the one place that translation happens.
func statusFor(err error) int {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Kind {
	case apperr.NotConfigured:
		return http.StatusPreconditionFailed
	case apperr.UpstreamUnavailable:
		return http.StatusBadGateway
	case apperr.BadInput:
		return http.StatusBadRequest
	case apperr.Empty:
		return http.StatusNotFound
	case apperr.Busy:
		return http.StatusTooManyRequests
	case apperr.NotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
}
