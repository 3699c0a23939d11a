package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/corebank/backend/internal/services"
)

const maxRequestBytes = 1_048_576 // 1 MB

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes a single JSON object into dst, rejecting unknown
// fields and trailing content.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("request body must only contain a single JSON object")
	}
	return nil
}

// handleServiceError maps the service error taxonomy onto HTTP status
// codes. Every domain error message is safe to show to the caller;
// persistence failures are not, and get a generic body.
func handleServiceError(w http.ResponseWriter, err error) {
	var (
		validation   *services.ValidationError
		notFound     *services.NotFoundError
		custNotFound *services.CustomerNotFoundError
		inactive     *services.InactiveAccountError
		insufficient *services.InsufficientFundsError
		sameAccount  *services.SameAccountError
		auth         *services.AuthError
	)

	switch {
	case errors.As(err, &validation), errors.As(err, &sameAccount):
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	case errors.As(err, &auth):
		services.SendErrorResponse(w, err.Error(), http.StatusUnauthorized, nil)
	case errors.As(err, &notFound), errors.As(err, &custNotFound):
		services.SendErrorResponse(w, err.Error(), http.StatusNotFound, nil)
	case errors.As(err, &inactive):
		services.SendErrorResponse(w, err.Error(), http.StatusConflict, nil)
	case errors.As(err, &insufficient):
		services.SendErrorResponse(w, err.Error(), http.StatusUnprocessableEntity, nil)
	default:
		log.Printf("[HTTP] internal error: %v", err)
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}
