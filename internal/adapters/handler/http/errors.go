package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vncsmyrnk/pollr/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps domain errors to HTTP status codes. The order matters:
// an unknown election at vote time wraps both ErrElectionNotOpen and
// ErrElectionNotFound and must surface as the former.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrAlreadyVoted),
		errors.Is(err, domain.ErrElectionNotOpen),
		errors.Is(err, domain.ErrElectionLocked),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrDuplicatePosition),
		errors.Is(err, domain.ErrDuplicateCandidate):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidBallot),
		errors.Is(err, domain.ErrInvalidSchedule),
		errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotEligible),
		errors.Is(err, domain.ErrResultsNotVisible),
		errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrElectionNotFound),
		errors.Is(err, domain.ErrPositionNotFound),
		errors.Is(err, domain.ErrCandidateNotFound),
		errors.Is(err, domain.ErrOrganizationNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	message := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "1")
		message = domain.ErrStorageUnavailable.Error()
	case http.StatusInternalServerError:
		message = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}
