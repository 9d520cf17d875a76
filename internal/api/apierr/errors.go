package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/lanequeue/internal/model"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidLane         = "INVALID_LANE"
	CodeParticipantNotFound = "PARTICIPANT_NOT_FOUND"
	CodeMatchNotFound       = "MATCH_NOT_FOUND"
	CodeAlreadyQueued       = "ALREADY_QUEUED"
	CodeNotQueued           = "NOT_QUEUED"
	CodeAlreadyInMatch      = "ALREADY_IN_MATCH"
	CodeStateConflict       = "STATE_CONFLICT"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	case errors.Is(err, model.ErrInvalidLane):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidLane, "Lane must be one of top, jungle, mid, carry, support"}}
	case errors.Is(err, model.ErrParticipantNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeParticipantNotFound, "Participant not found"}}
	case errors.Is(err, model.ErrMatchNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeMatchNotFound, "Match not found"}}
	case errors.Is(err, model.ErrAlreadyQueued):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyQueued, "Already in the queue"}}
	case errors.Is(err, model.ErrNotQueued):
		return &httpError{http.StatusNotFound, APIError{CodeNotQueued, "Not in the queue"}}
	case errors.Is(err, model.ErrAlreadyInMatch):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyInMatch, "Already placed in a match"}}
	case errors.Is(err, model.ErrStateConflict):
		return &httpError{http.StatusConflict, APIError{CodeStateConflict, "State changed concurrently, retry"}}
	case errors.Is(err, model.ErrInvalidState), errors.Is(err, model.ErrInvalidTransition):
		return &httpError{http.StatusConflict, APIError{CodeInvalidTransition, "State change not allowed"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
