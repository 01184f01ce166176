package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/pagerender/pagerender/internal/rendering"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrUnsupportedMedia indicates an upload that is not a renderable document
type ErrUnsupportedMedia struct {
	MIME string
}

func (e *ErrUnsupportedMedia) Error() string {
	return fmt.Sprintf("unsupported document type: %s", e.MIME)
}

// ErrBusy indicates the request gave up waiting for a render slot
type ErrBusy struct {
	Cause error
}

func (e *ErrBusy) Error() string {
	return fmt.Sprintf("server busy: %v", e.Cause)
}

func (e *ErrBusy) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		mediaErr      *ErrUnsupportedMedia
		busyErr       *ErrBusy
		tooLarge      *http.MaxBytesError
		failure       *rendering.RenderFailure
	)

	// A RenderFailure is matched first so its Cause, which comes from the
	// renderer, is never unwrapped here.
	switch {
	case errors.As(err, &failure):
		return http.StatusUnprocessableEntity
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &mediaErr):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &busyErr):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FailureResponse is the body written for a RenderFailure.
type FailureResponse struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Origin    string `json:"origin"`
	Message   string `json:"message"`
	Page      *int   `json:"page,omitempty"` // 1-based; absent for document-level failures
	RequestID string `json:"request_id"`
}

// failResponse writes the JSON error body matching err's status.
func (s *Server) failResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)

	var failure *rendering.RenderFailure
	if errors.As(err, &failure) && status == http.StatusUnprocessableEntity {
		resp := FailureResponse{
			Error:     "render_failure",
			Kind:      string(failure.Kind),
			Origin:    failure.Origin,
			Message:   failure.Message,
			RequestID: requestID(r.Context()),
		}
		if failure.Page >= 0 {
			page := failure.Page + 1
			resp.Page = &page
		}
		s.jsonResponse(w, status, resp)
		return
	}

	s.errorResponse(w, r, status, err.Error())
}
