package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"todoapi/internal/repository"
)

// Envelope statuses
const (
	StatusSuccess    = "Success"
	StatusBadRequest = "Bad Request"
	StatusNotFound   = "Not Found"
	StatusError      = "Error"
)

// ServerErrorMessage is returned for any unexpected failure
const ServerErrorMessage = "Mohon maaf! Terdapat kesalahan pada server kami."

// Envelope is the uniform response body of every route
type Envelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// emptyData serializes as {}
var emptyData = struct{}{}

// NewSuccess creates a success envelope
func NewSuccess(data any) *Envelope {
	if data == nil {
		data = emptyData
	}
	return &Envelope{
		Status:  StatusSuccess,
		Message: StatusSuccess,
		Data:    data,
	}
}

// InvariantError reports a request that failed a required-field check
type InvariantError struct {
	Message string
}

// Error implements the error interface
func (e *InvariantError) Error() string {
	return e.Message
}

// newInvariantError creates an InvariantError
func newInvariantError(message string) *InvariantError {
	return &InvariantError{Message: message}
}

// errorEnvelope maps an error to its HTTP status and envelope.
// Unknown errors become a 500 without data.
func errorEnvelope(err error) (int, *Envelope) {
	var invariant *InvariantError
	if errors.As(err, &invariant) {
		return http.StatusBadRequest, &Envelope{
			Status:  StatusBadRequest,
			Message: invariant.Message,
			Data:    emptyData,
		}
	}

	var notFound *repository.NotFoundError
	if errors.As(err, &notFound) {
		return http.StatusNotFound, &Envelope{
			Status:  StatusNotFound,
			Message: notFound.Error(),
			Data:    emptyData,
		}
	}

	return http.StatusInternalServerError, &Envelope{
		Status:  StatusError,
		Message: ServerErrorMessage,
	}
}

// Bytes returns the envelope as JSON bytes
func (e *Envelope) Bytes() ([]byte, error) {
	return json.Marshal(e)
}
