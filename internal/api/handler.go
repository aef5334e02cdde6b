package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"todoapi/internal/repository"
)

// ActivityStore is the persistence the activity routes need
type ActivityStore interface {
	Add(ctx context.Context, payload repository.NewActivity) (*repository.Activity, error)
	List(ctx context.Context) ([]repository.Activity, error)
	Get(ctx context.Context, id string) (*repository.Activity, error)
	Delete(ctx context.Context, id string) error
	UpdateTitle(ctx context.Context, id, title string) (*repository.Activity, error)
}

// TodoStore is the persistence the todo routes need
type TodoStore interface {
	Add(ctx context.Context, payload repository.NewTodo) (*repository.Todo, error)
	List(ctx context.Context, activityGroupID string) ([]repository.Todo, error)
	Get(ctx context.Context, id string) (*repository.Todo, error)
	Delete(ctx context.Context, id string) error
	Update(ctx context.Context, id string, patch repository.TodoPatch) (*repository.Todo, error)
}

// Handler serves the activity group and todo item routes
type Handler struct {
	activities  ActivityStore
	todos       TodoStore
	maxBodySize int64
	logger      zerolog.Logger
}

// NewHandler creates a new Handler
func NewHandler(activities ActivityStore, todos TodoStore, maxBodySize int64, logger zerolog.Logger) *Handler {
	return &Handler{
		activities:  activities,
		todos:       todos,
		maxBodySize: maxBodySize,
		logger:      logger.With().Str("component", "api").Logger(),
	}
}

// decode reads a JSON request body into v. An empty body leaves v untouched.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	body := r.Body
	if h.maxBodySize > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	}

	err := json.NewDecoder(body).Decode(v)
	switch {
	case err == nil, errors.Is(err, io.EOF):
		return nil
	default:
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return newInvariantError("request body too large")
		}
		return newInvariantError("request body must be valid JSON")
	}
}

// writeResponse writes an envelope with the given status
func (h *Handler) writeResponse(w http.ResponseWriter, status int, env *Envelope) {
	data, err := env.Bytes()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeSuccess writes a success envelope
func (h *Handler) writeSuccess(w http.ResponseWriter, status int, data any) {
	h.writeResponse(w, status, NewSuccess(data))
}

// writeError maps err to an error envelope and logs server errors
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, env := errorEnvelope(err)
	if status == http.StatusInternalServerError {
		h.logger.Error().
			Err(err).
			Str("method", r.Method).
			Str("url", r.URL.RequestURI()).
			Msg("request failed")
	}
	h.writeResponse(w, status, env)
}

// notFound answers requests no route matched
func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	h.writeResponse(w, http.StatusNotFound, &Envelope{
		Status:  StatusNotFound,
		Message: "Route " + r.Method + ":" + r.URL.Path + " not found",
		Data:    emptyData,
	})
}
