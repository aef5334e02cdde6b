package api

import (
	"net/http"

	"todoapi/internal/repository"
)

type todoPayload struct {
	Title           string     `json:"title"`
	ActivityGroupID flexString `json:"activity_group_id"`
}

type todoPatchPayload struct {
	Title    *string `json:"title"`
	IsActive *bool   `json:"is_active"`
}

func (h *Handler) createTodo(w http.ResponseWriter, r *http.Request) {
	var payload todoPayload
	if err := h.decode(w, r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	if payload.Title == "" {
		h.writeError(w, r, newInvariantError("title cannot be null"))
		return
	}
	if payload.ActivityGroupID == "" {
		h.writeError(w, r, newInvariantError("activity_group_id cannot be null"))
		return
	}

	todo, err := h.todos.Add(r.Context(), repository.NewTodo{
		Title:           payload.Title,
		ActivityGroupID: string(payload.ActivityGroupID),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusCreated, todo)
}

func (h *Handler) listTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := h.todos.List(r.Context(), r.URL.Query().Get("activity_group_id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, todos)
}

func (h *Handler) getTodo(w http.ResponseWriter, r *http.Request) {
	todo, err := h.todos.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, todo)
}

func (h *Handler) deleteTodo(w http.ResponseWriter, r *http.Request) {
	if err := h.todos.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, nil)
}

func (h *Handler) patchTodo(w http.ResponseWriter, r *http.Request) {
	var payload todoPatchPayload
	if err := h.decode(w, r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}

	todo, err := h.todos.Update(r.Context(), r.PathValue("id"), repository.TodoPatch{
		Title:    payload.Title,
		IsActive: payload.IsActive,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, todo)
}
