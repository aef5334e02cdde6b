package api

import (
	"net/http"

	"todoapi/internal/repository"
)

type activityPayload struct {
	Title string `json:"title"`
	Email string `json:"email"`
}

func (h *Handler) createActivity(w http.ResponseWriter, r *http.Request) {
	var payload activityPayload
	if err := h.decode(w, r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	if payload.Title == "" {
		h.writeError(w, r, newInvariantError("title cannot be null"))
		return
	}

	activity, err := h.activities.Add(r.Context(), repository.NewActivity{
		Title: payload.Title,
		Email: payload.Email,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusCreated, activity)
}

func (h *Handler) listActivities(w http.ResponseWriter, r *http.Request) {
	activities, err := h.activities.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, activities)
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	activity, err := h.activities.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, activity)
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := h.activities.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, nil)
}

func (h *Handler) patchActivity(w http.ResponseWriter, r *http.Request) {
	var payload activityPayload
	if err := h.decode(w, r, &payload); err != nil {
		h.writeError(w, r, err)
		return
	}
	if payload.Title == "" {
		h.writeError(w, r, newInvariantError("title cannot be null"))
		return
	}

	activity, err := h.activities.UpdateTitle(r.Context(), r.PathValue("id"), payload.Title)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeSuccess(w, http.StatusOK, activity)
}
