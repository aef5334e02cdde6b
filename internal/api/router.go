package api

import (
	"net/http"
)

// NewRouter registers every route of h on a new ServeMux
func NewRouter(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /activity-groups", h.createActivity)
	mux.HandleFunc("GET /activity-groups", h.listActivities)
	mux.HandleFunc("GET /activity-groups/{id}", h.getActivity)
	mux.HandleFunc("DELETE /activity-groups/{id}", h.deleteActivity)
	mux.HandleFunc("PATCH /activity-groups/{id}", h.patchActivity)

	mux.HandleFunc("POST /todo-items", h.createTodo)
	mux.HandleFunc("GET /todo-items", h.listTodos)
	mux.HandleFunc("GET /todo-items/{id}", h.getTodo)
	mux.HandleFunc("DELETE /todo-items/{id}", h.deleteTodo)
	mux.HandleFunc("PATCH /todo-items/{id}", h.patchTodo)

	mux.HandleFunc("/", h.notFound)

	return mux
}

const corsAllowMethods = "GET,HEAD,PUT,PATCH,POST,DELETE"

// CORS allows any origin and answers preflight requests itself
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h := w.Header()
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
				h.Set("Access-Control-Allow-Headers", reqHeaders)
			}
			h.Add("Vary", "Access-Control-Request-Headers")
			h.Set("Content-Length", "0")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
