package audit

import (
	"net/http"
)

// Middleware records triage mutations (status transitions, deletions) with
// the acting principal. It must sit inside the auth chain on the report
// mutation routes so the token claims are already in the request context.
func Middleware(al *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.PathValue("id")
			switch r.Method {
			case http.MethodPut:
				al.LogStatusUpdate(r.Context(), id, "initiated")
			case http.MethodDelete:
				al.LogDeletion(r.Context(), id)
			}

			next.ServeHTTP(w, r)
		})
	}
}
