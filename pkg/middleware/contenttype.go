package middleware

import (
	"mime"
	"net/http"

	"github.com/Ayoub-Elkhouzari/freelance-management/pkg/httputil"
)

// RequireJSON rejects requests that carry a body with a Content-Type other
// than application/json.
func RequireJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength == 0 || r.Method == http.MethodGet || r.Method == http.MethodDelete {
			next.ServeHTTP(w, r)
			return
		}

		mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mt != "application/json" {
			httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.ErrorResponse{
				Status:  httputil.StatusError,
				Code:    "UNSUPPORTED_MEDIA_TYPE",
				Message: "Content-Type must be application/json",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
