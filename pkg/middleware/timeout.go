package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout gives each request a context deadline. Handlers are expected to
// observe it and answer with their own error; nothing is written here, so a
// handler never races a second writer.
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
