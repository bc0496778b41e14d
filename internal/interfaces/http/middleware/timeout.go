package middleware

import (
	"net/http"
	"time"
)

// Timeout ограничивает время обработки запроса. Пути из skip (например, /ws)
// не оборачиваются: http.TimeoutHandler не поддерживает Hijack.
func Timeout(d time.Duration, skip ...string) func(http.Handler) http.Handler {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		limited := http.TimeoutHandler(next, d, "Request timeout")

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := skipped[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}
