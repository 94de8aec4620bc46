package httpapi

import (
	"net/http"
	"strings"
	"time"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// WithAuth enforces bearer-token auth on every route except the health probe
// and records each request in the audit log when one is attached.
func WithAuth(next http.Handler, tokens []string, audit *AuditLog) http.Handler {
	allowed := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		token = strings.TrimSpace(token)
		if token != "" {
			allowed[token] = struct{}{}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		token := bearerToken(r)
		if _, ok := allowed[token]; !ok {
			sw.WriteHeader(http.StatusUnauthorized)
		} else {
			next.ServeHTTP(sw, r)
		}

		if audit != nil {
			audit.Add(Entry{
				Time:       time.Now().UTC(),
				Path:       r.URL.Path,
				Method:     r.Method,
				Status:     sw.status,
				RemoteAddr: r.RemoteAddr,
				UserAgent:  r.UserAgent(),
			})
		}
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
