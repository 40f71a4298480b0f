package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nexboard/module_layer/pkg/logger"
)

// AdminAuth guards the admin console routes with static bearer tokens. Tenant
// resolution routes stay open; this service trusts the fronting gateway for
// end-user authentication.
type AdminAuth struct {
	tokens []string
	log    *logger.Logger
}

// NewAdminAuth creates the admin auth middleware. An empty token list locks
// the admin surface entirely.
func NewAdminAuth(tokens []string, log *logger.Logger) *AdminAuth {
	if log == nil {
		log = logger.NewDefault("adminauth")
	}
	valid := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if t = strings.TrimSpace(t); t != "" {
			valid = append(valid, t)
		}
	}
	return &AdminAuth{tokens: valid, log: log}
}

// Handler enforces the bearer token on /api/admin/ paths only.
func (a *AdminAuth) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/admin/") {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || !a.tokenValid(parts[1]) {
			a.log.WithField("path", r.URL.Path).Warn("unauthorized admin request")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (a *AdminAuth) tokenValid(token string) bool {
	for _, t := range a.tokens {
		if subtle.ConstantTimeCompare([]byte(t), []byte(token)) == 1 {
			return true
		}
	}
	return false
}
