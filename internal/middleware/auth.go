package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/DesmondD0ss/AccessManager-sub000/internal/util"
)

// AdminAuthMiddleware guards the admin code-management endpoints with a
// single operator password, checked against the configured bcrypt hash.
type AdminAuthMiddleware struct {
	adminPasswordHash string
}

func NewAdminAuthMiddleware(adminPasswordHash string) *AdminAuthMiddleware {
	return &AdminAuthMiddleware{adminPasswordHash: adminPasswordHash}
}

func (m *AdminAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.adminPasswordHash == "" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"error": "Admin not configured",
			})
			return
		}

		password := ExtractBearerToken(r)
		if password == "" || !util.CheckPasswordHash(password, m.adminPasswordHash) {
			log.Warn().Str("ip", r.RemoteAddr).Msg("admin auth: invalid credentials")
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"error": "Unauthorized",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ExtractBearerToken pulls the credential from the Authorization header.
func ExtractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
