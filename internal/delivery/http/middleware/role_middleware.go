package middleware

import (
	"net/http"
	"strings"

	"clinic-appointment-service/internal/domain/entity"
	"clinic-appointment-service/pkg/response"
)

// RequireRole admits only callers whose role is one of roleIDs. It must run after Authenticate.
func RequireRole(roleIDs ...int) func(http.Handler) http.Handler {
	allowed := make(map[int]struct{}, len(roleIDs))
	names := make([]string, 0, len(roleIDs))
	for _, id := range roleIDs {
		allowed[id] = struct{}{}
		names = append(names, entity.RoleName(id))
	}
	denied := "This resource is restricted to " + strings.Join(names, " or ") + " accounts"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requester, ok := GetRequesterFromContext(r.Context())
			if !ok {
				response.Unauthorized(w, "Authentication required")
				return
			}
			if _, ok := allowed[requester.RoleID]; !ok {
				response.Forbidden(w, denied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var (
	RequireAdmin          = RequireRole(entity.RoleIDAdmin)
	RequireDoctor         = RequireRole(entity.RoleIDDoctor)
	RequirePatient        = RequireRole(entity.RoleIDPatient)
	RequirePatientOrAdmin = RequireRole(entity.RoleIDPatient, entity.RoleIDAdmin)
)
