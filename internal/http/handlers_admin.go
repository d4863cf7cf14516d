package http

import (
	"net/http"
	"strings"

	"bilancio/internal/services"
)

// Admin routes sit behind auth.RequireRole(core.RoleAdmin).

func (s *Server) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Admin.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleAdminAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Admin.Analytics(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleAdminUsers filters by ?search= and ?status=active|inactive.
func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := s.deps.Admin.Users(r.Context(), services.UserQuery{
		Search: sanitizeInput(q.Get("search")),
		Status: sanitizeInput(q.Get("status")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users, "count": len(users)})
}

func (s *Server) handleAdminUserDetails(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	d, err := s.deps.Admin.UserDetails(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleAdminToggleStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	u, err := s.deps.Admin.ToggleStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := "activated"
	if !u.Active {
		status = "deactivated"
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": u, "status": status})
}
