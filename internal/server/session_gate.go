package server

import (
	"net/http"
)

// withSession redirects requests without a live session to the registration
// path before next runs.
func (s *Server) withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.sessions == nil {
			s.writeServiceError(w, r, internalError(nil))
			return
		}

		user, ok, err := s.sessions.ValidateSession(r.Context(), r)
		if err != nil {
			s.writeStoreError(w, r, err)
			return
		}
		if !ok || user == nil {
			s.log().Debug("session missing, redirecting", "path", r.URL.Path, "to", s.options.RegisterPath)
			http.Redirect(w, r, s.options.RegisterPath, http.StatusFound)
			return
		}

		next(w, r.WithContext(contextWithPrincipal(r.Context(), user)))
	}
}
