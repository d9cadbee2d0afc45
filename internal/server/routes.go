package server

import (
	"net/http"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check.
	mux.HandleFunc("GET /health", s.handleHealth)

	// Session lifecycle.
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)

	// Image resource, session gated.
	mux.HandleFunc("GET /image", s.withSession(s.handleGetImage))
	mux.HandleFunc("POST /image", s.withSession(s.handleUploadImage))
	mux.HandleFunc("DELETE /image", s.withSession(s.handleDeleteImage))

	return mux
}

// Handler returns the complete HTTP handler including request logging.
func (s *Server) Handler() http.Handler {
	return s.withRequestLogging(s.routes())
}
