package core

import (
	"net/http"
)

// Handler returns the http.Handler serving every route of the application.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	limited := RateLimit(s.Config.RateLimit)
	guarded := RequireAuthentication(s.Config.Authenticator)

	// Uploads
	mux.Handle("POST /api/upload", limited(http.HandlerFunc(s.handleUpload)))
	mux.Handle("GET /api/uploads", guarded(http.HandlerFunc(s.handleListUploads)))
	mux.Handle("GET /api/uploads/{name}", guarded(http.HandlerFunc(s.handleGetUpload)))

	// Company analysis
	mux.Handle("POST /api/company-info", limited(http.HandlerFunc(s.handleCompanyInfo)))
	mux.Handle("POST /api/followup", limited(http.HandlerFunc(s.handleFollowUp)))

	// Metrics
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Pages and static assets
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /index.html", s.handleIndex)
	mux.HandleFunc("GET /", s.handleStatic)

	// Add middleware
	handler := s.metrics.Instrument(mux)
	handler = SlashFix(handler)
	handler = CORS(handler)
	handler = Recoverer(handler)
	handler = LogRequest(handler)
	handler = RequestID(handler)
	return handler
}
