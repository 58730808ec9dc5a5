package core

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"dossier/internal/analyst"
)

// maxJSONBodyBytes caps the body of the analysis endpoints.
const maxJSONBodyBytes = 64 << 10

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes)).Decode(v)
}

func (s *Server) handleCompanyInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CompanyInfoRequest
	if err := decodeJSON(r, &req); err != nil {
		slog.Warn("Invalid company info request", "err", err)
		writeFailure(w, http.StatusInternalServerError, msgCompanyInfoFailed)
		return
	}

	if strings.TrimSpace(req.CompanyName) == "" {
		writeBadRequest(w, msgCompanyRequired)
		return
	}

	data, err := s.analyst.CompanyInfo(ctx, req.CompanyName)
	s.metrics.observeAnalysis("company_info", err)
	if errors.Is(err, analyst.ErrCompanyRequired) {
		writeBadRequest(w, msgCompanyRequired)
		return
	}
	if err != nil {
		slog.Error("Failed to fetch company information", "company", req.CompanyName, "err", err)
		writeFailure(w, http.StatusInternalServerError, msgCompanyInfoFailed)
		return
	}

	writeJSON(w, http.StatusOK, AnalysisResponse{Success: true, Data: data})
}

func (s *Server) handleFollowUp(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req FollowUpRequest
	if err := decodeJSON(r, &req); err != nil {
		slog.Warn("Invalid follow-up request", "err", err)
		writeFailure(w, http.StatusInternalServerError, msgFollowUpFailed)
		return
	}

	if strings.TrimSpace(req.CompanyName) == "" || strings.TrimSpace(req.Question) == "" {
		writeBadRequest(w, msgFollowUpRequired)
		return
	}

	data, err := s.analyst.FollowUp(ctx, req.CompanyName, req.Question)
	s.metrics.observeAnalysis("followup", err)
	if errors.Is(err, analyst.ErrCompanyRequired) || errors.Is(err, analyst.ErrQuestionRequired) {
		writeBadRequest(w, msgFollowUpRequired)
		return
	}
	if err != nil {
		slog.Error("Failed to fetch follow-up information", "company", req.CompanyName, "err", err)
		writeFailure(w, http.StatusInternalServerError, msgFollowUpFailed)
		return
	}

	writeJSON(w, http.StatusOK, AnalysisResponse{Success: true, Data: data})
}
