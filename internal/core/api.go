package core

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"dossier/internal/catalog"
	"dossier/internal/upload"
)

const (
	msgMissingBoundary   = "Invalid content type, missing boundary"
	msgProcessingFailed  = "Failed to process uploaded files"
	msgUploadFailed      = "File upload failed"
	msgUploadTooLarge    = "Upload too large"
	msgCompanyRequired   = "Company name is required"
	msgFollowUpRequired  = "Company name and question are required"
	msgCompanyInfoFailed = "Failed to fetch company information"
	msgFollowUpFailed    = "Failed to fetch follow-up information"
	msgTooManyRequests   = "Too many requests, try again later"
	msgUnauthorized      = "Authentication required"
	msgUploadNotFound    = "Upload not found"
	msgInternalError     = "Internal server error"
)

// UploadResponse is returned by POST /api/upload on success.
type UploadResponse struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Files   []upload.StoredFile `json:"files"`
}

// ErrorResponse is the body of every failed API call. Success is omitted
// for the validation errors of the company endpoints.
type ErrorResponse struct {
	Success *bool  `json:"success,omitempty"`
	Error   string `json:"error"`
}

// CompanyInfoRequest is the body of POST /api/company-info.
type CompanyInfoRequest struct {
	CompanyName string `json:"companyName"`
}

// FollowUpRequest is the body of POST /api/followup.
type FollowUpRequest struct {
	CompanyName string `json:"companyName"`
	Question    string `json:"question"`
}

// AnalysisResponse carries the model's answer.
type AnalysisResponse struct {
	Success bool   `json:"success"`
	Data    string `json:"data"`
}

// UploadListResponse is returned by GET /api/uploads.
type UploadListResponse struct {
	Success bool            `json:"success"`
	Uploads []catalog.Entry `json:"uploads"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode JSON response", "err", err)
	}
}

// writeFailure answers with {success:false, error:message}.
func writeFailure(w http.ResponseWriter, status int, message string) {
	failed := false
	writeJSON(w, status, ErrorResponse{Success: &failed, Error: message})
}

// writeBadRequest answers with a bare {error:message}.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: message})
}
