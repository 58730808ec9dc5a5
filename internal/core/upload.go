package core

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"dossier/internal/catalog"
	"dossier/internal/multipart"
	"dossier/internal/storage"
	"dossier/internal/upload"
)

const maxListLimit = 1000

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := s.uploader.Upload(ctx, r.Header.Get("Content-Type"), r.Body)
	switch {
	case errors.Is(err, upload.ErrMissingBoundary):
		slog.Warn("Rejected upload without boundary", "content_type", r.Header.Get("Content-Type"))
		writeFailure(w, http.StatusBadRequest, msgMissingBoundary)
		return

	case errors.Is(err, upload.ErrBodyTooLarge):
		writeFailure(w, http.StatusRequestEntityTooLarge, msgUploadTooLarge)
		return

	case errors.Is(err, upload.ErrNoFilesStored):
		s.metrics.observeUpload(0, result.Failed(), 0)
		writeFailure(w, http.StatusInternalServerError, msgProcessingFailed)
		return

	case errors.Is(err, upload.ErrUnexpected):
		slog.Error("Upload failed unexpectedly", "err", err)
		writeFailure(w, http.StatusInternalServerError, msgUploadFailed)
		return

	case err != nil:
		slog.Error("Failed to read upload", "err", err)
		writeFailure(w, http.StatusInternalServerError, msgProcessingFailed)
		return
	}

	stored := result.Stored()

	var total int64
	entries := make([]catalog.Entry, 0, len(stored))
	for _, f := range stored {
		total += f.Size
		entries = append(entries, catalog.Entry{
			StoredName:   f.StoredName,
			OriginalName: f.OriginalName,
			Size:         f.Size,
			ContentType:  f.ContentType,
			CreatedAt:    f.CreatedAt,
		})
	}
	s.metrics.observeUpload(len(stored), result.Failed(), total)

	// The files are already stored; a catalog failure only hides them from
	// listings.
	if err := s.Catalog.RecordAll(ctx, entries); err != nil {
		slog.Error("Failed to record uploads in catalog", "count", len(entries), "err", err)
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Success: true,
		Message: fmt.Sprintf("Successfully uploaded %d file(s)", len(stored)),
		Files:   stored,
	})
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeFailure(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = min(n, maxListLimit)
	}

	entries, err := s.Catalog.List(ctx, limit)
	if err != nil {
		slog.Error("Failed to list uploads", "err", err)
		writeFailure(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	writeJSON(w, http.StatusOK, UploadListResponse{Success: true, Uploads: entries})
}

func (s *Server) handleGetUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := r.PathValue("name")

	if err := storage.ValidateName(name); err != nil {
		writeFailure(w, http.StatusNotFound, msgUploadNotFound)
		return
	}

	data, err := s.Config.Engine.GetFile(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		writeFailure(w, http.StatusNotFound, msgUploadNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to read upload", "stored_name", name, "err", err)
		writeFailure(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	contentType := multipart.DefaultContentType
	downloadName := name

	// Files stored before the catalog existed, or whose record failed, are
	// still served with generic metadata.
	entry, err := s.Catalog.Get(ctx, name)
	switch {
	case err == nil:
		contentType = entry.ContentType
		downloadName = entry.OriginalName
	case !errors.Is(err, catalog.ErrNotFound):
		slog.Warn("Failed to look up upload metadata", "stored_name", name, "err", err)
	}

	user := "anonymous"
	if u := UserFromContext(ctx); u != nil {
		user = u.Name
	}
	slog.Info("Serving upload", "stored_name", name, "user", user, "request_id", RequestIDFromContext(ctx))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if disposition := mime.FormatMediaType("attachment", map[string]string{"filename": downloadName}); disposition != "" {
		w.Header().Set("Content-Disposition", disposition)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
