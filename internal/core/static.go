package core

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"dossier/internal/ui"
)

const recentUploadsOnIndex = 10

// staticContentTypes maps file extensions to the Content-Type they are
// served with. Anything else is served as HTML.
var staticContentTypes = map[string]string{
	".js":   "text/javascript",
	".css":  "text/css",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".mp4":  "video/mp4",
}

func staticContentType(name string) string {
	if ct, ok := staticContentTypes[strings.ToLower(path.Ext(name))]; ok {
		return ct
	}
	return "text/html"
}

// staticRelPath returns a sanitized path relative to the static directory.
// Traversal, absolute paths and hidden files are rejected.
func staticRelPath(urlPath string) (string, bool) {
	rel := strings.TrimLeft(urlPath, "/")
	if rel == "" {
		return "", false
	}

	// Reject NUL early (can appear via %00).
	if strings.IndexByte(rel, 0) != -1 || strings.Contains(rel, "\\") {
		return "", false
	}

	for _, seg := range strings.Split(rel, "/") {
		if seg == "" || strings.HasPrefix(seg, ".") {
			return "", false
		}
	}

	clean := path.Clean(rel)
	osPath := filepath.FromSlash(clean)
	if filepath.IsAbs(osPath) || filepath.VolumeName(osPath) != "" {
		return "", false
	}

	return clean, true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var recent []ui.Upload
	entries, err := s.Catalog.List(ctx, recentUploadsOnIndex)
	if err != nil {
		slog.Warn("Failed to list recent uploads", "err", err)
	}
	for _, e := range entries {
		recent = append(recent, ui.Upload{
			OriginalName: e.OriginalName,
			StoredName:   e.StoredName,
			Size:         e.Size,
			CreatedAt:    e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := ui.IndexPage(recent).Render(ctx, w); err != nil {
		slog.Error("Failed to render index page", "err", err)
	}
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	cleanPath := strings.TrimLeft(r.URL.Path, "/")

	notFound := func() {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("File not found: " + cleanPath))
	}

	if s.Config.StaticDir == "" {
		notFound()
		return
	}

	rel, ok := staticRelPath(r.URL.Path)
	if !ok {
		notFound()
		return
	}

	f, err := os.Open(filepath.Join(s.Config.StaticDir, filepath.FromSlash(rel)))
	if err != nil {
		notFound()
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		notFound()
		return
	}

	w.Header().Set("Content-Type", staticContentType(rel))
	http.ServeContent(w, r, rel, info.ModTime(), f)
}
