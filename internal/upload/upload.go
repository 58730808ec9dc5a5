package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"dossier/internal/multipart"
	"dossier/internal/storage"

	"golang.org/x/sync/errgroup"
)

var (
	ErrMissingBoundary = multipart.ErrMissingBoundary
	ErrBodyTooLarge    = multipart.ErrBodyTooLarge

	// ErrNoFilesStored is returned when a request carried file parts but
	// none of them could be stored.
	ErrNoFilesStored = errors.New("no uploaded files could be stored")

	// ErrUnexpected wraps faults that should never happen, such as a panic
	// while scanning the body.
	ErrUnexpected = errors.New("unexpected upload failure")
)

// StoredFile describes one persisted upload. It is never modified after it
// is created.
type StoredFile struct {
	OriginalName string    `json:"originalName"`
	StoredName   string    `json:"storedName"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"type"`
	CreatedAt    time.Time `json:"-"`
}

// Result holds one slot per file part found in a request, in the order the
// parts appeared. A nil slot is a file part that was malformed or could not
// be written.
type Result struct {
	Files []*StoredFile
}

// Stored returns the files that were persisted, skipping failed slots.
func (r *Result) Stored() []StoredFile {
	stored := make([]StoredFile, 0, len(r.Files))
	for _, f := range r.Files {
		if f != nil {
			stored = append(stored, *f)
		}
	}
	return stored
}

// Count returns the number of files that were persisted.
func (r *Result) Count() int {
	n := 0
	for _, f := range r.Files {
		if f != nil {
			n++
		}
	}
	return n
}

// Failed returns the number of file parts that did not produce a stored
// file.
func (r *Result) Failed() int {
	return len(r.Files) - r.Count()
}

// ParseFunc splits an accumulated body into file slots.
type ParseFunc func(buf []byte, boundary string) []multipart.Slot

type Config struct {
	// MaxBodyBytes caps the accumulated request body; zero disables the cap.
	MaxBodyBytes int64
	// MaxParallelWrites bounds concurrent writes within one request; zero
	// means one goroutine per file.
	MaxParallelWrites int
	// Names generates storage names. Defaults to NewRandomNameGenerator().
	Names NameGenerator
	// Parser defaults to multipart.Parse.
	Parser ParseFunc
}

// Uploader turns a raw multipart request into stored files.
type Uploader struct {
	engine            storage.StorageEngine
	names             NameGenerator
	parse             ParseFunc
	maxBodyBytes      int64
	maxParallelWrites int
}

// NewUploader returns an Uploader writing to engine. The engine is expected
// to have been initialized already.
func NewUploader(engine storage.StorageEngine, cfg Config) *Uploader {
	names := cfg.Names
	if names == nil {
		names = NewRandomNameGenerator()
	}

	parse := cfg.Parser
	if parse == nil {
		parse = multipart.Parse
	}

	return &Uploader{
		engine:            engine,
		names:             names,
		parse:             parse,
		maxBodyBytes:      cfg.MaxBodyBytes,
		maxParallelWrites: cfg.MaxParallelWrites,
	}
}

// Upload parses a multipart/form-data body and stores every file part it
// contains. The boundary is checked before anything is read, so a request
// without one never touches storage.
//
// A failure confined to one file leaves a nil slot in the result and does
// not affect the others. ErrNoFilesStored is returned, together with the
// result, only when file parts were present and every one of them failed.
func (u *Uploader) Upload(ctx context.Context, contentType string, body io.Reader) (*Result, error) {
	boundary, err := multipart.BoundaryFromContentType(contentType)
	if err != nil {
		return nil, err
	}

	buf, err := multipart.Accumulate(body, u.maxBodyBytes)
	if err != nil {
		return nil, err
	}

	slots, err := parseSafely(u.parse, buf, boundary)
	if err != nil {
		return nil, err
	}

	files := make([]*StoredFile, len(slots))

	var eg errgroup.Group
	if u.maxParallelWrites > 0 {
		eg.SetLimit(u.maxParallelWrites)
	}

	for i, slot := range slots {
		if slot.Err != nil {
			slog.Warn("Skipping malformed file part", "index", i, "err", slot.Err)
			continue
		}

		eg.Go(func() error {
			files[i] = u.persist(ctx, slot.File)
			return nil
		})
	}

	// Every goroutine reports through its own slot and never fails.
	_ = eg.Wait()

	result := &Result{Files: files}
	if len(files) > 0 && result.Count() == 0 {
		return result, ErrNoFilesStored
	}

	return result, nil
}

func parseSafely(parse ParseFunc, buf []byte, boundary string) (slots []multipart.Slot, err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			slog.Error("Recovered from panic while parsing upload", "error", rvr)
			err = fmt.Errorf("%w: %v", ErrUnexpected, rvr)
		}
	}()

	return parse(buf, boundary), nil
}

// persist writes one file and returns its metadata, or nil on any failure.
func (u *Uploader) persist(ctx context.Context, file *multipart.File) (stored *StoredFile) {
	defer func() {
		if rvr := recover(); rvr != nil {
			slog.Error("Recovered from panic while storing upload", "original_name", file.FileName, "error", rvr)
			stored = nil
		}
	}()

	name, err := u.names.Generate(file.FileName)
	if err != nil {
		slog.Error("Failed to generate storage name", "original_name", file.FileName, "err", err)
		return nil
	}

	if err := u.engine.PutFile(ctx, name, file.ContentType, file.Data); err != nil {
		slog.Error("Failed to store uploaded file", "original_name", file.FileName, "stored_name", name, "err", err)
		return nil
	}

	slog.Debug("Stored uploaded file", "original_name", file.FileName, "stored_name", name, "size", file.Size())

	return &StoredFile{
		OriginalName: file.FileName,
		StoredName:   name,
		Size:         file.Size(),
		ContentType:  file.ContentType,
		CreatedAt:    time.Now().UTC(),
	}
}
