package multipart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"strings"
)

// DefaultContentType is reported for file parts that do not declare one.
const DefaultContentType = "application/octet-stream"

var (
	ErrMissingBoundary = errors.New("missing multipart boundary")
	ErrMalformedPart   = errors.New("malformed multipart part")
	ErrBodyTooLarge    = errors.New("multipart body too large")
)

var (
	crlf             = []byte("\r\n")
	dashes           = []byte("--")
	headerTerminator = []byte("\r\n\r\n")
)

// Accumulate reads r to the end into a single contiguous buffer. A positive
// limit caps the number of bytes accepted; reading more than limit bytes
// returns ErrBodyTooLarge. A limit of zero or math.MaxInt64 reads without a
// cap.
func Accumulate(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 || limit == math.MaxInt64 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		return data, nil
	}

	var buf bytes.Buffer
	n, err := buf.ReadFrom(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if n > limit {
		return nil, ErrBodyTooLarge
	}

	return buf.Bytes(), nil
}

// BoundaryFromContentType extracts the boundary parameter of a multipart
// Content-Type header. Quoted and bare tokens are both accepted.
func BoundaryFromContentType(contentType string) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingBoundary, err)
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		return "", fmt.Errorf("%w: unexpected media type %q", ErrMissingBoundary, mediaType)
	}

	boundary := params["boundary"]
	if boundary == "" {
		return "", ErrMissingBoundary
	}

	return boundary, nil
}

// Slot is the outcome of classifying one file-flagged part. Exactly one of
// File and Err is set.
type Slot struct {
	File *File
	Err  error
}

// Parse splits buf on boundary and classifies every part, returning one slot
// per file-flagged part in the order the parts appear. Parts that are not
// files are dropped.
func Parse(buf []byte, boundary string) []Slot {
	var slots []Slot
	for _, raw := range Split(buf, boundary) {
		file, isFile, err := Classify(raw)
		if !isFile {
			continue
		}
		slots = append(slots, Slot{File: file, Err: err})
	}
	return slots
}
