package multipart

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/textproto"
	"strings"
)

// File is a file part extracted from a multipart body.
type File struct {
	// FieldName is the form field the file was submitted under.
	FieldName string
	// FileName is the client-supplied filename exactly as it appeared
	// between the quotes of the Content-Disposition header.
	FileName string
	// ContentType is the part's declared Content-Type, or
	// DefaultContentType when none was declared.
	ContentType string
	// Data aliases the accumulated request body.
	Data []byte
}

// Size returns the payload length in bytes.
func (f *File) Size() int64 {
	return int64(len(f.Data))
}

// Classify inspects one raw part. isFile reports whether the part carries a
// non-empty filename. A file-flagged part whose header block cannot be
// separated from its payload, or cannot be parsed, returns ErrMalformedPart.
func Classify(raw []byte) (file *File, isFile bool, err error) {
	idx := bytes.Index(raw, headerTerminator)
	if idx < 0 {
		if hasFilenameMarker(raw) {
			return nil, true, fmt.Errorf("%w: no header terminator", ErrMalformedPart)
		}
		return nil, false, nil
	}

	block := raw[:idx]
	header, err := parseHeader(block)
	if err != nil {
		if hasFilenameMarker(block) {
			return nil, true, fmt.Errorf("%w: %v", ErrMalformedPart, err)
		}
		return nil, false, nil
	}

	disposition := header.Get("Content-Disposition")
	if disposition == "" {
		return nil, false, nil
	}

	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		if hasFilenameMarker(block) {
			return nil, true, fmt.Errorf("%w: content-disposition: %v", ErrMalformedPart, err)
		}
		return nil, false, nil
	}

	filename := params["filename"]
	if filename == "" {
		return nil, false, nil
	}

	contentType := strings.TrimSpace(header.Get("Content-Type"))
	if contentType == "" {
		contentType = DefaultContentType
	}

	return &File{
		FieldName:   params["name"],
		FileName:    filename,
		ContentType: contentType,
		Data:        raw[idx+len(headerTerminator):],
	}, true, nil
}

// parseHeader reads a header block of "Key: value" lines. The block does not
// include the blank line that terminates it.
func parseHeader(block []byte) (textproto.MIMEHeader, error) {
	r := io.MultiReader(bytes.NewReader(block), bytes.NewReader(headerTerminator))
	return textproto.NewReader(bufio.NewReader(r)).ReadMIMEHeader()
}

// hasFilenameMarker reports whether a header block mentions a filename
// parameter at all, which is what flags a part as a file even when its
// headers are unusable.
func hasFilenameMarker(block []byte) bool {
	lower := bytes.ToLower(block)
	return bytes.Contains(lower, []byte("filename=")) || bytes.Contains(lower, []byte("filename*="))
}
