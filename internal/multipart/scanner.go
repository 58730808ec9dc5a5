package multipart

import "bytes"

// scanner locates delimiter lines ("--boundary" at the start of a line) in
// an accumulated multipart body.
type scanner struct {
	buf  []byte
	dash []byte
}

// next finds the first delimiter line at or after from. begin is the offset
// where the delimiter starts, including the line break that precedes it,
// after is the offset of the first byte following the delimiter line, and
// closing reports whether it was the terminal "--boundary--" delimiter.
//
// from must be zero or the offset just after a line break.
func (s *scanner) next(from int) (begin int, after int, closing bool, ok bool) {
	origin := from
	fromLineStart := true
	for from < len(s.buf) {
		i := bytes.Index(s.buf[from:], s.dash)
		if i < 0 {
			return 0, 0, false, false
		}
		i += from

		begin = i
		lineStart := i == 0 || (fromLineStart && i == from)
		switch {
		case i >= 2 && s.buf[i-2] == '\r' && s.buf[i-1] == '\n':
			begin = i - 2
			lineStart = true
		case i >= 1 && s.buf[i-1] == '\n':
			begin = i - 1
			lineStart = true
		}

		// The line break may belong to the previous delimiter line when the
		// part between them is empty.
		if begin < origin {
			begin = origin
		}

		end := i + len(s.dash)
		rest := s.buf[end:]

		if lineStart {
			if bytes.HasPrefix(rest, dashes) {
				return begin, end + len(dashes), true, true
			}
			if n, found := lineEnd(rest); found {
				return begin, end + n, false, true
			}
		}

		// Boundary text inside a payload or a longer boundary that shares
		// the same prefix; keep looking.
		from = i + 1
		fromLineStart = false
	}

	return 0, 0, false, false
}

// lineEnd skips optional transport padding and the line break that ends a
// delimiter line, returning the number of bytes consumed.
func lineEnd(rest []byte) (int, bool) {
	i := 0
	for i < len(rest) && (rest[i] == ' ' || rest[i] == '\t') {
		i++
	}

	switch {
	case bytes.HasPrefix(rest[i:], crlf):
		return i + len(crlf), true
	case i < len(rest) && rest[i] == '\n':
		return i + 1, true
	}

	return 0, false
}

// Split slices buf into raw parts separated by boundary. Each raw part is
// the bytes between one delimiter line and the next; the line break before
// a delimiter belongs to the delimiter and is not included. Data before the
// first delimiter and after the closing delimiter is ignored, and a trailing
// part that is never terminated is discarded. A buffer with no delimiter
// yields no parts.
//
// The returned slices alias buf.
func Split(buf []byte, boundary string) [][]byte {
	if boundary == "" {
		return nil
	}

	s := scanner{buf: buf, dash: []byte("--" + boundary)}

	_, pos, closing, ok := s.next(0)
	if !ok {
		return nil
	}

	var parts [][]byte
	for !closing {
		var begin, after int
		begin, after, closing, ok = s.next(pos)
		if !ok {
			break
		}

		parts = append(parts, buf[pos:begin])
		pos = after
	}

	return parts
}
