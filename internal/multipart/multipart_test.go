package multipart_test

import (
	"bytes"
	"math"
	stdmultipart "mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"dossier/internal/multipart"

	"github.com/stretchr/testify/require"
)

const testBoundary = "XYZ"

// filePart renders a single file part, including its leading delimiter.
func filePart(field, filename, contentType string, payload []byte) []byte {
	var b bytes.Buffer
	b.WriteString("--" + testBoundary + "\r\n")
	b.WriteString(`Content-Disposition: form-data; name="` + field + `"; filename="` + filename + `"` + "\r\n")
	if contentType != "" {
		b.WriteString("Content-Type: " + contentType + "\r\n")
	}
	b.WriteString("\r\n")
	b.Write(payload)
	b.WriteString("\r\n")
	return b.Bytes()
}

func fieldPart(field, value string) []byte {
	return []byte("--" + testBoundary + "\r\n" +
		`Content-Disposition: form-data; name="` + field + `"` + "\r\n\r\n" +
		value + "\r\n")
}

func body(parts ...[]byte) []byte {
	var b bytes.Buffer
	for _, p := range parts {
		b.Write(p)
	}
	b.WriteString("--" + testBoundary + "--\r\n")
	return b.Bytes()
}

func TestBoundaryFromContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		contentType string
		want        string
		wantErr     bool
	}{
		{name: "bare", contentType: "multipart/form-data; boundary=XYZ", want: "XYZ"},
		{name: "quoted", contentType: `multipart/form-data; boundary="a b:c"`, want: "a b:c"},
		{name: "webkit", contentType: "multipart/form-data; boundary=----WebKitFormBoundary7MA4YWxkTrZu0gW", want: "----WebKitFormBoundary7MA4YWxkTrZu0gW"},
		{name: "missing", contentType: "multipart/form-data", wantErr: true},
		{name: "empty", contentType: "multipart/form-data; boundary=", wantErr: true},
		{name: "json", contentType: "application/json", wantErr: true},
		{name: "blank", contentType: "", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := multipart.BoundaryFromContentType(tc.contentType)
			if tc.wantErr {
				require.ErrorIs(t, err, multipart.ErrMissingBoundary)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestAccumulate(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte{0x00, 0xff, '\r', '\n'}, 64)

	got, err := multipart.Accumulate(bytes.NewReader(payload), 0)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	got, err = multipart.Accumulate(bytes.NewReader(payload), int64(len(payload)))
	require.NoError(t, err, "a body exactly at the limit is accepted")
	require.Equal(t, payload, got)

	_, err = multipart.Accumulate(bytes.NewReader(payload), int64(len(payload)-1))
	require.ErrorIs(t, err, multipart.ErrBodyTooLarge)

	got, err = multipart.Accumulate(bytes.NewReader(payload), math.MaxInt64)
	require.NoError(t, err, "the largest limit reads the whole body")
	require.Equal(t, payload, got)
}

func TestSplitNoBoundaryYieldsNoParts(t *testing.T) {
	t.Parallel()

	require.Empty(t, multipart.Split([]byte("just some bytes\r\n"), testBoundary))
	require.Empty(t, multipart.Split(nil, testBoundary))
	require.Empty(t, multipart.Split(body(fieldPart("a", "b")), ""))
}

func TestSplitStripsDelimiterLineBreaks(t *testing.T) {
	t.Parallel()

	buf := []byte("preamble text\r\n" +
		"--XYZ\r\nA: 1\r\n\r\nfirst\r\n" +
		"--XYZ  \r\nA: 2\r\n\r\nsecond\r\n\r\n" +
		"--XYZ--\r\nepilogue --XYZ\r\nignored\r\n")

	parts := multipart.Split(buf, testBoundary)
	require.Len(t, parts, 2)
	require.Equal(t, "A: 1\r\n\r\nfirst", string(parts[0]))
	require.Equal(t, "A: 2\r\n\r\nsecond\r\n", string(parts[1]), "only the CRLF owned by the delimiter is removed")
}

func TestSplitDiscardsUnterminatedTrailingPart(t *testing.T) {
	t.Parallel()

	buf := []byte("--XYZ\r\nA: 1\r\n\r\nfirst\r\n--XYZ\r\nA: 2\r\n\r\ntruncated")

	parts := multipart.Split(buf, testBoundary)
	require.Len(t, parts, 1)
	require.Equal(t, "A: 1\r\n\r\nfirst", string(parts[0]))
}

func TestSplitIgnoresBoundaryLookalikesInPayload(t *testing.T) {
	t.Parallel()

	payload := []byte("line\r\n--XYZW not a delimiter\r\n--XYZ-ish\r\nend")
	buf := body(filePart("files", "a.bin", "", payload))

	parts := multipart.Split(buf, testBoundary)
	require.Len(t, parts, 1)

	file, isFile, err := multipart.Classify(parts[0])
	require.NoError(t, err)
	require.True(t, isFile)
	require.Equal(t, payload, file.Data)
}

func TestSplitEmptyParts(t *testing.T) {
	t.Parallel()

	parts := multipart.Split([]byte("--XYZ\r\n--XYZ\r\n\r\n\r\n--XYZ--"), testBoundary)
	require.Len(t, parts, 2)
	require.Empty(t, parts[0])
	require.Equal(t, "\r\n", string(parts[1]))
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw         string
		wantFile    bool
		wantErr     bool
		filename    string
		field       string
		contentType string
		data        string
	}{
		{
			name:        "file with content type",
			raw:         "Content-Disposition: form-data; name=\"files\"; filename=\"report.pdf\"\r\nContent-Type: application/pdf\r\n\r\n%PDF-1.4",
			wantFile:    true,
			filename:    "report.pdf",
			field:       "files",
			contentType: "application/pdf",
			data:        "%PDF-1.4",
		},
		{
			name:        "file without content type",
			raw:         "Content-Disposition: form-data; name=\"files\"; filename=\"notes\"\r\n\r\nhello",
			wantFile:    true,
			filename:    "notes",
			field:       "files",
			contentType: multipart.DefaultContentType,
			data:        "hello",
		},
		{
			name:        "lowercase header names",
			raw:         "content-disposition: form-data; filename=\"x.txt\"; name=\"f\"\r\ncontent-type: text/plain\r\n\r\n",
			wantFile:    true,
			filename:    "x.txt",
			field:       "f",
			contentType: "text/plain",
			data:        "",
		},
		{
			name:        "path separators are kept verbatim",
			raw:         "Content-Disposition: form-data; name=\"files\"; filename=\"../../etc/passwd\"\r\n\r\nroot",
			wantFile:    true,
			filename:    "../../etc/passwd",
			field:       "files",
			contentType: multipart.DefaultContentType,
			data:        "root",
		},
		{
			name: "plain field",
			raw:  "Content-Disposition: form-data; name=\"comment\"\r\n\r\nhi",
		},
		{
			name: "empty filename",
			raw:  "Content-Disposition: form-data; name=\"files\"; filename=\"\"\r\n\r\n",
		},
		{
			name: "no disposition",
			raw:  "Content-Type: text/plain\r\n\r\nhi",
		},
		{
			name:     "file without header terminator",
			raw:      "Content-Disposition: form-data; name=\"files\"; filename=\"a.txt\"\r\npayload",
			wantFile: true,
			wantErr:  true,
		},
		{
			name: "field without header terminator",
			raw:  "Content-Disposition: form-data; name=\"comment\"",
		},
		{
			name:     "unparseable disposition on a file",
			raw:      "Content-Disposition: form-data; filename=\"unterminated\r\n\r\ndata",
			wantFile: true,
			wantErr:  true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			file, isFile, err := multipart.Classify([]byte(tc.raw))
			require.Equal(t, tc.wantFile, isFile, "isFile")
			if tc.wantErr {
				require.ErrorIs(t, err, multipart.ErrMalformedPart)
				require.Nil(t, file)
				return
			}
			require.NoError(t, err)
			if !tc.wantFile {
				require.Nil(t, file)
				return
			}
			require.Equal(t, tc.filename, file.FileName)
			require.Equal(t, tc.field, file.FieldName)
			require.Equal(t, tc.contentType, file.ContentType)
			require.Equal(t, tc.data, string(file.Data))
			require.Equal(t, int64(len(tc.data)), file.Size())
		})
	}
}

func TestParsePreservesOrderAndDropsFields(t *testing.T) {
	t.Parallel()

	buf := body(
		fieldPart("comment", "first"),
		filePart("files", "a.txt", "text/plain", []byte("aaa")),
		fieldPart("comment", "second"),
		filePart("files", "b.png", "image/png", []byte{0x89, 'P', 'N', 'G', 0x00, '\r', '\n'}),
		filePart("files", "c.txt", "", []byte("c")),
	)

	slots := multipart.Parse(buf, testBoundary)
	require.Len(t, slots, 3)

	var names []string
	for _, slot := range slots {
		require.NoError(t, slot.Err)
		require.NotNil(t, slot.File)
		names = append(names, slot.File.FileName)
	}
	require.Equal(t, []string{"a.txt", "b.png", "c.txt"}, names)
	require.Equal(t, []byte{0x89, 'P', 'N', 'G', 0x00, '\r', '\n'}, slots[1].File.Data)
}

func TestParseMalformedFilePartKeepsItsSlot(t *testing.T) {
	t.Parallel()

	broken := []byte("--XYZ\r\nContent-Disposition: form-data; name=\"files\"; filename=\"broken.txt\"\r\n")
	buf := body(
		filePart("files", "a.txt", "", []byte("a")),
		broken,
		filePart("files", "c.txt", "", []byte("c")),
	)

	slots := multipart.Parse(buf, testBoundary)
	require.Len(t, slots, 3)
	require.Equal(t, "a.txt", slots[0].File.FileName)
	require.Nil(t, slots[1].File)
	require.ErrorIs(t, slots[1].Err, multipart.ErrMalformedPart)
	require.Equal(t, "c.txt", slots[2].File.FileName)
}

func TestParseZeroFileParts(t *testing.T) {
	t.Parallel()

	slots := multipart.Parse(body(fieldPart("a", "1"), fieldPart("b", "2")), testBoundary)
	require.Empty(t, slots)
}

// The hand-written parser must agree with the standard library encoder on
// what it produces.
func TestParseAgreesWithStandardWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	w := stdmultipart.NewWriter(&buf)

	require.NoError(t, w.WriteField("companyName", "Acme"))

	binary := make([]byte, 4096)
	for i := range binary {
		binary[i] = byte(i * 7)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="files"; filename="blob.bin"`)
	header.Set("Content-Type", "application/x-custom")
	pw, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = pw.Write(binary)
	require.NoError(t, err)

	fw, err := w.CreateFormFile("files", "readme.md")
	require.NoError(t, err)
	_, err = fw.Write([]byte(strings.Repeat("# title\r\n", 10)))
	require.NoError(t, err)

	require.NoError(t, w.Close())

	boundary, err := multipart.BoundaryFromContentType(w.FormDataContentType())
	require.NoError(t, err)

	slots := multipart.Parse(buf.Bytes(), boundary)
	require.Len(t, slots, 2)

	require.Equal(t, "blob.bin", slots[0].File.FileName)
	require.Equal(t, "application/x-custom", slots[0].File.ContentType)
	require.Equal(t, binary, slots[0].File.Data)

	require.Equal(t, "readme.md", slots[1].File.FileName)
	require.Equal(t, "application/octet-stream", slots[1].File.ContentType)
	require.Equal(t, strings.Repeat("# title\r\n", 10), string(slots[1].File.Data))
}
