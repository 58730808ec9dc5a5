package ui

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

// Upload represents a single stored upload for display.
type Upload struct {
	OriginalName string
	StoredName   string
	Size         int64
	CreatedAt    string
}

// writeAll writes each fragment in turn, stopping at the first error.
func writeAll(w io.Writer, fragments ...string) error {
	for _, f := range fragments {
		if _, err := io.WriteString(w, f); err != nil {
			return err
		}
	}
	return nil
}

// Layout renders a full HTML page with a title and body component.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		err := writeAll(w,
			"<!DOCTYPE html><html lang=\"en\">",
			"<head><meta charset=\"utf-8\">",
			"<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">",
			"<title>", html.EscapeString(title), "</title>",
			"<link rel=\"stylesheet\" href=\"/styles.css\">",
			"</head>",
			"<body><main class=\"container\">",
		)
		if err != nil {
			return err
		}

		if err := body.Render(ctx, w); err != nil {
			return err
		}

		return writeAll(w, "</main><script src=\"/script.js\"></script></body></html>")
	})
}

// IndexPage renders the company research page with the upload form and the
// most recent uploads.
func IndexPage(recent []Upload) templ.Component {
	return Layout("Company Dossier", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		err := writeAll(w,
			"<header><h1>Company Dossier</h1>",
			"<p>Research a company, ask follow-up questions and attach supporting files.</p></header>",

			"<section><form id=\"company-form\">",
			"<input type=\"text\" id=\"company-name\" name=\"companyName\" placeholder=\"Company name\" required>",
			"<button type=\"submit\" id=\"search-btn\">Search</button>",
			"</form>",
			"<div id=\"loader\" hidden>Loading&hellip;</div>",
			"<div id=\"results-container\" hidden><div id=\"company-info\"></div>",
			"<div id=\"followup-container\"><form id=\"followup-form\">",
			"<input type=\"text\" id=\"followup-question\" name=\"question\" placeholder=\"Ask a follow-up question\" required>",
			"<button type=\"submit\">Ask</button>",
			"</form><div id=\"followup-response\"></div></div></div></section>",

			"<section><h2>Upload files</h2>",
			"<form id=\"file-upload-form\" action=\"/api/upload\" method=\"post\" enctype=\"multipart/form-data\">",
			"<input type=\"file\" id=\"file-input\" name=\"files\" multiple>",
			"<ul id=\"file-list\"></ul>",
			"<button type=\"submit\" id=\"upload-btn\">Upload</button>",
			"</form><div id=\"upload-status\"></div></section>",

			"<section><h2>Recent uploads</h2>",
		)
		if err != nil {
			return err
		}

		if len(recent) == 0 {
			return writeAll(w, "<p>No uploads yet.</p></section>")
		}

		if err := writeAll(w, "<table><thead><tr><th>File</th><th>Size (bytes)</th><th>Uploaded</th></tr></thead><tbody>"); err != nil {
			return err
		}

		for _, u := range recent {
			row := fmt.Sprintf("<tr><td title=\"%s\">%s</td><td>%d</td><td>%s</td></tr>",
				html.EscapeString(u.StoredName), html.EscapeString(u.OriginalName), u.Size, html.EscapeString(u.CreatedAt))
			if err := writeAll(w, row); err != nil {
				return err
			}
		}

		return writeAll(w, "</tbody></table></section>")
	}))
}
