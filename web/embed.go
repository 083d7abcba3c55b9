// Package web renders the single analysis page served by the API server.
//
// Templates live in templates/ and are embedded at compile time. The model's
// summary is Markdown; it is converted to HTML with goldmark, which drops raw
// HTML from the source, so the result is safe to inline.
package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/seenimoa/aifinanalyst/internal/analyst"
	"github.com/seenimoa/aifinanalyst/internal/statement"
	"github.com/seenimoa/aifinanalyst/pkg/utils"
)

//go:embed templates/*.html
var templateFS embed.FS

// Title is the page and sidebar title.
const Title = "AI Financial Analyst"

// Mode is the only assistant the sidebar offers.
const Mode = "Financial Statements"

// Option is one entry of a select box.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Form holds the current values of the input form.
type Form struct {
	Ticker   string
	Types    []Option
	Periods  []Option
	Limit    int
	MinLimit int
	MaxLimit int
}

// NewForm builds the form state for req. Zero fields in req fall back to
// the form defaults.
func NewForm(req statement.Request) Form {
	if !req.Type.Valid() {
		req.Type = statement.Income
	}
	if !req.Period.Valid() {
		req.Period = statement.Annual
	}
	if req.Limit == 0 {
		req.Limit = statement.DefaultLimit
	}

	f := Form{
		Ticker:   req.Ticker,
		Limit:    req.Limit,
		MinLimit: statement.MinLimit,
		MaxLimit: statement.MaxLimit,
	}
	for _, k := range statement.Kinds {
		f.Types = append(f.Types, Option{Value: k.Name, Label: k.Name, Selected: k.Type == req.Type})
	}
	for _, p := range []statement.Period{statement.Annual, statement.Quarterly} {
		label := "Annual"
		if p == statement.Quarterly {
			label = "Quarterly"
		}
		f.Periods = append(f.Periods, Option{Value: p.String(), Label: label, Selected: p == req.Period})
	}
	return f
}

// Page is the data the page template renders.
type Page struct {
	Title       string
	Mode        string
	Form        Form
	Result      *analyst.Result
	SummaryHTML template.HTML
	Downloads   []Link
}

// Link is an anchor the page renders as is.
type Link struct {
	Label string
	URL   template.URL
}

// Renderer executes the embedded templates.
type Renderer struct {
	tmpl *template.Template
	md   goldmark.Markdown
}

// NewRenderer parses the embedded templates.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"cell": displayCell,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}
	return &Renderer{
		tmpl: tmpl,
		md:   goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
	}, nil
}

// displayCell renders a table cell for the page. Numbers get thousands
// separators; everything else is shown as upstream sent it.
func displayCell(t *statement.Table, i int, col string) string {
	if i < 0 || i >= t.Len() {
		return statement.NotAvailable
	}
	v, ok := t.Rows[i].Lookup(col)
	if !ok {
		return statement.NotAvailable
	}
	if n, ok := v.(json.Number); ok {
		return utils.FormatGrouped(n.String())
	}
	return statement.FormatValue(v)
}

// Markdown converts model output to HTML.
func (r *Renderer) Markdown(src string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("web: render markdown: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// Render writes the full page. When p.Result carries a summary, it is
// converted from Markdown first.
func (r *Renderer) Render(w io.Writer, p Page) error {
	if p.Title == "" {
		p.Title = Title
	}
	if p.Mode == "" {
		p.Mode = Mode
	}
	if p.Result != nil && p.Result.Summary != "" && p.SummaryHTML == "" {
		html, err := r.Markdown(p.Result.Summary)
		if err != nil {
			return err
		}
		p.SummaryHTML = html
	}
	return r.tmpl.ExecuteTemplate(w, "page.html", p)
}
