// Package view renders the HTML pages of the recipe book from templates
// embedded in the binary.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/loykin/recipebook/internal/recipe"
	"github.com/loykin/recipebook/internal/timing"
)

// Page names understood by Render.
const (
	PageHome  = "home"
	PageNew   = "new"
	PageRoast = "roast"
	PageSteps = "steps"
)

//go:embed templates/*.html
var files embed.FS

// Page is the data every template receives. Base is the mount path with
// no trailing slash ("" when served at the root).
type Page struct {
	Base    string
	Title   string
	Active  string
	Recipes []recipe.Recipe
	End     string
	Steps   []timing.Entry
}

// Renderer executes named templates. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates. A template that fails to parse is
// a startup error.
func New() (*Renderer, error) {
	t, err := template.New("recipebook").ParseFS(files, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	for _, name := range []string{PageHome, PageNew, PageRoast, PageSteps} {
		if t.Lookup(name) == nil {
			return nil, fmt.Errorf("template %q not defined", name)
		}
	}
	return &Renderer{tmpl: t}, nil
}

// Template exposes the parsed set, e.g. for gin's SetHTMLTemplate.
func (r *Renderer) Template() *template.Template { return r.tmpl }

// Render writes the named template to w.
func (r *Renderer) Render(w io.Writer, name string, data Page) error {
	return r.tmpl.ExecuteTemplate(w, name, data)
}

// RenderString renders the named template into a string.
func (r *Renderer) RenderString(name string, data Page) (string, error) {
	var buf bytes.Buffer
	if err := r.Render(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
