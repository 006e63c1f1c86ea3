// Package ui embeds the HTML page templates.
package ui

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
)

//go:embed templates/*.html
var files embed.FS

// Templates parses every page under templates/ together with base.html and
// returns them keyed by page name ("index", "login", ...). Executing a page
// renders the "base" layout around the page's "content" block.
func Templates() (map[string]*template.Template, error) {
	pages, err := fs.Glob(files, "templates/*.html")
	if err != nil {
		return nil, err
	}

	out := make(map[string]*template.Template, len(pages))
	for _, p := range pages {
		name := strings.TrimSuffix(path.Base(p), ".html")
		if name == "base" {
			continue
		}
		t, err := template.New(name).ParseFS(files, "templates/base.html", p)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}
