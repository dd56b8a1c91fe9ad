package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// PageNames lists every page rendered inside the shared layout.
var PageNames = []string{
	"request_index",
	"request_form",
	"request_details",
	"request_delete",
	"listing_index",
	"login",
	"access_denied",
	"error",
}

// Pages parses each page together with the layout. The returned templates
// execute "layout".
func Pages(funcs template.FuncMap) (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(PageNames))
	for _, name := range PageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse page %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// Static returns the embedded asset tree served under /static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
