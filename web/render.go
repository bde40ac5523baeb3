package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/jmcleod/visaexpress/notify"
)

// Page is the data every view is rendered with.
type Page struct {
	Title         string
	Username      string
	CSRFToken     string
	Flash         string
	Inline        string
	Notifications []notify.Notification
	Data          any
}

// Renderer renders named views inside the base layout.
type Renderer struct {
	views map[string]*template.Template
}

// NewRenderer parses the embedded templates. Every file other than
// base.html becomes a view named after the file.
func NewRenderer() (*Renderer, error) {
	base, err := template.New("base").Funcs(template.FuncMap{
		"anchor": anchorFunc,
		"json":   prettyJSON,
	}).ParseFS(templates, "templates/base.html")
	if err != nil {
		return nil, fmt.Errorf("parsing base template: %w", err)
	}

	files, err := fs.Glob(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}

	views := make(map[string]*template.Template, len(files))
	for _, f := range files {
		name := strings.TrimSuffix(strings.TrimPrefix(f, "templates/"), ".html")
		if name == "base" {
			continue
		}
		t, err := template.Must(base.Clone()).ParseFS(templates, f)
		if err != nil {
			return nil, fmt.Errorf("parsing view %s: %w", name, err)
		}
		views[name] = t
	}
	return &Renderer{views: views}, nil
}

// Has reports whether view exists.
func (r *Renderer) Has(view string) bool {
	_, ok := r.views[view]
	return ok
}

// Render writes view with status. The page is rendered into a buffer first
// so a template error still yields a clean 500.
func (r *Renderer) Render(w http.ResponseWriter, status int, view string, page Page) error {
	t, ok := r.views[view]
	if !ok {
		return fmt.Errorf("unknown view %q", view)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", page); err != nil {
		return fmt.Errorf("rendering view %s: %w", view, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

func prettyJSON(v any) string {
	var raw []byte
	switch x := v.(type) {
	case json.RawMessage:
		raw = x
	case []byte:
		raw = x
	default:
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return ""
		}
		return string(b)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}
