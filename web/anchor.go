package web

import (
	"bytes"
	"html/template"
)

// Anchor is a link that may be bound to a client-side action. Anchors whose
// default click action is suppressed carry data-suppress, which panel.js
// looks for; all other anchors are plain links.
type Anchor struct {
	Href   string
	Action string
	Label  string
	Class  string
}

// SuppressDefault reports whether following the link should be cancelled:
// the anchor is bound to an action, or it has no real destination.
func (a Anchor) SuppressDefault() bool {
	return a.Action != "" || a.Href == "" || a.Href == "#"
}

var anchorTmpl = template.Must(template.New("anchor").Parse(
	`<a href="{{.Href}}"{{if .Class}} class="{{.Class}}"{{end}}` +
		`{{if .SuppressDefault}} data-suppress="true"{{end}}` +
		`{{if .Action}} data-action="{{.Action}}"{{end}}>{{.Label}}</a>`))

// HTML renders the anchor element.
func (a Anchor) HTML() (template.HTML, error) {
	var buf bytes.Buffer
	if err := anchorTmpl.Execute(&buf, a); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// anchorFunc backs the "anchor" template function:
//
//	{{anchor href label}}
//	{{anchor href label action}}
//	{{anchor href label action class}}
func anchorFunc(href, label string, rest ...string) (template.HTML, error) {
	a := Anchor{Href: href, Label: label}
	if len(rest) > 0 {
		a.Action = rest[0]
	}
	if len(rest) > 1 {
		a.Class = rest[1]
	}
	return a.HTML()
}
