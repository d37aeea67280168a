package util

import (
	"bytes"
	"html/template"
	"net/http"
)

type TemplateRenderer struct {
	tmpl *template.Template
}

func NewTemplateRenderer(tmpl *template.Template) *TemplateRenderer {
	return &TemplateRenderer{tmpl: tmpl}
}

func (tr *TemplateRenderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := tr.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteHTML renders fully before anything is written to w.
func (tr *TemplateRenderer) WriteHTML(w http.ResponseWriter, name string, data any) error {
	content, err := tr.Render(name, data)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err = w.Write([]byte(content))
	return err
}
