package httpserver

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"strings"
)

const (
	loginTemplate    = "login.html"
	registerTemplate = "register.html"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

type pageData struct {
	Title string
}

// ParseTemplates loads login.html and register.html from dir, or the built-in
// copies when dir is empty.
func ParseTemplates(dir string) (*template.Template, error) {
	var src fs.FS
	if strings.TrimSpace(dir) == "" {
		sub, err := fs.Sub(embeddedTemplates, "templates")
		if err != nil {
			return nil, fmt.Errorf("open embedded templates: %w", err)
		}
		src = sub
	} else {
		src = os.DirFS(dir)
	}

	tmpl, err := template.ParseFS(src, loginTemplate, registerTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}
