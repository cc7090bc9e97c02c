package api

import (
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*
var templateFS embed.FS

// newTemplates parses the HTML templates. Times are shown in loc.
func newTemplates(loc *time.Location) *template.Template {
	funcs := template.FuncMap{
		"upper": strings.ToUpper,
		"clock": func(t time.Time) string {
			return t.In(loc).Format("2006-01-02 15:04")
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html"))
}
