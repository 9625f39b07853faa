package web

import (
	"embed"
	"html/template"

	"riacoin.node/rcn/internal/types"
)

//go:embed index.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"short": types.ShortAddress,
}

// parseTemplates parses the embedded dashboard page.
func parseTemplates() (*template.Template, error) {
	return template.New("index.html").Funcs(templateFuncs).ParseFS(templateFS, "index.html")
}
