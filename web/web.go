// Package web содержит HTML-шаблоны и статику, встроенные в бинарник.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/url"
)

//go:embed templates/*.html
var templates embed.FS

//go:embed static
var static embed.FS

// Templates разбирает все шаблоны; имя шаблона - имя файла ("login.html").
func Templates() (*template.Template, error) {
	return template.New("").
		Funcs(template.FuncMap{"pathescape": url.PathEscape}).
		ParseFS(templates, "templates/*.html")
}

// Static возвращает файловую систему со статикой (корень - папка static).
func Static() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
