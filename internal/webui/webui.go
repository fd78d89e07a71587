// Package webui はサーバーレンダリング用の HTML テンプレートを埋め込みで提供します。
package webui

import (
	"embed"
	"html/template"
)

//go:embed templates/*.html
var files embed.FS

// Templates は埋め込みテンプレートをパースして返します。
// 起動時に一度だけ呼び、gin の SetHTMLTemplate に渡します。
func Templates() *template.Template {
	return template.Must(template.ParseFS(files, "templates/*.html"))
}
