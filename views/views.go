// Package views holds the server-rendered page templates.
package views

import (
	"embed"
	"net/http"

	"github.com/gofiber/template/html/v2"
	"github.com/sahilchouksey/pyq-archive/services"
)

//go:embed *.html layouts/*.html
var files embed.FS

// Layout wraps every page
const Layout = "layouts/main"

// New returns a template engine over the embedded page files
func New() *html.Engine {
	engine := html.NewFileSystem(http.FS(files), ".html")
	engine.AddFunc("shortForm", services.ShortForm)
	engine.AddFunc("deref", func(p *int) int {
		if p == nil {
			return 0
		}
		return *p
	})
	return engine
}
