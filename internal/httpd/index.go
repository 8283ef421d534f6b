package httpd

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>bunnylol</title>
<style>
body { font-family: -apple-system, sans-serif; margin: 2rem; }
table { border-collapse: collapse; width: 100%; }
td, th { text-align: left; padding: 0.25rem 0.75rem; border-bottom: 1px solid #ddd; }
code { font-weight: bold; }
</style>
</head>
<body>
<h1>bunnylol</h1>
<table>
<tr><th>binding</th><th>description</th><th>example</th></tr>
{{range .Rows}}<tr><td><code>{{.Binding}}</code></td><td>{{.Description}}</td><td>{{.Example}}</td></tr>
{{end}}
</table>
</body>
</html>
`))

type indexRow struct {
	Binding     string
	Description string
	Example     string
}

// renderIndex writes the bindings index page: one row per active plugin,
// sorted by first declared binding (spec §4.D "render the bindings
// index").
func (s *Server) renderIndex(c *gin.Context) {
	var rows []indexRow
	if s.reg != nil {
		for _, p := range s.reg.List() {
			binding := ""
			if len(p.Bindings) > 0 {
				binding = p.Bindings[0]
			}
			rows = append(rows, indexRow{
				Binding:     binding,
				Description: p.Description,
				Example:     p.Example,
			})
		}
	}

	c.Status(http.StatusOK)
	c.Header("Content-Type", "text/html; charset=utf-8")
	_ = indexTemplate.Execute(c.Writer, struct{ Rows []indexRow }{Rows: rows})
}
