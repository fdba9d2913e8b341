package mcp

import (
	"html/template"
	"net/http"
)

var landingPage = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Ally Legal Assistant</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Roboto, Arial, sans-serif; background: #f8fafc; color: #0f172a; max-width: 640px; margin: 3rem auto; padding: 0 1rem; }
  code { font-family: Menlo, monospace; background: #e2e8f0; padding: 0 0.25rem; border-radius: 4px; }
  li { margin-bottom: 0.4rem; }
</style>
</head>
<body>
<h1>Ally Legal Assistant</h1>
<p>Contract clause search, policy lookup and compliance reports over the Model Context Protocol. Version {{.Version}}.</p>
<h2>Endpoints</h2>
<ul>
  <li><code>/mcp</code> MCP Streamable HTTP</li>
  <li><code>/health</code> health check</li>
</ul>
<h2>Tools</h2>
<ul>
{{range .Tools}}  <li><code>{{.Name}}</code> {{.Description}}</li>
{{end}}</ul>
</body>
</html>`))

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler(server *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		landingPage.Execute(w, struct {
			Version string
			Tools   []toolInfo
		}{server.version, server.tools})
	}
}
