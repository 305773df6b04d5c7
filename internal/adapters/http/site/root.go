// Package site serves the landing page at the server root.
package site

import (
	"context"
	"errors"
	"net/http"
)

// Error constants
var (
	ErrServe = errors.New("site serve failed")
)

// Register attaches the landing page route to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("/", NewRootHandler().HandleRoot)
}

// RootHandler handles root path requests.
type RootHandler struct{}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

// HandleRoot handles GET / requests. The mux routes every unmatched path
// here, so anything but the exact root is a 404.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

const indexHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Decant</title>
    <style>body{font-family:sans-serif;max-width:40rem;margin:4rem auto;line-height:1.6}</style>
  </head>
  <body>
    <h1>Decant</h1>
    <p>Pairwise wine ranking service. Rate wines by choosing the better of
    two in head-to-head duels.</p>
    <ul>
      <li><a href="/api-docs">API documentation</a></li>
      <li><a href="/openapi.yaml">OpenAPI spec</a></li>
      <li><a href="/healthz">Health and metrics</a></li>
      <li><a href="/stats">Service stats</a></li>
    </ul>
  </body>
</html>`
