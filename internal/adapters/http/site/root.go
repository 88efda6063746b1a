// Package site serves the embedded landing page.
package site

import (
	"context"
	"errors"
	"net/http"
)

// ErrServe is returned when an embedded asset cannot be served.
var ErrServe = errors.New("site serve failed")

// Register attaches the landing page to mux. Only the exact root path is
// served; everything else under "/" is a 404 so unknown API paths do not fall
// through to the page.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	h := NewRootHandler()
	mux.HandleFunc("/", h.HandleRoot)
	mux.Handle("/assets/", http.StripPrefix("/assets/", http.FileServer(FS())))
}

// RootHandler serves index.html.
type RootHandler struct {
	index []byte
	err   error
}

// NewRootHandler loads the embedded index page.
func NewRootHandler() *RootHandler {
	b, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		return &RootHandler{err: errors.Join(ErrServe, err)}
	}
	return &RootHandler{index: b}
}

// HandleRoot handles GET / requests.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if h.err != nil {
		http.Error(w, h.err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.index)
}
