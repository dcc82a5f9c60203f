// Package site serves the embedded landing page.
package site

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
)

// Register attaches the landing page to router at "/".
func Register(_ context.Context, router *mux.Router) {
	if router == nil {
		panic("router is nil")
	}
	router.Handle("/", NewRootHandler()).Methods(http.MethodGet, http.MethodHead)
}

// RootHandler serves the landing page.
type RootHandler struct {
	files http.Handler
}

// NewRootHandler creates a RootHandler over the embedded files.
func NewRootHandler() *RootHandler {
	return &RootHandler{files: http.FileServer(FS())}
}

func (h *RootHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.files.ServeHTTP(w, r)
}
