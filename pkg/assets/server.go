// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package assets serves the control front end's static files.
package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// DefaultPort is the default listen port of the static server
const DefaultPort = 8000

var mimeTypes = map[string]string{
	".html": "text/html",
	".js":   "text/javascript",
	".css":  "text/css",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpg",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
	".ico":  "image/x-icon",
}

// ContentType returns the content type served for a file name
func ContentType(name string) string {
	if t, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return t
	}
	return "text/plain"
}

// Server serves files below Root
type Server struct {
	Root string

	router *mux.Router
}

// NewServer creates a static file server rooted at root
func NewServer(root string) *Server {
	s := &Server{Root: root, router: mux.NewRouter()}
	s.router.PathPrefix("/").HandlerFunc(s.serveFile).Methods(http.MethodGet, http.MethodHead)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// resolve maps a URL path to a file below Root. Directory paths map to
// their index.html.
func (s *Server) resolve(urlPath string) string {
	clean := path.Clean("/" + urlPath)
	if strings.HasSuffix(urlPath, "/") {
		clean = path.Join(clean, "index.html")
	}
	return filepath.Join(s.Root, filepath.FromSlash(clean))
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	name := s.resolve(r.URL.Path)

	data, err := os.ReadFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logrus.WithField("path", r.URL.Path).Debug("File not found")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, "File %s not found!", r.URL.Path)
			return
		}
		logrus.WithError(err).WithField("path", r.URL.Path).Error("Error reading file")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "Error getting the file: %v.", err)
		return
	}

	w.Header().Set("Content-Type", ContentType(name))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		w.Write(data)
	}
}
