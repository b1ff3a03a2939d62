package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Shell serves the static portal bundle. Paths that name a real file are
// served as-is; everything else falls back to index.html so client-side
// routes deep-link correctly. Guard redirects have already happened by the
// time a request reaches here.
type Shell struct {
	dir   string
	files http.Handler
}

// NewShell creates a Shell rooted at dir.
func NewShell(dir string) *Shell {
	return &Shell{
		dir:   dir,
		files: http.FileServer(http.Dir(dir)),
	}
}

func (s *Shell) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := filepath.Join(s.dir, filepath.Clean("/"+r.URL.Path))
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		s.files.ServeHTTP(w, r)
		return
	}

	// No file on disk. Asset requests get a real 404; navigations get the
	// shell.
	if strings.Contains(filepath.Base(r.URL.Path), ".") {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(s.dir, "index.html"))
}
