// Package static serves an optional front-end directory next to the API.
package static

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

const placeholderPage = `<!DOCTYPE html>
<html>
<head><title>faceid</title></head>
<body>
<h1>faceid</h1>
<p>The API is available under <code>/api</code>. Set <code>WEB_STATIC_DIR</code> to serve a front-end here.</p>
</body>
</html>
`

// Handler serves files from fsys. Unknown paths outside /assets/ fall back to
// index.html so that client-side routes work. A nil fsys serves a placeholder.
func Handler(fsys fs.FS) http.Handler {
	if fsys == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(placeholderPage))
		})
	}

	fileServer := http.FileServerFS(fsys)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" {
			name = "."
		}

		if stat, err := fs.Stat(fsys, name); err == nil && (!stat.IsDir() || hasIndex(fsys, name)) {
			if strings.HasPrefix(name, "assets/") {
				w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
			}
			fileServer.ServeHTTP(w, r)
			return
		}

		if strings.HasPrefix(name, "assets/") || !hasIndex(fsys, ".") {
			http.NotFound(w, r)
			return
		}
		http.ServeFileFS(w, r, fsys, "index.html")
	})
}

func hasIndex(fsys fs.FS, dir string) bool {
	_, err := fs.Stat(fsys, path.Join(dir, "index.html"))
	return err == nil
}
