package staticAssets

import (
	"io/fs"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// Handler serves embedded static files under urlPrefix, falling back to
// defaultFile for paths that don't match a file so the single-page UI handles
// its own routing.
func Handler(embedFs fs.FS, embedFsRoot string, urlPrefix string, defaultFile string) http.Handler {
	assets, err := fs.Sub(embedFs, embedFsRoot)
	if err != nil {
		log.Panic().Err(err).Msg("fs.Sub() failed")
	}

	fileServer := http.FileServer(http.FS(assets))

	return http.HandlerFunc(func(responseWriter http.ResponseWriter, request *http.Request) {
		path := strings.TrimPrefix(request.URL.Path, urlPrefix)
		path = strings.TrimPrefix(path, "/")
		if path == "" {
			path = defaultFile
		}

		if _, err := fs.Stat(assets, path); err != nil {
			path = defaultFile
		}

		request.URL.Path = "/" + path
		fileServer.ServeHTTP(responseWriter, request)
	})
}
