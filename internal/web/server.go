// Package web serves a built GUI frontend from a directory on disk, used
// when no external GUI server executable is configured.
package web

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"fmu-settings/internal/logger"

	"github.com/gorilla/mux"
)

// NewHandler returns a router serving dir as a single-page application.
// Requests for files that do not exist fall back to index.html so client
// side routes resolve.
func NewHandler(dir string) (http.Handler, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("gui static directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("gui static directory %s is not a directory", dir)
	}
	root := os.DirFS(dir)
	if _, err := fs.Stat(root, "index.html"); err != nil {
		return nil, fmt.Errorf("gui static directory %s has no index.html", dir)
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet, http.MethodHead)

	// Must be registered after /health to avoid shadowing it
	router.PathPrefix("/").Handler(spaHandler{root: root, files: http.FileServer(http.FS(root))})
	return router, nil
}

type spaHandler struct {
	root  fs.FS
	files http.Handler
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = "."
	}
	if _, err := fs.Stat(h.root, name); err != nil {
		r2 := r.Clone(r.Context())
		r2.URL.Path = "/"
		h.files.ServeHTTP(w, r2)
		return
	}
	h.files.ServeHTTP(w, r)
}

// Serve listens on addr and serves dir until ctx is done, then shuts down
// gracefully. It returns nil after a context-triggered shutdown.
func Serve(ctx context.Context, addr, dir string) error {
	handler, err := NewHandler(dir)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	logger.Info("static gui server listening", "addr", addr, "dir", dir)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down gui server: %w", err)
		}
		<-errCh
		logger.Info("static gui server stopped", "addr", addr)
		return nil
	}
}
