package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"articast/internal/config"
	"articast/internal/feed"
	"articast/internal/logging"
	"articast/internal/services"
)

const (
	feedContentType = "application/rss+xml; charset=utf-8"
	shutdownTimeout = 5 * time.Second
)

// Server is the static feed server.
type Server struct {
	bind     string
	dir      string
	feedName string
	logger   *slog.Logger

	mu       sync.Mutex
	listener net.Listener
	root     *os.Root
	http     *http.Server
}

// New creates a server for the configured bind address and output directory.
func New(cfg *config.Config, logger *slog.Logger) *Server {
	return &Server{
		bind:     strings.TrimSpace(cfg.Server.Bind),
		dir:      cfg.Paths.OutputDir,
		feedName: cfg.Feed.Filename,
		logger:   logging.NewComponentLogger(logger, "server"),
	}
}

// Listen opens the output directory and binds the listener. A bind failure
// is wrapped with services.ErrServerBind.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}

	root, err := os.OpenRoot(s.dir)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "server", "open output dir", s.dir, err)
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		_ = root.Close()
		return services.Wrap(services.ErrServerBind, "server", "listen", s.bind, err)
	}

	s.root = root
	s.listener = listener
	s.http = &http.Server{
		Handler:           s.handler(root),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.bind
}

// Serve answers requests until ctx is cancelled, then shuts down gracefully.
// It calls Listen when the server is not bound yet.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	srv, listener, root := s.http, s.listener, s.root
	s.mu.Unlock()
	defer root.Close()

	s.logger.Info("feed server listening",
		logging.String(logging.FieldEventType, "server_listening"),
		logging.String("address", listener.Addr().String()),
		logging.String("output_dir", s.dir),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("feed server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("feed server shutdown incomplete", logging.Error(err))
	}
	<-errCh
	s.logger.Info("feed server stopped", logging.String(logging.FieldEventType, "server_stopped"))
	return nil
}

func (s *Server) handler(root *os.Root) http.Handler {
	files := http.FileServerFS(root.FS())
	serve := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := w.Header()
		header.Set("Access-Control-Allow-Origin", "*")
		header.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		header.Set("Access-Control-Allow-Headers", "*")
		header.Set("Cache-Control", "no-store")

		switch r.Method {
		case http.MethodGet, http.MethodHead:
		case http.MethodOptions:
			w.WriteHeader(http.StatusNoContent)
			return
		default:
			header.Set("Allow", "GET, HEAD, OPTIONS")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		name, status := resolve(r.URL.Path)
		if status != http.StatusOK {
			http.Error(w, http.StatusText(status), status)
			return
		}
		info, err := root.Stat(name)
		if err != nil || !info.Mode().IsRegular() {
			http.NotFound(w, r)
			return
		}

		switch {
		case name == s.feedName:
			header.Set("Content-Type", feedContentType)
		case strings.EqualFold(filepath.Ext(name), ".mp3"), strings.EqualFold(filepath.Ext(name), ".wav"):
			header.Set("Content-Type", feed.MIMEType(filepath.Ext(name)))
		}
		files.ServeHTTP(w, r)
	})
	return s.withRequestLog(serve)
}

// resolve maps a request path to a root-relative name. Any ".." segment is a
// bad request; dot-prefixed segments and the bare root are not found.
func resolve(urlPath string) (string, int) {
	for _, segment := range strings.Split(urlPath, "/") {
		if segment == ".." {
			return "", http.StatusBadRequest
		}
		if strings.HasPrefix(segment, ".") {
			return "", http.StatusNotFound
		}
	}
	name := strings.TrimPrefix(path.Clean("/"+urlPath), "/")
	if name == "" {
		return "", http.StatusNotFound
	}
	return name, http.StatusOK
}
